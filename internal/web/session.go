package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jellydator/ttlcache/v3"

	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
)

const (
	writeWait     = 10 * time.Second
	clientBacklog = 8
)

// Session is one browser dashboard session: a monitor loop plus the
// websocket clients watching it. Reloading the page reattaches to the same
// session, so histories survive until the session expires.
type Session struct {
	ID string

	loop  *monitor.Loop
	log   logger.Logger
	touch func()
	ping  time.Duration // zero disables keepalive pings

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
	closed  bool
}

func newSession(id string, sched *monitor.Scheduler, tick, ping time.Duration, log logger.Logger, touch func()) *Session {
	s := &Session{
		ID:      id,
		log:     log,
		touch:   touch,
		ping:    ping,
		clients: make(map[*client]struct{}),
	}
	s.loop = monitor.NewLoop(sched, tick, s.render)
	return s
}

// Start begins ticking.
func (s *Session) Start() {
	s.loop.Start()
}

// Send forwards a browser command to the loop.
func (s *Session) Send(cmd monitor.Command) bool {
	return s.loop.Send(cmd)
}

// Clients returns how many websockets are attached.
func (s *Session) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the loop and disconnects every client.
func (s *Session) Close() {
	s.loop.Close()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clients := s.clients
	s.clients = map[*client]struct{}{}
	s.mu.Unlock()

	for c := range clients {
		c.close()
	}
	s.log.Debug("session closed")
}

// attach registers a websocket and replays the latest frame to it.
func (s *Session) attach(conn *websocket.Conn) *client {
	c := newClient(conn, s.log, s.ping)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.close()
		return nil
	}
	s.clients[c] = struct{}{}
	last := s.last
	s.mu.Unlock()

	s.keepAlive()
	if last != nil {
		c.enqueue(last)
	}
	return c
}

// keepAlive extends the session's registry TTL.
func (s *Session) keepAlive() {
	if s.touch != nil {
		s.touch()
	}
}

func (s *Session) detach(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

// render runs on the loop goroutine.
func (s *Session) render(f monitor.Frame) {
	data, err := json.Marshal(ServerMessage{Type: MessageFrame, Frame: NewFrameView(f)})
	if err != nil {
		s.log.Error("encoding frame: %v", err)
		return
	}

	s.mu.Lock()
	s.last = data
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if len(clients) > 0 {
		s.keepAlive()
	}
	for _, c := range clients {
		c.enqueue(data)
	}
}

// client owns one websocket's write side. Frames are queued so a slow
// browser never blocks the loop; when the queue is full the frame is dropped
// because the next one supersedes it. With a ping period set, the write side
// also pings the browser so the read side can spot dead peers.
type client struct {
	conn *websocket.Conn
	log  logger.Logger
	ping time.Duration
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, log logger.Logger, ping time.Duration) *client {
	c := &client{
		conn: conn,
		log:  log,
		ping: ping,
		send: make(chan []byte, clientBacklog),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.log.Debug("client backlog full, dropping frame")
	}
}

func (c *client) writeJSON(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *client) writePump() {
	var pings <-chan time.Time
	if c.ping > 0 {
		ticker := time.NewTicker(c.ping)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case <-c.done:
			return
		case <-pings:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("websocket ping: %v", err)
				c.close()
				return
			}
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("websocket write: %v", err)
				c.close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// SessionFactory builds an unstarted session for a new id.
type SessionFactory func(id string, touch func()) *Session

// Registry holds live sessions keyed by cookie id. Sessions expire after the
// TTL without use; expiry closes the session loop.
type Registry struct {
	cache       *ttlcache.Cache[string, *Session]
	factory     SessionFactory
	log         logger.Logger
	unsubscribe func()
	closeOnce   sync.Once
}

// NewRegistry creates a registry and starts its expiry goroutine.
func NewRegistry(ttl time.Duration, factory SessionFactory, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Noop()
	}
	cache := ttlcache.New(ttlcache.WithTTL[string, *Session](ttl))

	r := &Registry{cache: cache, factory: factory, log: log}
	r.unsubscribe = cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		item.Value().Close()
		if reason == ttlcache.EvictionReasonExpired {
			log.Info("session %s expired", item.Key())
		}
	})

	go cache.Start()
	return r
}

// Get returns a live session and extends its TTL.
func (r *Registry) Get(id string) (*Session, bool) {
	item := r.cache.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// GetOrCreate returns the session for id, creating and starting it when
// missing. The bool reports whether it was created.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	item, found := r.cache.GetOrSetFunc(id, func() *Session {
		return r.factory(id, func() { r.cache.Touch(id) })
	})
	sess := item.Value()
	if !found {
		sess.Start()
		r.log.Info("session %s started", id)
	}
	return sess, !found
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close ends every session and stops the expiry goroutine.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		r.cache.DeleteAll()
		r.unsubscribe()
		r.cache.Stop()
	})
}
