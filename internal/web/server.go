// Package web serves the browser dashboard: a static page, a small JSON API
// and a websocket per tab that streams monitor frames and accepts commands.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
	"github.com/rileyhilliard/sqlmon/internal/source"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "sqlmon_session"

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxMessageSize    = 4096

	// maxPingPeriod caps how often attached browsers are pinged.
	maxPingPeriod = 30 * time.Second
)

//go:embed static/index.html
var static embed.FS

// Options configures a Server.
type Options struct {
	Config  *config.Config
	Source  source.Source
	Logger  logger.Logger
	Metrics *monitor.Metrics

	// Telemetry, when set, backs GET /metrics and supplies Metrics if that
	// is nil.
	Telemetry *monitor.Telemetry

	// Now overrides the scheduler clock of new sessions.
	Now func() time.Time
}

// Server is the browser renderer.
type Server struct {
	cfg      *config.Config
	src      source.Source
	log      logger.Logger
	metrics  *monitor.Metrics
	tel      *monitor.Telemetry
	now      func() time.Time
	sessions *Registry
	ping     time.Duration
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

// New wires routes and the session registry. Call Close when done.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	s := &Server{
		cfg:     opts.Config,
		src:     opts.Source,
		log:     log,
		metrics: opts.Metrics,
		tel:     opts.Telemetry,
		now:     opts.Now,
		ping:    pingPeriod(opts.Config.Dashboard.SessionTTL),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	if s.metrics == nil && s.tel != nil {
		s.metrics = s.tel.Metrics
	}
	s.sessions = NewRegistry(s.cfg.Dashboard.SessionTTL, s.newSession, log)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	engine.GET("/", s.withSession, s.handleIndex)
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/api/instances", s.handleInstances)
	if s.tel != nil {
		engine.GET("/metrics", s.handleMetrics)
	}
	engine.GET("/ws", s.withSession, s.handleWebSocket)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions exposes the registry.
func (s *Server) Sessions() *Registry {
	return s.sessions
}

// Close ends every session.
func (s *Server) Close() {
	s.sessions.Close()
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully and closes all sessions.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Dashboard.Listen)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot listen on "+s.cfg.Dashboard.Listen,
			"Pick a free address with dashboard.listen or --listen")
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening on http://%s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked websockets are not tracked by Shutdown; closing the sessions
	// disconnects them.
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("shutdown: %v", err)
	}
	<-errCh
	return nil
}

func (s *Server) newSession(id string, touch func()) *Session {
	log := s.log.With("session", id)
	sched := monitor.NewScheduler(s.cfg, s.src, log, s.metrics)
	if s.now != nil {
		sched.Now = s.now
	}
	return newSession(id, sched, s.cfg.Dashboard.TickInterval, s.ping, log, touch)
}

// pingPeriod pings often enough that an attached browser refreshes its
// session several times per TTL, even while monitoring is stopped and no
// frames flow.
func pingPeriod(ttl time.Duration) time.Duration {
	p := ttl / 3
	if p <= 0 || p > maxPingPeriod {
		p = maxPingPeriod
	}
	return p
}

// pongWait is how long the read side waits for any message or pong before
// treating the peer as gone.
func (s *Server) pongWait() time.Duration {
	return 3 * s.ping
}

// withSession makes sure the request carries a session cookie.
func (s *Server) withSession(c *gin.Context) {
	id, err := c.Cookie(SessionCookie)
	if err != nil || !validSessionID(id) {
		id = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
	}
	c.Set(SessionCookie, id)
	c.Next()
}

func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"instances": len(s.cfg.Instances),
		"sessions":  s.sessions.Len(),
	})
}

func (s *Server) handleInstances(c *gin.Context) {
	c.JSON(http.StatusOK, newInstancesResponse(s.cfg))
}

func (s *Server) handleMetrics(c *gin.Context) {
	points, err := s.tel.Snapshot(c.Request.Context())
	if err != nil {
		s.log.Warn("collecting metrics: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": points})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	id := c.GetString(SessionCookie)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("websocket upgrade: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait()))
	conn.SetPongHandler(func(string) error {
		s.sessions.Get(id)
		return conn.SetReadDeadline(time.Now().Add(s.pongWait()))
	})

	sess, _ := s.sessions.GetOrCreate(id)
	cl := sess.attach(conn)
	if cl == nil {
		return
	}
	defer sess.detach(cl)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait()))

		var cmd monitor.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			cl.writeJSON(ServerMessage{Type: MessageError, Message: "invalid message"})
			continue
		}
		if msg := s.checkCommand(cmd); msg != "" {
			cl.writeJSON(ServerMessage{Type: MessageError, Message: msg})
			continue
		}

		// Activity keeps the session alive.
		s.sessions.Get(id)
		if !sess.Send(cmd) {
			return
		}
	}
}

// checkCommand rejects commands the loop would ignore, so the browser gets
// an answer.
func (s *Server) checkCommand(cmd monitor.Command) string {
	switch cmd.Action {
	case monitor.ActionSelect:
		if _, ok := s.cfg.Instance(cmd.Instance); !ok {
			return "unknown instance: " + cmd.Instance
		}
	case monitor.ActionRefresh, monitor.ActionStop, monitor.ActionClear, monitor.ActionAuto:
	default:
		return "unknown message type: " + string(cmd.Action)
	}
	return ""
}

// requestLogger logs each request through the structured logger. Health
// probes log at debug.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l := log.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			l.Error("request failed")
		case c.Request.URL.Path == "/healthz":
			l.Debug("request")
		default:
			l.Info("request")
		}
	}
}
