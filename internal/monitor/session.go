package monitor

import "time"

// SessionState is the mutable state of one dashboard session. It is owned
// by a single Loop goroutine and is not safe for concurrent use.
type SessionState struct {
	// Instance is the selected instance name; empty until one is chosen.
	Instance string

	// Active is false after Stop; Refresh turns it back on.
	Active bool

	// AutoRefresh re-polls every poll interval while Active.
	AutoRefresh bool

	// LastUpdate is when the last cycle with a working connection ran.
	// Zero means never, which makes the next eligible tick fetch.
	LastUpdate time.Time

	// LastFailure is when the last cycle failed to connect. Zero after a
	// successful cycle.
	LastFailure time.Time

	// AnimationFrame indexes the status spinner.
	AnimationFrame int

	// PendingClear is set by Clear and consumed by the next tick.
	PendingClear bool

	// PendingRefresh is set by Refresh and consumed by the next fetch.
	PendingRefresh bool

	// ViewReset tells the renderer to drop what it painted for the
	// previous instance. Consumed by the next frame.
	ViewReset bool

	initialized bool
}

// NewSessionState returns a session with defaults applied.
func NewSessionState() *SessionState {
	s := &SessionState{}
	s.Init()
	return s
}

// Init applies the session defaults once. Later calls leave existing
// values alone.
func (s *SessionState) Init() {
	if s.initialized {
		return
	}
	s.Instance = ""
	s.Active = true
	s.AutoRefresh = true
	s.LastUpdate = time.Time{}
	s.LastFailure = time.Time{}
	s.AnimationFrame = 0
	s.PendingClear = false
	s.PendingRefresh = false
	s.initialized = true
}

// Select switches the session to another instance. A real switch forces
// monitoring on and resets LastUpdate so the new instance is fetched on the
// next tick. Returns false if name is already selected.
func (s *SessionState) Select(name string) bool {
	if s.Instance == name {
		return false
	}
	s.Instance = name
	s.Active = true
	s.LastUpdate = time.Time{}
	s.LastFailure = time.Time{}
	s.ViewReset = true
	return true
}

// RequestRefresh asks for an immediate fetch and re-activates monitoring.
func (s *SessionState) RequestRefresh() {
	s.PendingRefresh = true
	s.Active = true
}

// Stop halts future fetches. History is kept.
func (s *SessionState) Stop() {
	s.Active = false
}

// SetAutoRefresh toggles periodic polling.
func (s *SessionState) SetAutoRefresh(on bool) {
	s.AutoRefresh = on
}

// MarkClear records that the histories were just cleared so the next tick
// skips its fetch.
func (s *SessionState) MarkClear() {
	s.PendingClear = true
}
