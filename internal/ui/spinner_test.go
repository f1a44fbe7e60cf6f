package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a goroutine-safe writer for spinner output.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestSpinner(label string) (*Spinner, *syncBuffer) {
	out := &syncBuffer{}
	s := NewSpinner(label)
	s.SetOutput(out)
	return s, out
}

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Checking db01")
	assert.Equal(t, "Checking db01", s.Label())
	assert.Equal(t, SpinnerPending, s.State())
	assert.Equal(t, time.Duration(0), s.Elapsed())
}

func TestSpinnerStartStop(t *testing.T) {
	s, out := newTestSpinner("Checking db01")

	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Equal(t, SpinnerInProgress, s.State(), "Stop leaves the state alone")
	assert.Contains(t, out.String(), "Checking db01...")
	assert.Greater(t, s.Elapsed(), time.Duration(0))
}

func TestSpinnerFinalStates(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*Spinner)
		state  SpinnerState
		symbol string
	}{
		{"success", (*Spinner).Success, SpinnerSuccess, SymbolComplete},
		{"fail", (*Spinner).Fail, SpinnerFailed, SymbolFail},
		{"skip", (*Spinner).Skip, SpinnerSkipped, SymbolSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out := newTestSpinner("Checking db01")
			s.Start()
			tt.finish(s)

			assert.Equal(t, tt.state, s.State())
			assert.Contains(t, out.String(), tt.symbol)
			assert.True(t, strings.HasSuffix(out.String(), "\n"))
		})
	}
}

func TestSpinnerDetail(t *testing.T) {
	s, out := newTestSpinner("db01")
	s.Start()
	s.SetDetail("5/6 metrics")
	s.Success()

	assert.Contains(t, out.String(), "db01 5/6 metrics")
}

func TestSpinnerSetLabel(t *testing.T) {
	s := NewSpinner("Initial")
	s.SetLabel("Updated")
	assert.Equal(t, "Updated", s.Label())
}

func TestSpinnerDoubleStartStop(t *testing.T) {
	s, _ := newTestSpinner("Test")

	s.Start()
	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())

	s.Stop()
	assert.NotPanics(t, s.Stop)
}

func TestSpinnerFrames(t *testing.T) {
	assert.Equal(t, []string{"◐", "◓", "◑", "◒"}, spinnerFrames)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{0, "0.00s"},
		{50 * time.Millisecond, "0.05s"},
		{100 * time.Millisecond, "0.1s"},
		{1500 * time.Millisecond, "1.5s"},
		{10 * time.Second, "10.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.duration))
		})
	}
}

func TestSpinnerConcurrentAccess(t *testing.T) {
	s, _ := newTestSpinner("Test")
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.State()
			_ = s.Label()
			_ = s.Elapsed()
		}()
	}

	wg.Wait()
	s.Success()

	require.Equal(t, SpinnerSuccess, s.State())
}
