// Package testing provides test doubles for the source package.
package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/source"
)

// FakeInstance configures how one instance answers.
type FakeInstance struct {
	// Records returned per metric key. Keys without a record return an
	// empty record, except backup which returns its placeholder.
	Records map[string]source.Record

	// MetricErrors makes individual metric fetches fail.
	MetricErrors map[string]error

	// ConnectError makes Open fail for this instance.
	ConnectError error
}

// FakeSource simulates SQL Server instances without a network.
// It is safe for concurrent use.
type FakeSource struct {
	mu        sync.Mutex
	instances map[string]*FakeInstance

	// Tracking for assertions
	OpenCalls  []string // Instance names passed to Open
	FetchCalls []string // "instance/metric" per Fetch
	CloseCalls int      // Conns closed
}

var _ source.Source = (*FakeSource)(nil)

// NewFakeSource creates a fake source with no instances.
func NewFakeSource() *FakeSource {
	return &FakeSource{instances: make(map[string]*FakeInstance)}
}

// AddInstance registers a healthy instance that returns records.
func (f *FakeSource) AddInstance(name string, records map[string]source.Record) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances[name] = &FakeInstance{Records: records, MetricErrors: map[string]error{}}
	return f
}

// FailConnect makes Open fail for the instance until cleared with a nil error.
func (f *FakeSource) FailConnect(name string, err error) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.get(name).ConnectError = err
	return f
}

// FailMetric makes one metric of the instance fail. A nil error clears it.
func (f *FakeSource) FailMetric(name, key string, err error) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst := f.get(name)
	if err == nil {
		delete(inst.MetricErrors, key)
	} else {
		inst.MetricErrors[key] = err
	}
	return f
}

// SetRecord replaces the record returned for one metric.
func (f *FakeSource) SetRecord(name, key string, rec source.Record) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst := f.get(name)
	if inst.Records == nil {
		inst.Records = map[string]source.Record{}
	}
	inst.Records[key] = rec
	return f
}

// OpenCount returns how many times Open was called.
func (f *FakeSource) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.OpenCalls)
}

// Fetches returns a copy of the recorded fetch calls.
func (f *FakeSource) Fetches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.FetchCalls...)
}

// Closed returns how many connections were closed.
func (f *FakeSource) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CloseCalls
}

func (f *FakeSource) get(name string) *FakeInstance {
	inst, ok := f.instances[name]
	if !ok {
		inst = &FakeInstance{MetricErrors: map[string]error{}}
		f.instances[name] = inst
	}
	return inst
}

// Open connects to a fake instance.
func (f *FakeSource) Open(ctx context.Context, inst config.Instance) (source.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, inst.Name)

	fake, ok := f.instances[inst.Name]
	if !ok {
		return nil, errors.New(errors.ErrConnection,
			"Database connection failed for "+inst.Name,
			"Instance not registered with the fake source")
	}
	if fake.ConnectError != nil {
		if errors.IsCode(fake.ConnectError, errors.ErrConnection) {
			return nil, fake.ConnectError
		}
		return nil, errors.WrapWithCode(fake.ConnectError, errors.ErrConnection,
			"Database connection failed for "+inst.Name, "")
	}
	return &fakeConn{src: f, name: inst.Name}, nil
}

type fakeConn struct {
	src    *FakeSource
	name   string
	closed bool
}

func (c *fakeConn) Fetch(ctx context.Context, key string) (source.Record, error) {
	c.src.mu.Lock()
	defer c.src.mu.Unlock()

	c.src.FetchCalls = append(c.src.FetchCalls, c.name+"/"+key)
	if c.closed {
		return nil, errors.New(errors.ErrQuery, "Cannot connect to SQL Server", "connection already closed")
	}

	inst := c.src.instances[c.name]
	if err, ok := inst.MetricErrors[key]; ok {
		if errors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrQuery, fmt.Sprintf("SQL query error for %s", key), "")
	}

	m, ok := source.Lookup(key)
	if !ok {
		return nil, errors.NewNoProcedure(key)
	}
	if m.Procedure == "" && m.Placeholder != nil {
		return m.Placeholder.Clone(), nil
	}
	if rec, ok := inst.Records[key]; ok {
		return rec.Clone(), nil
	}
	return source.Record{}, nil
}

func (c *fakeConn) Close() error {
	c.src.mu.Lock()
	defer c.src.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.src.CloseCalls++
	}
	return nil
}
