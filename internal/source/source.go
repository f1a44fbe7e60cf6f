// Package source fetches metric records from SQL Server instances.
//
// A Source opens one Conn per fetch cycle; the Conn runs each metric's
// stored procedure and returns the first row as a flat Record. Callers
// must Close the Conn on every path.
package source

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
)

// Record is one metric row: field name to scalar value. Values are nil,
// bool, int64, float64, string or time.Time.
type Record map[string]interface{}

// Clone returns a copy that shares no map with r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Format renders a field for display, or "N/A" when the field is absent.
func (r Record) Format(field string) string {
	v, ok := r[field]
	if !ok {
		return "N/A"
	}
	if v == nil {
		return "NULL"
	}
	switch val := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", val)
	case float32:
		return fmt.Sprintf("%.2f", val)
	}
	return fmt.Sprint(v)
}

// Source opens connections to configured instances.
type Source interface {
	// Open connects to the instance. Failures are CONNECTION errors and no
	// Conn is returned.
	Open(ctx context.Context, inst config.Instance) (Conn, error)
}

// Conn is a connection held for the duration of one fetch cycle.
type Conn interface {
	// Fetch runs the query behind one metric key. A QUERY or NOPROC error
	// affects only that metric.
	Fetch(ctx context.Context, key string) (Record, error)
	Close() error
}

// placeholderOrNoProc handles metrics without a backing procedure.
func placeholderOrNoProc(key string) (Record, error) {
	m, ok := Lookup(key)
	if !ok {
		return nil, errors.NewNoProcedure(key)
	}
	if m.Placeholder != nil {
		return m.Placeholder.Clone(), nil
	}
	return nil, errors.NewNoProcedure(key)
}
