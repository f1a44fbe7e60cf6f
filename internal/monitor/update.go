package monitor

import (
	"context"
	"time"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/source"
)

// Outcome is what happened to one metric during a fetch cycle.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeQueryError Outcome = "query_error"
	OutcomeNoProc     Outcome = "no_procedure"
	OutcomeDuplicate  Outcome = "skipped_duplicate"
)

// MetricResult reports one metric of a cycle.
type MetricResult struct {
	Key     string
	Outcome Outcome
	Err     error
}

// CycleReport summarizes a fetch cycle that got a connection.
type CycleReport struct {
	Instance string
	Stamp    string
	At       time.Time
	Duration time.Duration
	Results  []MetricResult
}

// Updated counts the metrics that gained a sample.
func (r CycleReport) Updated() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeOK {
			n++
		}
	}
	return n
}

// UpdateAll runs one fetch cycle for an instance: a single connection, a
// single stamp taken from now, then every metric in table order.
//
// A metric whose newest sample already has this cycle's stamp is skipped
// without a query. Only successful fetches are inserted; a failing metric
// leaves its history unchanged and does not stop the others.
//
// When the connection cannot be opened nothing is mutated and the CONNECTION
// error is returned for the caller to log; it never reaches the renderer.
func UpdateAll(ctx context.Context, state *InstanceState, inst config.Instance, src source.Source, now time.Time, log logger.Logger) (CycleReport, error) {
	if log == nil {
		log = logger.Noop()
	}
	log = log.With("instance", inst.Name)

	report := CycleReport{
		Instance: inst.Name,
		Stamp:    now.Format(StampLayout),
		At:       now,
	}
	started := time.Now()

	conn, err := src.Open(ctx, inst)
	if err != nil {
		if !errors.IsCode(err, errors.ErrConnection) {
			err = errors.WrapWithCode(err, errors.ErrConnection,
				"Cannot connect to SQL Server "+inst.Name, "")
		}
		log.Warn("fetch cycle aborted: %s", oneLine(err))
		return report, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Debug("closing connection: %v", cerr)
		}
	}()

	for _, key := range source.Keys() {
		if newest, ok := state.NewestStamp(key); ok && newest == report.Stamp {
			report.Results = append(report.Results, MetricResult{Key: key, Outcome: OutcomeDuplicate})
			continue
		}

		rec, err := conn.Fetch(ctx, key)
		if err != nil {
			outcome := OutcomeQueryError
			if errors.IsCode(err, errors.ErrNoProc) {
				outcome = OutcomeNoProc
			}
			log.With("metric", key, "code", errors.CodeOf(err)).Warn("metric fetch failed: %s", oneLine(err))
			report.Results = append(report.Results, MetricResult{Key: key, Outcome: outcome, Err: err})
			continue
		}

		state.Insert(key, Sample{Stamp: report.Stamp, At: now, Record: rec})
		report.Results = append(report.Results, MetricResult{Key: key, Outcome: OutcomeOK})
	}

	report.Duration = time.Since(started)
	log.Debug("fetch cycle %s: %d/%d metrics updated in %s",
		report.Stamp, report.Updated(), len(report.Results), report.Duration)
	return report, nil
}

// Clear empties every metric history of the instance state.
func Clear(state *InstanceState) {
	state.Clear()
}

// oneLine flattens a structured error for log output.
func oneLine(err error) string {
	var sErr *errors.Error
	if errors.As(err, &sErr) {
		if sErr.Cause != nil {
			return sErr.Message + ": " + sErr.Cause.Error()
		}
		return sErr.Message
	}
	return err.Error()
}
