package monitor

import (
	"sync"
	"time"

	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/internal/source"
	srctesting "github.com/rileyhilliard/sqlmon/internal/source/testing"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(names ...string) *config.Config {
	cfg := config.DefaultConfig()
	for _, n := range names {
		cfg.Instances = append(cfg.Instances, config.Instance{
			Name:     n,
			Section:  "database",
			Host:     n,
			Port:     config.DefaultPort,
			User:     "monitor",
			Database: "master",
		})
	}
	return cfg
}

func healthyRecords() map[string]source.Record {
	return map[string]source.Record{
		source.CPU:      {"SQLProcessUtilization": int64(10), "SystemIdle": int64(85), "OtherProcessUtilization": int64(5), "cpu_count": int64(8)},
		source.Memory:   {"total_server_memory_mb": 4096.0, "memory_in_use_mb": 3000.5},
		source.TempDB:   {"Total_SizeMB": 512.0},
		source.Disk:     {"AvgBatchRequestsPerSec": 120.0, "PageLifeExpectancySec": int64(3600)},
		source.Activity: {"UserConnections": int64(42), "blocked_processes": int64(0)},
	}
}

// newTestScheduler builds a scheduler over a fake source with healthy
// instances for every name.
func newTestScheduler(names ...string) (*Scheduler, *srctesting.FakeSource, *fakeClock, *logger.BufferLogger) {
	cfg := testConfig(names...)
	src := srctesting.NewFakeSource()
	for _, n := range names {
		src.AddInstance(n, healthyRecords())
	}
	clock := newFakeClock()
	log := logger.NewBufferLogger()

	sched := NewScheduler(cfg, src, log, nil)
	sched.Now = clock.Now
	return sched, src, clock, log
}

func sample(stamp string, v int) Sample {
	return Sample{Stamp: stamp, Record: source.Record{"v": int64(v)}}
}
