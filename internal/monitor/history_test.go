package monitor

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rileyhilliard/sqlmon/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstanceState(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"default size", 0, DefaultHistorySize},
		{"negative size", -1, DefaultHistorySize},
		{"custom size", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewInstanceState(tt.size)
			assert.Equal(t, tt.expected, s.size)

			snap := s.Snapshot()
			assert.Len(t, snap, len(source.Metrics))
			for _, key := range source.Keys() {
				assert.NotNil(t, snap[key], key)
				assert.Empty(t, snap[key], key)
			}
		})
	}
}

func TestInstanceState_InsertNewestFirst(t *testing.T) {
	s := NewInstanceState(10)

	assert.True(t, s.Insert(source.CPU, sample("2024-03-01 09:00:00", 1)))
	assert.True(t, s.Insert(source.CPU, sample("2024-03-01 09:01:00", 2)))

	hist := s.History(source.CPU)
	require.Len(t, hist, 2)
	assert.Equal(t, "2024-03-01 09:01:00", hist[0].Stamp)
	assert.Equal(t, "2024-03-01 09:00:00", hist[1].Stamp)

	stamp, ok := s.NewestStamp(source.CPU)
	assert.True(t, ok)
	assert.Equal(t, "2024-03-01 09:01:00", stamp)

	_, ok = s.NewestStamp(source.Memory)
	assert.False(t, ok)
}

func TestInstanceState_DuplicateStampIsNoop(t *testing.T) {
	s := NewInstanceState(10)
	require.True(t, s.Insert(source.CPU, sample("2024-03-01 09:00:00", 1)))

	before := s.History(source.CPU)
	assert.False(t, s.Insert(source.CPU, sample("2024-03-01 09:00:00", 99)))
	assert.Equal(t, before, s.History(source.CPU))

	// Other metrics are independent.
	assert.True(t, s.Insert(source.Memory, sample("2024-03-01 09:00:00", 1)))
}

func TestInstanceState_DuplicateOnlyAgainstNewest(t *testing.T) {
	s := NewInstanceState(10)
	require.True(t, s.Insert(source.CPU, sample("2024-03-01 09:00:00", 1)))
	require.True(t, s.Insert(source.CPU, sample("2024-03-01 09:00:01", 2)))

	// Matches an older sample but not the newest one.
	assert.True(t, s.Insert(source.CPU, sample("2024-03-01 09:00:00", 3)))
	assert.Equal(t, 3, s.Len(source.CPU))
}

func TestInstanceState_EvictsOldest(t *testing.T) {
	s := NewInstanceState(DefaultHistorySize)

	for i := 0; i < 11; i++ {
		require.True(t, s.Insert(source.Disk, sample(fmt.Sprintf("2024-03-01 09:00:%02d", i), i)))
	}

	hist := s.History(source.Disk)
	require.Len(t, hist, 10)
	for i, smp := range hist {
		want := 10 - i
		assert.Equal(t, fmt.Sprintf("2024-03-01 09:00:%02d", want), smp.Stamp)
		assert.Equal(t, int64(want), smp.Record["v"])
	}
}

func TestInstanceState_CapAlwaysHolds(t *testing.T) {
	for _, size := range []int{1, 2, 10} {
		s := NewInstanceState(size)
		for i := 0; i < 50; i++ {
			s.Insert(source.Activity, sample(fmt.Sprintf("stamp-%03d", i), i))
			// Duplicates interleaved.
			s.Insert(source.Activity, sample(fmt.Sprintf("stamp-%03d", i), i))
			assert.LessOrEqual(t, s.Len(source.Activity), size)
		}
		assert.Equal(t, size, s.Len(source.Activity))
	}
}

func TestInstanceState_UnknownKey(t *testing.T) {
	s := NewInstanceState(10)
	assert.False(t, s.Insert("network", sample("x", 1)))
	assert.Empty(t, s.History("network"))
	assert.NotContains(t, s.Snapshot(), "network")
}

func TestInstanceState_Clear(t *testing.T) {
	s := NewInstanceState(10)
	for _, key := range source.Keys() {
		for i := 0; i < 4; i++ {
			s.Insert(key, sample(fmt.Sprintf("s%d", i), i))
		}
	}

	s.Clear()

	snap := s.Snapshot()
	assert.Len(t, snap, len(source.Metrics))
	for _, key := range source.Keys() {
		assert.Empty(t, snap[key], key)
	}
}

func TestInstanceState_ReadsAreCopies(t *testing.T) {
	s := NewInstanceState(10)
	s.Insert(source.CPU, sample("s1", 1))

	hist := s.History(source.CPU)
	hist[0].Record["v"] = int64(999)
	hist[0].Stamp = "changed"

	snap := s.Snapshot()
	snap[source.CPU][0].Record["v"] = int64(777)

	fresh := s.History(source.CPU)
	assert.Equal(t, "s1", fresh[0].Stamp)
	assert.Equal(t, int64(1), fresh[0].Record["v"])
}

func TestInstanceState_InsertCopiesRecord(t *testing.T) {
	s := NewInstanceState(10)
	rec := source.Record{"v": int64(1)}
	s.Insert(source.CPU, Sample{Stamp: "s1", Record: rec})

	rec["v"] = int64(2)
	assert.Equal(t, int64(1), s.History(source.CPU)[0].Record["v"])
}

func TestInstanceState_Concurrent(t *testing.T) {
	s := NewInstanceState(10)
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Insert(source.CPU, sample(fmt.Sprintf("%d-%d", w, i), i))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.LessOrEqual(t, len(s.Snapshot()[source.CPU]), 10)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, s.Len(source.CPU))
}

func TestHistories_LazyAndIndependent(t *testing.T) {
	h := NewHistories(10)
	assert.Empty(t, h.Instances())

	a := h.For("a")
	assert.Same(t, a, h.For("a"))
	b := h.For("b")
	assert.NotSame(t, a, b)
	assert.Equal(t, []string{"a", "b"}, h.Instances())

	a.Insert(source.CPU, sample("s1", 1))
	b.Insert(source.CPU, sample("s1", 2))
	a.Clear()

	assert.Empty(t, a.History(source.CPU))
	require.Len(t, b.History(source.CPU), 1)
	assert.Equal(t, int64(2), b.History(source.CPU)[0].Record["v"])
}
