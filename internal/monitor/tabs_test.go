package monitor

import (
	"testing"

	"github.com/rileyhilliard/sqlmon/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTabs_FollowMetricTable(t *testing.T) {
	require.Len(t, Tabs, len(source.Metrics))
	for i, m := range source.Metrics {
		assert.Equal(t, m.Key, Tabs[i].Key)
		assert.Equal(t, m.Title, Tabs[i].Title)
		assert.Equal(t, m.Fields, Tabs[i].Fields)
	}

	tab, ok := TabFor(source.Disk)
	require.True(t, ok)
	assert.Equal(t, "Disk", tab.Title)

	_, ok = TabFor("network")
	assert.False(t, ok)
}

func TestBuildTabRows(t *testing.T) {
	tab := Tab{Key: source.CPU, Fields: []string{"SystemIdle", "cpu_count", "missing", "nothing"}}
	samples := []Sample{
		{Stamp: "2024-03-01 09:01:00", Record: source.Record{"SystemIdle": 80.456, "cpu_count": int64(8), "nothing": nil}},
		{Stamp: "2024-03-01 09:00:00", Record: source.Record{}},
	}

	rows := BuildTabRows(tab, samples)
	require.Len(t, rows, 2)

	assert.Equal(t, "2024-03-01 09:01:00", rows[0].Stamp)
	assert.Equal(t, []string{"80.46", "8", "N/A", "NULL"}, rows[0].Values)
	assert.Equal(t, []string{"N/A", "N/A", "N/A", "N/A"}, rows[1].Values)
}

func TestBuildTabRows_Empty(t *testing.T) {
	tab, _ := TabFor(source.Memory)
	rows := BuildTabRows(tab, nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
