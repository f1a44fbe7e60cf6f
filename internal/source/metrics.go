package source

// Metric keys, in dashboard order.
const (
	CPU      = "cpu"
	Memory   = "memory"
	TempDB   = "tempdb"
	Disk     = "disk"
	Backup   = "backup"
	Activity = "activity"
)

// Metric describes how one metric key is fetched and which fields the
// dashboard expects in its records.
type Metric struct {
	Key   string
	Title string

	// Procedure is the stored procedure run for this metric. Empty means
	// there is no server-side source.
	Procedure string

	// Placeholder is returned instead of querying when Procedure is empty.
	// A metric with neither yields a NOPROC error.
	Placeholder Record

	// Fields are the record fields shown for this metric, in display order.
	Fields []string
}

// Metrics is the fixed metric set. Add a metric by extending this table.
var Metrics = []Metric{
	{
		Key:       CPU,
		Title:     "CPU",
		Procedure: "usp_SQLMonLit_CPU",
		Fields:    []string{"SQLProcessUtilization", "SystemIdle", "OtherProcessUtilization", "cpu_count"},
	},
	{
		Key:       Memory,
		Title:     "Memory",
		Procedure: "usp_SQLMonLit_Memory",
		Fields:    []string{"total_server_memory_mb", "memory_in_use_mb", "total_physical_memory_mb", "available_physical_memory_mb"},
	},
	{
		Key:       TempDB,
		Title:     "TempDB",
		Procedure: "usp_SQLMonLit_Tempdb",
		Fields:    []string{"Total_SizeMB", "Provisioned_DBSizeMB", "Used_DBSizeMB", "Provisioned_LogSizeMB", "Used_LogSizeMB"},
	},
	{
		Key:       Disk,
		Title:     "Disk",
		Procedure: "usp_SQLMonLit_Batch",
		Fields:    []string{"AvgBatchRequestsPerSec", "PageLifeExpectancySec", "BufferCacheHitRatioPercent"},
	},
	{
		Key:         Backup,
		Title:       "Backup",
		Placeholder: Record{"last_backup": "TBD"},
		Fields:      []string{"last_backup"},
	},
	{
		Key:       Activity,
		Title:     "Activity",
		Procedure: "usp_SQLMonLit_Activity",
		Fields:    []string{"UserConnections", "SystemConnections", "TotalConnections", "ActiveUserSessions", "blocked_processes", "total_deadlocks"},
	},
}

// Keys returns the metric keys in dashboard order.
func Keys() []string {
	keys := make([]string, len(Metrics))
	for i, m := range Metrics {
		keys[i] = m.Key
	}
	return keys
}

// Lookup finds a metric descriptor by key.
func Lookup(key string) (Metric, bool) {
	for _, m := range Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}
