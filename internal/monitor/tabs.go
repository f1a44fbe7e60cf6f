package monitor

import "github.com/rileyhilliard/sqlmon/internal/source"

// Tab is one dashboard tab: a metric and the fields shown for it.
type Tab struct {
	Key    string   `json:"key"`
	Title  string   `json:"title"`
	Fields []string `json:"fields"`
}

// Row is one sample laid out for a tab: the stamp then one display value
// per tab field.
type Row struct {
	Stamp  string   `json:"timestamp"`
	Values []string `json:"values"`
}

// Tabs lists the dashboard tabs in display order.
var Tabs = buildTabs()

func buildTabs() []Tab {
	tabs := make([]Tab, 0, len(source.Metrics))
	for _, m := range source.Metrics {
		tabs = append(tabs, Tab{Key: m.Key, Title: m.Title, Fields: m.Fields})
	}
	return tabs
}

// TabFor returns the tab for a metric key.
func TabFor(key string) (Tab, bool) {
	for _, t := range Tabs {
		if t.Key == key {
			return t, true
		}
	}
	return Tab{}, false
}

// BuildTabRows formats samples for a tab, newest first. Fields missing from
// a sample show as "N/A".
func BuildTabRows(tab Tab, samples []Sample) []Row {
	rows := make([]Row, 0, len(samples))
	for _, s := range samples {
		values := make([]string, len(tab.Fields))
		for i, field := range tab.Fields {
			values[i] = s.Record.Format(field)
		}
		rows = append(rows, Row{Stamp: s.Stamp, Values: values})
	}
	return rows
}
