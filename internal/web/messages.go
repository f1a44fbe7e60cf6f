package web

import (
	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/monitor"
)

// Server -> browser message types.
const (
	MessageFrame = "frame"
	MessageError = "error"
)

// ServerMessage is pushed to the browser over the websocket.
type ServerMessage struct {
	Type    string     `json:"type"`
	Frame   *FrameView `json:"frame,omitempty"`
	Message string     `json:"message,omitempty"`
}

// FrameView is a monitor frame laid out per tab for the page.
type FrameView struct {
	Seq         uint64        `json:"seq"`
	Instance    string        `json:"instance"`
	Phase       monitor.Phase `json:"phase"`
	Active      bool          `json:"active"`
	AutoRefresh bool          `json:"auto_refresh"`
	Status      string        `json:"status"`
	Spinner     string        `json:"spinner"`
	LastUpdate  string        `json:"last_update,omitempty"`
	ViewReset   bool          `json:"view_reset,omitempty"`
	Tabs        []TabView     `json:"tabs"`
}

// TabView is one tab's rows, newest first.
type TabView struct {
	Key    string        `json:"key"`
	Title  string        `json:"title"`
	Fields []string      `json:"fields"`
	Rows   []monitor.Row `json:"rows"`
}

// NewFrameView lays a frame out over the fixed tab set.
func NewFrameView(f monitor.Frame) *FrameView {
	v := &FrameView{
		Seq:         f.Seq,
		Instance:    f.Instance,
		Phase:       f.Phase,
		Active:      f.Active,
		AutoRefresh: f.AutoRefresh,
		Status:      f.Status,
		Spinner:     f.Spinner,
		LastUpdate:  f.LastUpdate,
		ViewReset:   f.ViewReset,
		Tabs:        make([]TabView, 0, len(monitor.Tabs)),
	}
	for _, tab := range monitor.Tabs {
		v.Tabs = append(v.Tabs, TabView{
			Key:    tab.Key,
			Title:  tab.Title,
			Fields: tab.Fields,
			Rows:   monitor.BuildTabRows(tab, f.Histories[tab.Key]),
		})
	}
	return v
}

// InstanceView is the public description of a configured instance.
// Credentials are never exposed.
type InstanceView struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Tunnel   string `json:"ssh_tunnel,omitempty"`
}

// InstancesResponse is the body of GET /api/instances.
type InstancesResponse struct {
	Instances    []InstanceView `json:"instances"`
	Tabs         []monitor.Tab  `json:"tabs"`
	PollInterval string         `json:"poll_interval"`
}

func newInstancesResponse(cfg *config.Config) InstancesResponse {
	resp := InstancesResponse{
		Instances:    make([]InstanceView, 0, len(cfg.Instances)),
		Tabs:         monitor.Tabs,
		PollInterval: cfg.Dashboard.PollInterval.String(),
	}
	for _, inst := range cfg.Instances {
		resp.Instances = append(resp.Instances, InstanceView{
			Name:     inst.Name,
			Host:     inst.Host,
			Port:     inst.Port,
			Database: inst.Database,
			Tunnel:   inst.SSHTunnel,
		})
	}
	return resp
}
