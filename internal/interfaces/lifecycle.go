package interfaces

import (
	"context"

	"github.com/gingerskull/joycore-link/internal/backend"
	"github.com/gingerskull/joycore-link/internal/boards"
	"github.com/gingerskull/joycore-link/internal/config"
	"github.com/gingerskull/joycore-link/internal/diag"
	"github.com/gingerskull/joycore-link/internal/metrics"
	"github.com/gingerskull/joycore-link/internal/monitor"
	"github.com/gingerskull/joycore-link/internal/settings"
	"github.com/gingerskull/joycore-link/internal/storage"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	BackendConnected bool   `json:"backend_connected"`
	DeviceConnected  bool   `json:"device_connected"`
	Monitoring       bool   `json:"monitoring"`
	InputCount       int    `json:"input_count"`
	WSClients        int    `json:"ws_clients"`
	Error            string `json:"error,omitempty"`
}

// LifecycleManager is the system facade the API layer works against.
// Storage returns nil when the transition recorder is disabled.
type LifecycleManager interface {
	Config() *config.Config
	Backend() backend.Client
	Session() *monitor.Session
	Settings() *settings.Store
	Boards() *boards.Catalog
	Storage() *storage.PostgresClient
	Diagnostics() diag.Diagnostics
	Metrics() *metrics.Metrics
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
