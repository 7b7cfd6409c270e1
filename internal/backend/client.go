package backend

import (
	"context"
	"errors"

	"github.com/gingerskull/joycore-link/internal/rawstate"
)

var (
	ErrNotConnected = errors.New("backend not connected")
	ErrClosed       = errors.New("backend client closed")
)

// DeviceInfo describes the JoyCore device currently owned by the backend.
type DeviceInfo struct {
	Connected bool   `json:"connected"`
	Name      string `json:"name,omitempty"`
	Firmware  string `json:"firmware,omitempty"`
	Port      string `json:"port,omitempty"`
}

// BackendStatus reflects the transport link to the backend process
// itself, independent of whether a device is attached.
type BackendStatus struct {
	Connected bool `json:"connected"`
}

type EventKind string

const (
	EventGpio          EventKind = "gpio.state"
	EventMatrix        EventKind = "matrix.state"
	EventShiftReg      EventKind = "shiftreg.state"
	EventDeviceStatus  EventKind = "device.status"
	EventBackendStatus EventKind = "backend.status"
)

// Event is one push notification from the backend. Exactly one payload
// field is set, matching Kind.
type Event struct {
	Kind     EventKind
	Gpio     *rawstate.GpioSample
	Matrix   *rawstate.MatrixSample
	ShiftReg []rawstate.RegisterUpdate
	Device   *DeviceInfo
	Backend  *BackendStatus
}

// Client is the boundary to the external JoyCore backend. The backend
// owns USB transport, device discovery and binary config parsing; this
// side only issues requests and consumes the event stream.
type Client interface {
	// Start begins connection management. Transport problems after Start
	// surface as backend.status events, not as an error here.
	Start(ctx context.Context) error
	Close() error
	IsConnected() bool

	DeviceInfo(ctx context.Context) (*DeviceInfo, error)

	// InputMap returns the raw input map document of the connected
	// device. Callers validate and decode it.
	InputMap(ctx context.Context) ([]byte, error)

	StartMonitoring(ctx context.Context) error
	StopMonitoring(ctx context.Context) error

	// Events delivers pushed samples in arrival order. The channel is
	// closed by Close.
	Events() <-chan Event
}
