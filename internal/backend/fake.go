package backend

import (
	"context"
	"sync"

	"github.com/gingerskull/joycore-link/internal/rawstate"
)

// FakeClient is a scripted backend double for tests. Configure the
// exported fields, then feed events through the Emit helpers.
type FakeClient struct {
	Device      DeviceInfo
	DeviceErr   error
	InputMapDoc []byte
	InputMapErr error

	StartMonitoringErr error
	StopMonitoringErr  error

	EventsCh chan Event

	mu                sync.Mutex
	connected         bool
	closed            bool
	startMonitorCalls int
	stopMonitorCalls  int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		EventsCh:  make(chan Event, 64),
		connected: true,
	}
}

func (f *FakeClient) Start(ctx context.Context) error { return nil }

func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.EventsCh)
	}
	return nil
}

func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeClient) SetConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()
}

func (f *FakeClient) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	if f.DeviceErr != nil {
		return nil, f.DeviceErr
	}
	info := f.Device
	return &info, nil
}

func (f *FakeClient) InputMap(ctx context.Context) ([]byte, error) {
	if f.InputMapErr != nil {
		return nil, f.InputMapErr
	}
	return f.InputMapDoc, nil
}

func (f *FakeClient) StartMonitoring(ctx context.Context) error {
	f.mu.Lock()
	f.startMonitorCalls++
	f.mu.Unlock()
	return f.StartMonitoringErr
}

func (f *FakeClient) StopMonitoring(ctx context.Context) error {
	f.mu.Lock()
	f.stopMonitorCalls++
	f.mu.Unlock()
	return f.StopMonitoringErr
}

func (f *FakeClient) Events() <-chan Event { return f.EventsCh }

func (f *FakeClient) StartMonitoringCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startMonitorCalls
}

func (f *FakeClient) StopMonitoringCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopMonitorCalls
}

func (f *FakeClient) EmitGpio(mask uint64, ts int64) {
	f.EventsCh <- Event{Kind: EventGpio, Gpio: &rawstate.GpioSample{Mask: mask, TimestampMs: ts}}
}

func (f *FakeClient) EmitMatrix(conns []rawstate.MatrixConnection, ts int64) {
	f.EventsCh <- Event{Kind: EventMatrix, Matrix: &rawstate.MatrixSample{Connections: conns, TimestampMs: ts}}
}

func (f *FakeClient) EmitShiftRegisters(updates ...rawstate.RegisterUpdate) {
	f.EventsCh <- Event{Kind: EventShiftReg, ShiftReg: updates}
}

func (f *FakeClient) EmitDeviceStatus(info DeviceInfo) {
	f.EventsCh <- Event{Kind: EventDeviceStatus, Device: &info}
}

func (f *FakeClient) EmitBackendStatus(connected bool) {
	f.EventsCh <- Event{Kind: EventBackendStatus, Backend: &BackendStatus{Connected: connected}}
}
