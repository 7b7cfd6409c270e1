package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/config"
	"github.com/gingerskull/joycore-link/internal/rawstate"
)

// RPC vocabulary of the backend process.
const (
	methodDeviceInfo   = "device.info"
	methodInputMap     = "inputs.map"
	methodMonitorStart = "monitor.start"
	methodMonitorStop  = "monitor.stop"
)

const writeWait = 10 * time.Second

type wireRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *wireError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.Code, e.Message)
}

// wireFrame is the union of everything the backend sends: responses
// carry an id, pushed events carry an event name.
type wireFrame struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// LinkStats receives link-level counters. *metrics.Metrics satisfies it.
type LinkStats interface {
	BackendReconnected()
	EventDropped()
}

type nopStats struct{}

func (nopStats) BackendReconnected() {}
func (nopStats) EventDropped()       {}

// WSClient talks to the backend over a single WebSocket connection and
// keeps redialing with capped backoff while started. Requests are
// correlated to responses by UUID.
type WSClient struct {
	cfg    config.BackendConfig
	logger *zap.Logger
	stats  LinkStats

	mu            sync.Mutex
	conn          *websocket.Conn
	started       bool
	everConnected bool
	pending       map[string]chan wireFrame

	writeMu sync.Mutex

	events    chan Event
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewWSClient(cfg config.BackendConfig, logger *zap.Logger, stats LinkStats) *WSClient {
	if stats == nil {
		stats = nopStats{}
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &WSClient{
		cfg:      cfg,
		logger:   logger,
		stats:    stats,
		pending:  make(map[string]chan wireFrame),
		events:   make(chan Event, buffer),
		stopChan: make(chan struct{}),
	}
}

func (c *WSClient) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.supervise(ctx)

	c.logger.Info("Backend client started", zap.String("url", c.cfg.URL))
	return nil
}

func (c *WSClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
		c.wg.Wait()
		close(c.events)
		c.logger.Info("Backend client closed")
	})
	return nil
}

func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *WSClient) Events() <-chan Event {
	return c.events
}

func (c *WSClient) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := c.call(ctx, methodDeviceInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *WSClient) InputMap(ctx context.Context) ([]byte, error) {
	var raw json.RawMessage
	if err := c.call(ctx, methodInputMap, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *WSClient) StartMonitoring(ctx context.Context) error {
	return c.call(ctx, methodMonitorStart, nil, nil)
}

func (c *WSClient) StopMonitoring(ctx context.Context) error {
	return c.call(ctx, methodMonitorStop, nil, nil)
}

// supervise owns the connection for the client's whole lifetime:
// dial, read until failure, reconnect with capped backoff.
func (c *WSClient) supervise(ctx context.Context) {
	defer c.wg.Done()

	backoff := c.cfg.ReconnectMinBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	maxBackoff := c.cfg.ReconnectMaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 15 * time.Second
	}
	wait := backoff

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			c.logger.Warn("Backend dial failed",
				zap.String("url", c.cfg.URL),
				zap.Duration("retry_in", wait),
				zap.Error(err))
			select {
			case <-c.stopChan:
				return
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > maxBackoff {
				wait = maxBackoff
			}
			continue
		}

		wait = backoff
		reconnected := c.attach(conn)
		if reconnected {
			c.stats.BackendReconnected()
		}
		c.logger.Info("Backend connected", zap.String("url", c.cfg.URL))
		c.pushEvent(Event{Kind: EventBackendStatus, Backend: &BackendStatus{Connected: true}})

		c.readLoop(conn)

		c.detach(conn)
		c.pushEvent(Event{Kind: EventBackendStatus, Backend: &BackendStatus{Connected: false}})
		c.logger.Warn("Backend connection lost", zap.String("url", c.cfg.URL))
	}
}

func (c *WSClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame wireFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("Malformed backend frame", zap.Error(err))
			continue
		}

		switch {
		case frame.ID != "":
			c.resolve(frame)
		case frame.Event != "":
			c.handleEvent(frame)
		}
	}
}

func (c *WSClient) handleEvent(frame wireFrame) {
	switch EventKind(frame.Event) {
	case EventGpio:
		var sample rawstate.GpioSample
		if err := json.Unmarshal(frame.Data, &sample); err != nil {
			c.logger.Warn("Bad gpio.state payload", zap.Error(err))
			return
		}
		c.pushEvent(Event{Kind: EventGpio, Gpio: &sample})
	case EventMatrix:
		var sample rawstate.MatrixSample
		if err := json.Unmarshal(frame.Data, &sample); err != nil {
			c.logger.Warn("Bad matrix.state payload", zap.Error(err))
			return
		}
		c.pushEvent(Event{Kind: EventMatrix, Matrix: &sample})
	case EventShiftReg:
		var updates []rawstate.RegisterUpdate
		if err := json.Unmarshal(frame.Data, &updates); err != nil {
			c.logger.Warn("Bad shiftreg.state payload", zap.Error(err))
			return
		}
		c.pushEvent(Event{Kind: EventShiftReg, ShiftReg: updates})
	case EventDeviceStatus:
		var info DeviceInfo
		if err := json.Unmarshal(frame.Data, &info); err != nil {
			c.logger.Warn("Bad device.status payload", zap.Error(err))
			return
		}
		c.pushEvent(Event{Kind: EventDeviceStatus, Device: &info})
	default:
		c.logger.Debug("Ignoring unknown backend event", zap.String("event", frame.Event))
	}
}

// pushEvent never blocks the read loop. Buffer full: shed the newest
// sample instead of reordering the stream.
func (c *WSClient) pushEvent(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.stats.EventDropped()
		c.logger.Warn("Event buffer full, dropping sample", zap.String("kind", string(ev.Kind)))
	}
}

func (c *WSClient) call(ctx context.Context, method string, params any, out any) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	id := uuid.New().String()
	ch := make(chan wireFrame, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	data, err := json.Marshal(wireRequest{ID: id, Method: method, Params: params})
	if err != nil {
		c.forget(id)
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	timeout := c.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-ch:
		if frame.Error != nil {
			return frame.Error
		}
		if out != nil && frame.Result != nil {
			if err := json.Unmarshal(frame.Result, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		c.forget(id)
		return fmt.Errorf("%s timed out after %s", method, timeout)
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case <-c.stopChan:
		c.forget(id)
		return ErrClosed
	}
}

func (c *WSClient) resolve(frame wireFrame) {
	c.mu.Lock()
	ch, ok := c.pending[frame.ID]
	if ok {
		delete(c.pending, frame.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- frame
	}
}

func (c *WSClient) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// attach installs the fresh connection and reports whether this is a
// reconnect rather than the first link.
func (c *WSClient) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	reconnected := c.everConnected
	c.everConnected = true
	return reconnected
}

// detach clears the connection and fails every in-flight call.
func (c *WSClient) detach(conn *websocket.Conn) {
	conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[string]chan wireFrame)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- wireFrame{Error: &wireError{Code: -1, Message: "backend connection lost"}}
	}
}
