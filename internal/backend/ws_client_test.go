package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/config"
)

var testUpgrader = websocket.Upgrader{}

func newBackendServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// serveCalls answers every request with the scripted result for its
// method, or an error frame for unknown methods.
func serveCalls(results map[string]any) func(conn *websocket.Conn) {
	return func(conn *websocket.Conn) {
		for {
			var req wireRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := map[string]any{"id": req.ID}
			if result, ok := results[req.Method]; ok {
				resp["result"] = result
			} else {
				resp["error"] = map[string]any{"code": 404, "message": "unknown method " + req.Method}
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}
}

func newTestClient(t *testing.T, url string) *WSClient {
	t.Helper()
	cfg := config.BackendConfig{
		URL:                 url,
		RequestTimeout:      2 * time.Second,
		ReconnectMinBackoff: 20 * time.Millisecond,
		ReconnectMaxBackoff: 100 * time.Millisecond,
		EventBuffer:         16,
	}
	c := NewWSClient(cfg, zap.NewNop(), nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitConnected(t *testing.T, c *WSClient) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.IsConnected() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never connected")
}

func nextEventOfKind(t *testing.T, c *WSClient, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatal("events channel closed")
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestDeviceInfoRoundTrip(t *testing.T) {
	url := newBackendServer(t, serveCalls(map[string]any{
		"device.info": map[string]any{
			"connected": true,
			"name":      "JoyCore-FS",
			"firmware":  "1.4.2",
			"port":      "/dev/ttyACM0",
		},
	}))
	c := newTestClient(t, url)
	waitConnected(t, c)

	info, err := c.DeviceInfo(context.Background())
	if err != nil {
		t.Fatalf("device info failed: %v", err)
	}
	if !info.Connected || info.Name != "JoyCore-FS" || info.Firmware != "1.4.2" {
		t.Errorf("unexpected device info: %+v", info)
	}
}

func TestInputMapReturnsRawDocument(t *testing.T) {
	url := newBackendServer(t, serveCalls(map[string]any{
		"inputs.map": map[string]any{
			"schema_version": 1,
			"inputs":         []map[string]any{{"name": "Trigger (pin 4)"}},
		},
	}))
	c := newTestClient(t, url)
	waitConnected(t, c)

	raw, err := c.InputMap(context.Background())
	if err != nil {
		t.Fatalf("input map failed: %v", err)
	}
	var doc struct {
		Inputs []struct {
			Name string `json:"name"`
		} `json:"inputs"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("result is not the raw document: %v", err)
	}
	if len(doc.Inputs) != 1 || doc.Inputs[0].Name != "Trigger (pin 4)" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestBackendErrorSurfacesMessage(t *testing.T) {
	url := newBackendServer(t, serveCalls(map[string]any{}))
	c := newTestClient(t, url)
	waitConnected(t, c)

	err := c.StartMonitoring(context.Background())
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
	if !strings.Contains(err.Error(), "unknown method monitor.start") {
		t.Errorf("expected backend message in error, got %q", err)
	}
}

func TestCallWithoutConnectionFails(t *testing.T) {
	c := newTestClient(t, "ws://127.0.0.1:1/rpc")

	err := c.StartMonitoring(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestPushedEventsDecodeIntoSamples(t *testing.T) {
	mask := uint64(1)<<63 | 5
	url := newBackendServer(t, func(conn *websocket.Conn) {
		frames := []map[string]any{
			{"event": "gpio.state", "data": map[string]any{"mask": mask, "timestamp": 100}},
			{"event": "matrix.state", "data": map[string]any{
				"connections": []map[string]any{{"row": 1, "col": 2, "connected": true}},
				"timestamp":   101,
			}},
			{"event": "shiftreg.state", "data": []map[string]any{
				{"id": 1, "value": 129, "timestamp": 102},
			}},
			{"event": "device.status", "data": map[string]any{"connected": false}},
		}
		for _, frame := range frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		// Hold the connection open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	c := newTestClient(t, url)

	gpio := nextEventOfKind(t, c, EventGpio)
	if gpio.Gpio.Mask != mask || gpio.Gpio.TimestampMs != 100 {
		t.Errorf("unexpected gpio sample: %+v", gpio.Gpio)
	}

	matrix := nextEventOfKind(t, c, EventMatrix)
	if len(matrix.Matrix.Connections) != 1 || !matrix.Matrix.Connections[0].Connected {
		t.Errorf("unexpected matrix sample: %+v", matrix.Matrix)
	}

	shift := nextEventOfKind(t, c, EventShiftReg)
	if len(shift.ShiftReg) != 1 || shift.ShiftReg[0].Value != 129 {
		t.Errorf("unexpected shiftreg batch: %+v", shift.ShiftReg)
	}

	status := nextEventOfKind(t, c, EventDeviceStatus)
	if status.Device.Connected {
		t.Errorf("expected disconnected device status, got %+v", status.Device)
	}
}

func TestReconnectRestoresLink(t *testing.T) {
	var mu sync.Mutex
	conns := 0
	url := newBackendServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()
		if n == 1 {
			return // drop the first link immediately
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	c := newTestClient(t, url)

	up := nextEventOfKind(t, c, EventBackendStatus)
	if !up.Backend.Connected {
		t.Fatal("expected initial connect event")
	}
	down := nextEventOfKind(t, c, EventBackendStatus)
	if down.Backend.Connected {
		t.Fatal("expected disconnect event after server drop")
	}
	again := nextEventOfKind(t, c, EventBackendStatus)
	if !again.Backend.Connected {
		t.Fatal("expected reconnect event")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	url := newBackendServer(t, serveCalls(map[string]any{}))
	c := newTestClient(t, url)
	waitConnected(t, c)

	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if _, ok := <-c.Events(); ok {
		// Drain synthesized status events until the channel closes.
		for range c.Events() {
		}
	}
}
