package websocket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/auth"
	"github.com/gingerskull/joycore-link/internal/config"
)

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

type countingStats struct {
	mu   sync.Mutex
	last int
}

func (s *countingStats) SetWSClients(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = n
}

func (s *countingStats) clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type staticSnapshot struct {
	msgs []Message
}

func (s staticSnapshot) SnapshotMessages() []Message { return s.msgs }

func newHubFixture(t *testing.T, svc *auth.Service, stats HubStats) (*Hub, string) {
	t.Helper()

	hub := NewHub(zap.NewNop(), svc, stats)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *wsReader {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })

	return &wsReader{conn: conn}
}

// wsReader splits coalesced frames back into individual messages
type wsReader struct {
	conn  *websocket.Conn
	queue [][]byte
}

func (r *wsReader) next(t *testing.T) Message {
	t.Helper()

	for len(r.queue) == 0 {
		r.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		for _, part := range bytes.Split(data, []byte{'\n'}) {
			if len(part) > 0 {
				r.queue = append(r.queue, part)
			}
		}
	}

	head := r.queue[0]
	r.queue = r.queue[1:]

	var msg Message
	if err := json.Unmarshal(head, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", head, err)
	}
	return msg
}

func (r *wsReader) nextOfType(t *testing.T, typ MessageType) Message {
	t.Helper()

	for i := 0; i < 20; i++ {
		msg := r.next(t)
		if msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message received", typ)
	return Message{}
}

func enabledAuthService(t *testing.T, accessKey string) *auth.Service {
	t.Helper()

	hash, err := auth.NewKeyHasher().HashKey(accessKey)
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	return auth.NewService(config.AuthConfig{
		Enabled:       true,
		AccessKeyHash: hash,
		SessionTTL:    time.Hour,
	}, zap.NewNop())
}

func TestBroadcastReachesAllClients(t *testing.T) {
	stats := &countingStats{}
	hub, url := newHubFixture(t, nil, stats)

	first := dial(t, url)
	second := dial(t, url)

	waitUntil(t, func() bool { return hub.GetClientCount() == 2 }, "clients did not register")
	if stats.clients() != 2 {
		t.Errorf("stats clients = %d, want 2", stats.clients())
	}

	hub.Broadcast(NewSystemStatusMessage("running", "starting", ""))

	for _, reader := range []*wsReader{first, second} {
		msg := reader.nextOfType(t, MessageTypeSystemStatus)
		data, ok := msg.Data.(map[string]interface{})
		if !ok {
			t.Fatalf("unexpected data payload %T", msg.Data)
		}
		if data["state"] != "running" {
			t.Errorf("state = %v, want running", data["state"])
		}
		if data["previous_state"] != "starting" {
			t.Errorf("previous_state = %v, want starting", data["previous_state"])
		}
	}
}

func TestSnapshotSentOnRegister(t *testing.T) {
	hub, url := newHubFixture(t, nil, nil)
	hub.SetSnapshotProvider(staticSnapshot{msgs: []Message{
		NewSystemStatusMessage("running", "", ""),
	}})

	reader := dial(t, url)

	msg := reader.nextOfType(t, MessageTypeSystemStatus)
	data := msg.Data.(map[string]interface{})
	if data["state"] != "running" {
		t.Errorf("snapshot state = %v, want running", data["state"])
	}
}

func TestAuthHandshakeGatesRegistration(t *testing.T) {
	svc := enabledAuthService(t, "test-key")
	hub, url := newHubFixture(t, svc, nil)

	reader := dial(t, url)

	// No registration before the handshake
	time.Sleep(50 * time.Millisecond)
	if hub.GetClientCount() != 0 {
		t.Fatalf("client registered before auth, count = %d", hub.GetClientCount())
	}

	token, _, err := svc.CreateSession("test-key")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := reader.conn.WriteJSON(map[string]string{"type": "auth", "token": token}); err != nil {
		t.Fatalf("write auth: %v", err)
	}

	reader.nextOfType(t, MessageTypeAuthSuccess)
	waitUntil(t, func() bool { return hub.GetClientCount() == 1 }, "client did not register after auth")

	hub.Broadcast(NewSystemStatusMessage("running", "", ""))
	reader.nextOfType(t, MessageTypeSystemStatus)
}

func TestAuthRejectsBadToken(t *testing.T) {
	svc := enabledAuthService(t, "test-key")
	hub, url := newHubFixture(t, svc, nil)

	reader := dial(t, url)
	if err := reader.conn.WriteJSON(map[string]string{"type": "auth", "token": "garbage"}); err != nil {
		t.Fatalf("write auth: %v", err)
	}

	msg := reader.nextOfType(t, MessageTypeAuthFailed)
	data := msg.Data.(map[string]interface{})
	if data["reason"] != "Invalid or expired token" {
		t.Errorf("reason = %v", data["reason"])
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.GetClientCount())
	}
}

func TestFirstMessageMustBeAuth(t *testing.T) {
	svc := enabledAuthService(t, "test-key")
	_, url := newHubFixture(t, svc, nil)

	reader := dial(t, url)
	if err := reader.conn.WriteJSON(map[string]string{"type": "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := reader.nextOfType(t, MessageTypeAuthFailed)
	data := msg.Data.(map[string]interface{})
	if data["reason"] != "First message must be authentication" {
		t.Errorf("reason = %v", data["reason"])
	}
}

func TestStopDisconnectsClients(t *testing.T) {
	stats := &countingStats{}
	hub, url := newHubFixture(t, nil, stats)

	reader := dial(t, url)
	waitUntil(t, func() bool { return hub.GetClientCount() == 1 }, "client did not register")

	hub.Stop()

	// Server closes the connection, subsequent reads fail
	reader.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 10; i++ {
		if _, _, err := reader.conn.ReadMessage(); err != nil {
			return
		}
	}
	t.Error("connection still open after hub stop")
}
