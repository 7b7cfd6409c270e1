package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/auth"
)

// SnapshotProvider supplies the messages a newly registered client receives
// so it starts out with current state instead of waiting for the next change.
type SnapshotProvider interface {
	SnapshotMessages() []Message
}

// HubStats receives client gauge updates
type HubStats interface {
	SetWSClients(n int)
}

type nopHubStats struct{}

func (nopHubStats) SetWSClients(int) {}

// Hub maintains active WebSocket clients and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe operations
	mu sync.RWMutex

	logger *zap.Logger

	// Auth service, nil or disabled means open access
	authService *auth.Service

	stats HubStats

	// Snapshot source for freshly registered clients (optional)
	snapshotProvider SnapshotProvider

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger, authService *auth.Service, stats HubStats) *Hub {
	if stats == nil {
		stats = nopHubStats{}
	}
	return &Hub{
		broadcast:   make(chan Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		logger:      logger,
		authService: authService,
		stats:       stats,
		stopChan:    make(chan struct{}),
	}
}

// SetSnapshotProvider sets the source of initial state for new clients
func (h *Hub) SetSnapshotProvider(provider SnapshotProvider) {
	h.snapshotProvider = provider
}

func (h *Hub) authRequired() bool {
	return h.authService != nil && h.authService.Enabled()
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket Hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.stats.SetWSClients(count)
			h.logger.Info("WebSocket client registered",
				zap.String("remote_addr", client.conn.RemoteAddr().String()),
				zap.Int("total_clients", count))
			h.sendSnapshot(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("WebSocket client unregistered",
					zap.String("remote_addr", client.conn.RemoteAddr().String()),
					zap.Int("total_clients", len(h.clients)))
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.stats.SetWSClients(count)

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("Failed to marshal broadcast message",
					zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
					// Message sent successfully
				default:
					// Client send channel full, unregister slow/dead client
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client send buffer full, unregistering",
						zap.String("remote_addr", client.conn.RemoteAddr().String()))
				}
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.stats.SetWSClients(count)

		case <-h.stopChan:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.stats.SetWSClients(0)
			h.logger.Info("WebSocket Hub stopped")
			return
		}
	}
}

// Stop shuts the hub down and disconnects all clients
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// sendSnapshot pushes the current state burst to a single client
func (h *Hub) sendSnapshot(client *Client) {
	if h.snapshotProvider == nil {
		return
	}
	for _, msg := range h.snapshotProvider.SnapshotMessages() {
		data, err := json.Marshal(msg)
		if err != nil {
			h.logger.Error("Failed to marshal snapshot message", zap.Error(err))
			continue
		}
		select {
		case client.send <- data:
		default:
			return
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
		// Message queued for broadcast
	default:
		h.logger.Warn("Hub broadcast channel full, message dropped",
			zap.String("message_type", string(msg.Type)))
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
