package websocket

import (
	"github.com/gingerskull/joycore-link/internal/backend"
	"github.com/gingerskull/joycore-link/internal/monitor"
	"github.com/gingerskull/joycore-link/internal/settings"
)

// Broadcaster adapts the hub to the monitor session's broadcast interface
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func (b *Broadcaster) BroadcastInputState(update monitor.InputStateUpdate) {
	b.hub.Broadcast(NewMessage(MessageTypeInputState, update))
}

func (b *Broadcaster) BroadcastMonitorStatus(status monitor.Status) {
	b.hub.Broadcast(NewMessage(MessageTypeMonitorStatus, status))
}

func (b *Broadcaster) BroadcastDeviceStatus(info backend.DeviceInfo) {
	b.hub.Broadcast(NewMessage(MessageTypeDeviceStatus, info))
}

func (b *Broadcaster) BroadcastPullModes(pm settings.PullModes) {
	b.hub.Broadcast(NewMessage(MessageTypePullModes, pm))
}

// SessionSnapshot builds the initial message burst for new clients
type SessionSnapshot struct {
	Session *monitor.Session
	Store   *settings.Store
}

func (s SessionSnapshot) SnapshotMessages() []Message {
	msgs := []Message{
		NewMessage(MessageTypeMonitorStatus, s.Session.Status()),
		NewMessage(MessageTypePullModes, s.Store.PullModes()),
	}
	if dev := s.Session.Device(); dev.Name != "" || dev.Connected {
		msgs = append(msgs, NewMessage(MessageTypeDeviceStatus, dev))
	}
	return msgs
}
