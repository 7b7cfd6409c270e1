package monitor

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gingerskull/joycore-link/internal/rawstate"
)

const streamBuffer = 64

// Streamer fans accepted transitions out to in-process sinks (recorder,
// broker bridge). Sends never block the session loop; a full subscriber
// loses the transition.
type Streamer struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]chan rawstate.Transition
}

func NewStreamer() *Streamer {
	return &Streamer{
		listeners: make(map[uuid.UUID]chan rawstate.Transition),
	}
}

// Subscribe registers a new sink and returns its id and channel.
func (s *Streamer) Subscribe() (uuid.UUID, <-chan rawstate.Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	ch := make(chan rawstate.Transition, streamBuffer)
	s.listeners[id] = ch
	return id, ch
}

// Unsubscribe removes the sink and closes its channel.
func (s *Streamer) Unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.listeners[id]; ok {
		delete(s.listeners, id)
		close(ch)
	}
}

// Publish delivers the transition to every subscriber.
func (s *Streamer) Publish(tr rawstate.Transition) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.listeners {
		select {
		case ch <- tr:
		default:
			// Subscriber not keeping up
		}
	}
}

func (s *Streamer) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}
