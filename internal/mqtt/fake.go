package mqtt

import (
	"sync"

	"github.com/gingerskull/joycore-link/internal/rawstate"
)

// FakePublisher records published messages for tests.
type FakePublisher struct {
	mu          sync.Mutex
	Transitions []rawstate.Transition
	Statuses    []SystemEvent
	Closed      bool

	// PublishErr, if set, is returned by every publish call.
	PublishErr error
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishTransition(tr rawstate.Transition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Transitions = append(f.Transitions, tr)
	return nil
}

func (f *FakePublisher) PublishStatus(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Statuses = append(f.Statuses, event)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// TransitionCount returns how many transitions were published.
func (f *FakePublisher) TransitionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Transitions)
}

// LastTransition returns the most recent transition, if any.
func (f *FakePublisher) LastTransition() (rawstate.Transition, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Transitions) == 0 {
		return rawstate.Transition{}, false
	}
	return f.Transitions[len(f.Transitions)-1], true
}
