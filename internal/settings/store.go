package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gingerskull/joycore-link/internal/rawstate"
	"go.uber.org/zap"
)

// KeyPullModes is the namespaced key both pull policies are persisted
// under. The value layout is shared with the configurator UI and must not
// change.
const KeyPullModes = "inputMonitor.pullModes"

// PullModes carries the per-domain pull policies as persisted.
type PullModes struct {
	Gpio     rawstate.PullPolicy `json:"gpioPullMode"`
	ShiftReg rawstate.PullPolicy `json:"shiftRegPullMode"`
}

// DefaultPullModes returns the factory policies. Pull-up is the resting
// default for JoyCore builds.
func DefaultPullModes() PullModes {
	return PullModes{Gpio: rawstate.PullUp, ShiftReg: rawstate.PullUp}
}

// Valid reports whether both policies are known values.
func (pm PullModes) Valid() bool {
	return pm.Gpio.Valid() && pm.ShiftReg.Valid()
}

// Store is a JSON-file-backed key-value settings store. Values persist on
// every Set; writes go through a temp file rename so a crash never leaves
// a half-written settings file.
type Store struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	values map[string]json.RawMessage

	subMu       sync.Mutex
	subscribers []chan PullModes
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		values: make(map[string]json.RawMessage),
	}
}

// Load reads the settings file. A missing file is not an error: the store
// starts empty and falls back to defaults. Unreadable pull modes are
// normalized to defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("Settings file not found, using defaults",
			zap.String("path", s.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	// Stale or hand-edited pull modes must never leak invalid policy
	// values into the resolver.
	if raw, ok := s.values[KeyPullModes]; ok {
		var pm PullModes
		if err := json.Unmarshal(raw, &pm); err != nil || !pm.Valid() {
			s.logger.Warn("Invalid persisted pull modes, resetting to defaults",
				zap.String("key", KeyPullModes))
			delete(s.values, KeyPullModes)
		}
	}

	s.logger.Info("Settings loaded",
		zap.String("path", s.path),
		zap.Int("keys", len(s.values)))

	return nil
}

// Get unmarshals the value stored under key into out. The bool reports
// whether the key was present.
func (s *Store) Get(key string, out any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key and persists the whole store.
func (s *Store) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = raw
	return s.persistLocked()
}

// PullModes returns the persisted policies, or defaults when unset.
func (s *Store) PullModes() PullModes {
	pm := DefaultPullModes()
	if _, err := s.Get(KeyPullModes, &pm); err != nil {
		s.logger.Warn("Failed to decode pull modes, using defaults", zap.Error(err))
		return DefaultPullModes()
	}
	if !pm.Valid() {
		return DefaultPullModes()
	}
	return pm
}

// SetPullModes validates, persists and announces new pull policies.
func (s *Store) SetPullModes(pm PullModes) error {
	if !pm.Valid() {
		return fmt.Errorf("invalid pull modes: gpio=%q shift_reg=%q", pm.Gpio, pm.ShiftReg)
	}

	if err := s.Set(KeyPullModes, pm); err != nil {
		return err
	}

	s.logger.Info("Pull modes updated",
		zap.String("gpio", string(pm.Gpio)),
		zap.String("shift_reg", string(pm.ShiftReg)))

	s.notify(pm)
	return nil
}

// SubscribePullModes returns a channel receiving every pull mode change.
func (s *Store) SubscribePullModes() chan PullModes {
	ch := make(chan PullModes, 4)

	s.subMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subMu.Unlock()

	return ch
}

// UnsubscribePullModes removes and closes a subscription channel.
func (s *Store) UnsubscribePullModes(ch chan PullModes) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

func (s *Store) notify(pm PullModes) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, sub := range s.subscribers {
		select {
		case sub <- pm:
		default:
			// Channel full, skip
		}
	}
}

// persistLocked writes the store to disk. Caller holds the write lock.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close settings file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	return nil
}
