package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/backend"
	"github.com/gingerskull/joycore-link/internal/config"
	"github.com/gingerskull/joycore-link/internal/diag"
	"github.com/gingerskull/joycore-link/internal/inputs"
	"github.com/gingerskull/joycore-link/internal/rawstate"
	"github.com/gingerskull/joycore-link/internal/settings"
)

// Status is the user-visible monitoring state.
type Status struct {
	Monitoring       bool   `json:"monitoring"`
	BackendConnected bool   `json:"backend_connected"`
	DeviceConnected  bool   `json:"device_connected"`
	InputCount       int    `json:"input_count"`
	LastError        string `json:"last_error,omitempty"`
}

// StateSnapshot is the merged current state served over REST.
type StateSnapshot struct {
	Monitoring bool               `json:"monitoring"`
	PullModes  settings.PullModes `json:"pull_modes"`
	Inputs     []LogicalState     `json:"inputs"`
	Raw        RawSnapshot        `json:"raw"`
}

type RawSnapshot struct {
	GpioMask  string                      `json:"gpio_mask,omitempty"`
	Registers []rawstate.RegisterState    `json:"registers"`
	Matrix    []rawstate.MatrixConnection `json:"matrix"`
}

// Broadcaster pushes live updates to connected UI clients. The
// websocket hub satisfies it through an adapter.
type Broadcaster interface {
	BroadcastInputState(update InputStateUpdate)
	BroadcastMonitorStatus(status Status)
	BroadcastDeviceStatus(info backend.DeviceInfo)
	BroadcastPullModes(pm settings.PullModes)
}

// NopBroadcaster drops every broadcast.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastInputState(InputStateUpdate)     {}
func (NopBroadcaster) BroadcastMonitorStatus(Status)            {}
func (NopBroadcaster) BroadcastDeviceStatus(backend.DeviceInfo) {}
func (NopBroadcaster) BroadcastPullModes(settings.PullModes)    {}

// SessionStats receives interpreter counters. *metrics.Metrics
// satisfies it.
type SessionStats interface {
	SampleReceived(domain rawstate.Domain)
	SampleAccepted(domain rawstate.Domain)
	SampleSuppressed(domain rawstate.Domain)
	DecodeFallback()
	SetMonitorActive(on bool)
}

type nopSessionStats struct{}

func (nopSessionStats) SampleReceived(rawstate.Domain)   {}
func (nopSessionStats) SampleAccepted(rawstate.Domain)   {}
func (nopSessionStats) SampleSuppressed(rawstate.Domain) {}
func (nopSessionStats) DecodeFallback()                  {}
func (nopSessionStats) SetMonitorActive(bool)            {}

// Session owns the raw input interpretation pipeline: one goroutine
// consumes backend events in arrival order, runs them through the
// change detector and state table, and fans accepted transitions out
// to the hub and the streamer.
type Session struct {
	client      backend.Client
	store       *settings.Store
	streamer    *Streamer
	broadcaster Broadcaster
	validator   *inputs.Validator
	loader      *inputs.Loader
	cfg         config.MonitorConfig
	stats       SessionStats
	diag        diag.Diagnostics
	logger      *zap.Logger

	// limitCheck, when set, reports identities exceeding the active
	// board's wiring limits. Warnings only, resolution is unaffected.
	limitCheck func(inputs.Identity) []string

	mu         sync.RWMutex
	monitoring bool
	backendUp  bool
	device     backend.DeviceInfo
	lastError  string
	detector   *rawstate.Detector
	table      *Table

	statusMu        sync.Mutex
	statusListeners []chan Status

	pullCh    chan settings.PullModes
	stopChan  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewSession(
	client backend.Client,
	store *settings.Store,
	streamer *Streamer,
	broadcaster Broadcaster,
	validator *inputs.Validator,
	loader *inputs.Loader,
	cfg config.MonitorConfig,
	stats SessionStats,
	diagnostics diag.Diagnostics,
	logger *zap.Logger,
) *Session {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	if stats == nil {
		stats = nopSessionStats{}
	}
	if diagnostics == nil {
		diagnostics = diag.Nop{}
	}
	return &Session{
		client:      client,
		store:       store,
		streamer:    streamer,
		broadcaster: broadcaster,
		validator:   validator,
		loader:      loader,
		cfg:         cfg,
		stats:       stats,
		diag:        diagnostics,
		logger:      logger,
		detector:    rawstate.NewDetector(),
		table:       NewTable(store.PullModes()),
		stopChan:    make(chan struct{}),
	}
}

// Run starts the event loop and the pull-mode watcher. Idempotent.
func (s *Session) Run() {
	s.startOnce.Do(func() {
		s.pullCh = s.store.SubscribePullModes()
		s.wg.Add(2)
		go s.eventLoop()
		go s.pullLoop()
		s.logger.Info("Monitoring session loop started")
	})
}

// Close stops the loops and waits for them. Idempotent.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.pullCh != nil {
			s.store.UnsubscribePullModes(s.pullCh)
		}
		s.wg.Wait()
		s.logger.Info("Monitoring session loop stopped")
	})
}

// SetLimitChecker installs the active board's wiring check applied to
// every decoded identity. Install before the session runs.
func (s *Session) SetLimitChecker(check func(inputs.Identity) []string) {
	s.mu.Lock()
	s.limitCheck = check
	s.mu.Unlock()
}

// StartMonitoring begins interpretation. Calling it while already
// monitoring is a silent no-op. The detector memos are reset first so
// the next sample of every domain is always accepted.
func (s *Session) StartMonitoring(ctx context.Context) error {
	s.mu.Lock()
	if s.monitoring {
		s.mu.Unlock()
		s.logger.Debug("Monitoring already active, ignoring start")
		return nil
	}
	s.detector.Reset()
	s.mu.Unlock()

	identities, mapErr := s.loadIdentities(ctx)
	s.mu.Lock()
	if mapErr != nil {
		// Raw state still flows without a decoded map.
		s.lastError = fmt.Sprintf("input map unavailable: %v", mapErr)
	} else {
		s.table.SetIdentities(identities)
		s.lastError = ""
	}
	s.mu.Unlock()
	if mapErr != nil {
		s.diag.ObserveError("inputs.map", mapErr)
		s.logger.Warn("Proceeding without input map", zap.Error(mapErr))
	}

	if err := s.client.StartMonitoring(ctx); err != nil {
		s.diag.ObserveError("monitor.start", err)
		s.setError(fmt.Sprintf("failed to start monitoring: %v", err))
		s.publishStatus()
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	s.mu.Lock()
	s.monitoring = true
	s.mu.Unlock()

	s.stats.SetMonitorActive(true)
	s.logger.Info("Monitoring started")
	s.publishStatus()
	return nil
}

// StopMonitoring halts interpretation. Idempotent; the local session is
// stopped even when the backend call fails.
func (s *Session) StopMonitoring(ctx context.Context) error {
	s.mu.Lock()
	if !s.monitoring {
		s.mu.Unlock()
		return nil
	}
	s.monitoring = false
	s.mu.Unlock()

	s.stats.SetMonitorActive(false)
	if err := s.client.StopMonitoring(ctx); err != nil {
		s.diag.ObserveError("monitor.stop", err)
		s.logger.Warn("Backend stop failed", zap.Error(err))
	}

	s.logger.Info("Monitoring stopped")
	s.publishStatus()
	return nil
}

// Restart stops and starts again, clearing all duplicate-detection
// memos on the way.
func (s *Session) Restart(ctx context.Context) error {
	if err := s.StopMonitoring(ctx); err != nil {
		return err
	}
	return s.StartMonitoring(ctx)
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	grouped := s.table.Identities()
	return Status{
		Monitoring:       s.monitoring,
		BackendConnected: s.backendUp,
		DeviceConnected:  s.device.Connected,
		InputCount:       len(grouped.Direct) + len(grouped.ShiftReg) + len(grouped.Matrix),
		LastError:        s.lastError,
	}
}

// Snapshot returns the merged current logical state table.
func (s *Session) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StateSnapshot{
		Monitoring: s.monitoring,
		PullModes:  s.table.PullModes(),
		Inputs:     s.table.SnapshotAll(),
		Raw: RawSnapshot{
			Registers: s.table.RawRegisters(),
			Matrix:    s.table.RawMatrix(),
		},
	}
	if mask, ok := s.table.RawGpio(); ok {
		snap.Raw.GpioMask = rawstate.GpioSignature(mask)
	}
	return snap
}

// Device returns the last device status pushed by the backend.
func (s *Session) Device() backend.DeviceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

// EnsureIdentities returns the grouped identity table, loading the
// input map first if none is installed yet.
func (s *Session) EnsureIdentities(ctx context.Context) (inputs.Grouped, error) {
	s.mu.RLock()
	grouped := s.table.Identities()
	s.mu.RUnlock()
	if len(grouped.Direct)+len(grouped.ShiftReg)+len(grouped.Matrix) > 0 {
		return grouped, nil
	}

	identities, err := s.loadIdentities(ctx)
	if err != nil {
		return inputs.Grouped{}, err
	}

	s.mu.Lock()
	s.table.SetIdentities(identities)
	grouped = s.table.Identities()
	s.mu.Unlock()
	return grouped, nil
}

// SubscribeStatus registers a listener for status changes.
func (s *Session) SubscribeStatus() chan Status {
	ch := make(chan Status, 4)
	s.statusMu.Lock()
	s.statusListeners = append(s.statusListeners, ch)
	s.statusMu.Unlock()
	return ch
}

func (s *Session) UnsubscribeStatus(ch chan Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	for i, listener := range s.statusListeners {
		if listener == ch {
			s.statusListeners = append(s.statusListeners[:i], s.statusListeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (s *Session) eventLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		case ev, ok := <-s.client.Events():
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Session) pullLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		case pm, ok := <-s.pullCh:
			if !ok {
				return
			}
			s.applyPullModes(pm)
		}
	}
}

func (s *Session) handleEvent(ev backend.Event) {
	switch ev.Kind {
	case backend.EventGpio:
		s.handleGpio(*ev.Gpio)
	case backend.EventMatrix:
		s.handleMatrix(*ev.Matrix)
	case backend.EventShiftReg:
		s.handleShiftRegisters(ev.ShiftReg)
	case backend.EventDeviceStatus:
		s.handleDeviceStatus(*ev.Device)
	case backend.EventBackendStatus:
		s.handleBackendStatus(*ev.Backend)
	}
}

func (s *Session) handleGpio(sample rawstate.GpioSample) {
	s.mu.Lock()
	if !s.monitoring {
		s.mu.Unlock()
		return
	}
	s.stats.SampleReceived(rawstate.DomainGPIO)
	if !s.detector.AcceptGpio(sample) {
		s.mu.Unlock()
		s.stats.SampleSuppressed(rawstate.DomainGPIO)
		s.diag.ObserveSample(string(rawstate.DomainGPIO), false)
		return
	}
	s.table.ApplyGpio(sample.Mask)
	logical := s.table.LogicalForDomain(rawstate.DomainGPIO)
	s.mu.Unlock()

	s.stats.SampleAccepted(rawstate.DomainGPIO)
	s.diag.ObserveSample(string(rawstate.DomainGPIO), true)

	s.broadcaster.BroadcastInputState(InputStateUpdate{
		Domain:      rawstate.DomainGPIO,
		Raw:         sample,
		Logical:     logical,
		TimestampMs: sample.TimestampMs,
	})
	s.streamer.Publish(rawstate.Transition{
		Domain:      rawstate.DomainGPIO,
		Signature:   rawstate.GpioSignature(sample.Mask),
		Data:        sample,
		TimestampMs: sample.TimestampMs,
	})
}

func (s *Session) handleMatrix(sample rawstate.MatrixSample) {
	s.mu.Lock()
	if !s.monitoring {
		s.mu.Unlock()
		return
	}
	s.stats.SampleReceived(rawstate.DomainMatrix)
	if !s.detector.AcceptMatrix(sample) {
		s.mu.Unlock()
		s.stats.SampleSuppressed(rawstate.DomainMatrix)
		s.diag.ObserveSample(string(rawstate.DomainMatrix), false)
		return
	}
	s.table.ApplyMatrix(sample.Connections)
	logical := s.table.LogicalForDomain(rawstate.DomainMatrix)
	s.mu.Unlock()

	s.stats.SampleAccepted(rawstate.DomainMatrix)
	s.diag.ObserveSample(string(rawstate.DomainMatrix), true)

	s.broadcaster.BroadcastInputState(InputStateUpdate{
		Domain:      rawstate.DomainMatrix,
		Raw:         sample,
		Logical:     logical,
		TimestampMs: sample.TimestampMs,
	})
	s.streamer.Publish(rawstate.Transition{
		Domain:      rawstate.DomainMatrix,
		Signature:   rawstate.MatrixSignature(sample.Connections),
		Data:        sample,
		TimestampMs: sample.TimestampMs,
	})
}

func (s *Session) handleShiftRegisters(batch []rawstate.RegisterUpdate) {
	s.mu.Lock()
	if !s.monitoring {
		s.mu.Unlock()
		return
	}
	s.stats.SampleReceived(rawstate.DomainShiftReg)
	accepted, merged := s.detector.AcceptShiftRegisters(batch)
	if !accepted {
		s.mu.Unlock()
		s.stats.SampleSuppressed(rawstate.DomainShiftReg)
		s.diag.ObserveSample(string(rawstate.DomainShiftReg), false)
		return
	}
	s.table.ApplyRegisters(merged)
	logical := s.table.LogicalForDomain(rawstate.DomainShiftReg)
	s.mu.Unlock()

	s.stats.SampleAccepted(rawstate.DomainShiftReg)
	s.diag.ObserveSample(string(rawstate.DomainShiftReg), true)

	var ts int64
	for _, update := range batch {
		if update.TimestampMs > ts {
			ts = update.TimestampMs
		}
	}

	// Downstream always sees the full merged register set, not the
	// partial batch that triggered acceptance.
	s.broadcaster.BroadcastInputState(InputStateUpdate{
		Domain:      rawstate.DomainShiftReg,
		Raw:         merged,
		Logical:     logical,
		TimestampMs: ts,
	})
	s.streamer.Publish(rawstate.Transition{
		Domain:      rawstate.DomainShiftReg,
		Signature:   rawstate.RegisterSignature(merged),
		Data:        merged,
		TimestampMs: ts,
	})
}

func (s *Session) handleDeviceStatus(info backend.DeviceInfo) {
	s.mu.Lock()
	s.device = info
	s.mu.Unlock()

	s.logger.Info("Device status changed",
		zap.Bool("connected", info.Connected),
		zap.String("name", info.Name))
	s.broadcaster.BroadcastDeviceStatus(info)
	s.publishStatus()
}

func (s *Session) handleBackendStatus(st backend.BackendStatus) {
	s.mu.Lock()
	s.backendUp = st.Connected
	resume := st.Connected && s.monitoring
	s.mu.Unlock()

	if resume {
		s.wg.Add(1)
		go s.resumeMonitoring()
	}
	s.publishStatus()
}

// resumeMonitoring re-issues monitor.start after the backend link came
// back while a session was active. Failure leaves the session in
// best-effort degraded mode with a recorded error.
func (s *Session) resumeMonitoring() {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	// The device may have rebooted; its first sample must win.
	s.detector.Reset()
	s.mu.Unlock()

	if err := s.client.StartMonitoring(ctx); err != nil {
		s.diag.ObserveError("monitor.resume", err)
		s.setError(fmt.Sprintf("failed to resume monitoring: %v", err))
		s.publishStatus()
		return
	}
	s.logger.Info("Monitoring resumed after reconnect")
}

func (s *Session) applyPullModes(pm settings.PullModes) {
	s.mu.Lock()
	s.table.SetPullModes(pm)
	updates := s.refreshUpdatesLocked()
	s.mu.Unlock()

	s.logger.Info("Pull modes changed",
		zap.String("gpio", string(pm.Gpio)),
		zap.String("shift_reg", string(pm.ShiftReg)))
	s.broadcaster.BroadcastPullModes(pm)
	for _, update := range updates {
		s.broadcaster.BroadcastInputState(update)
	}
}

// refreshUpdatesLocked rebuilds per-domain updates from stored raw
// levels after a polarity change. Matrix is untouched: connectivity
// does not depend on pull mode.
func (s *Session) refreshUpdatesLocked() []InputStateUpdate {
	now := time.Now().UnixMilli()
	var updates []InputStateUpdate
	if mask, ok := s.table.RawGpio(); ok {
		updates = append(updates, InputStateUpdate{
			Domain:      rawstate.DomainGPIO,
			Raw:         rawstate.GpioSample{Mask: mask, TimestampMs: now},
			Logical:     s.table.LogicalForDomain(rawstate.DomainGPIO),
			TimestampMs: now,
		})
	}
	if regs := s.table.RawRegisters(); len(regs) > 0 {
		updates = append(updates, InputStateUpdate{
			Domain:      rawstate.DomainShiftReg,
			Raw:         regs,
			Logical:     s.table.LogicalForDomain(rawstate.DomainShiftReg),
			TimestampMs: now,
		})
	}
	return updates
}

func (s *Session) loadIdentities(ctx context.Context) ([]inputs.Identity, error) {
	if s.cfg.InputMapFile != "" && s.loader != nil {
		doc, err := s.loader.Load(s.cfg.InputMapFile)
		if err != nil {
			return nil, err
		}
		return s.decodeNames(doc.Names()), nil
	}

	raw, err := s.client.InputMap(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.validator.Parse(raw)
	if err != nil {
		return nil, err
	}
	return s.decodeNames(doc.Names()), nil
}

func (s *Session) decodeNames(names []string) []inputs.Identity {
	s.mu.RLock()
	check := s.limitCheck
	s.mu.RUnlock()

	identities := inputs.DecodeAll(names)
	for _, id := range identities {
		s.diag.ObserveDecode(id.Name, string(id.Kind), id.Parsed)
		if !id.Parsed {
			s.stats.DecodeFallback()
			s.logger.Debug("Input name has no recognizable source, using fallback",
				zap.String("name", id.Name))
			continue
		}
		if check == nil {
			continue
		}
		for _, warning := range check(id) {
			s.logger.Warn("Input exceeds active board limits",
				zap.String("name", id.Name), zap.String("warning", warning))
		}
	}
	return identities
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

func (s *Session) publishStatus() {
	status := s.Status()
	s.broadcaster.BroadcastMonitorStatus(status)

	s.statusMu.Lock()
	for _, ch := range s.statusListeners {
		select {
		case ch <- status:
		default:
		}
	}
	s.statusMu.Unlock()
}
