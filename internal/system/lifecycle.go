package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/api/rest"
	"github.com/gingerskull/joycore-link/internal/api/websocket"
	"github.com/gingerskull/joycore-link/internal/auth"
	"github.com/gingerskull/joycore-link/internal/backend"
	"github.com/gingerskull/joycore-link/internal/boards"
	"github.com/gingerskull/joycore-link/internal/config"
	"github.com/gingerskull/joycore-link/internal/diag"
	"github.com/gingerskull/joycore-link/internal/inputs"
	"github.com/gingerskull/joycore-link/internal/interfaces"
	"github.com/gingerskull/joycore-link/internal/metrics"
	"github.com/gingerskull/joycore-link/internal/monitor"
	"github.com/gingerskull/joycore-link/internal/mqtt"
	"github.com/gingerskull/joycore-link/internal/rawstate"
	"github.com/gingerskull/joycore-link/internal/settings"
	"github.com/gingerskull/joycore-link/internal/storage"
)

// LifecycleManager owns every long-lived component and drives the
// INITIALIZING -> RUNNING -> STOPPING -> STOPPED progression. While
// RUNNING it watches the backend link and flips between RUNNING and
// DEGRADED as the connection drops and recovers.
type LifecycleManager struct {
	config *config.Config
	logger *zap.Logger

	metricsReg *metrics.Metrics
	diags      diag.Diagnostics

	backendClient backend.Client
	settingsStore *settings.Store
	catalog       *boards.Catalog
	streamer      *monitor.Streamer
	session       *monitor.Session
	authService   *auth.Service
	wsHub         *websocket.Hub

	db        *storage.PostgresClient
	recorder  *storage.Recorder
	publisher mqtt.Publisher

	restServer *rest.Server

	runCancel context.CancelFunc

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    string

	listenersMu     sync.RWMutex
	statusListeners []chan SystemStatus

	monitorCh chan monitor.Status
	fanoutID  uuid.UUID
	workerWg  sync.WaitGroup

	stopping     chan struct{}
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewLifecycleManager(cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	m := metrics.New()
	client := backend.NewWSClient(cfg.Backend, logger, m)
	return newLifecycleManager(cfg, logger, client, m)
}

// newLifecycleManager wires everything behind an injectable backend
// client so tests can run the full lifecycle against a fake.
func newLifecycleManager(cfg *config.Config, logger *zap.Logger, client backend.Client, m *metrics.Metrics) (*LifecycleManager, error) {
	var diags diag.Diagnostics = diag.Nop{}
	if cfg.Debug.Enabled {
		diags = diag.NewRecorder(logger)
	}

	settingsStore := settings.NewStore(cfg.Settings.Path, logger)
	if err := settingsStore.Load(); err != nil {
		logger.Warn("Settings load failed, continuing with defaults", zap.Error(err))
	}

	catalog, err := boards.LoadCatalog(cfg.Boards.SearchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load board catalog: %w", err)
	}

	validator, err := inputs.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to build input map validator: %w", err)
	}

	var loader *inputs.Loader
	if len(cfg.Monitor.InputMapPaths) > 0 {
		loader, err = inputs.NewLoader(cfg.Monitor.InputMapPaths)
		if err != nil {
			return nil, fmt.Errorf("failed to create input map loader: %w", err)
		}
	}

	authService := auth.NewService(cfg.Auth, logger)
	wsHub := websocket.NewHub(logger, authService, m)
	streamer := monitor.NewStreamer()

	session := monitor.NewSession(
		client,
		settingsStore,
		streamer,
		websocket.NewBroadcaster(wsHub),
		validator,
		loader,
		cfg.Monitor,
		m,
		diags,
		logger,
	)
	wsHub.SetSnapshotProvider(websocket.SessionSnapshot{Session: session, Store: settingsStore})

	if cfg.Boards.ActiveBoard != "" {
		if board, ok := catalog.Get(cfg.Boards.ActiveBoard); ok {
			session.SetLimitChecker(board.IdentityWarnings)
		} else {
			logger.Warn("Active board not found in catalog",
				zap.String("board", cfg.Boards.ActiveBoard))
		}
	}

	// The recorder and the MQTT publisher are optional side channels.
	// When their backends are unreachable the service still starts,
	// it just runs without them.
	var db *storage.PostgresClient
	var recorder *storage.Recorder
	if cfg.Recorder.Enabled {
		db, err = storage.NewPostgresClient(cfg.Recorder.Database)
		if err != nil {
			logger.Warn("Transition recorder disabled, database unreachable", zap.Error(err))
			db = nil
		} else {
			schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = db.EnsureSchema(schemaCtx)
			cancel()
			if err != nil {
				logger.Warn("Transition recorder disabled, schema setup failed", zap.Error(err))
				_ = db.Close()
				db = nil
			} else {
				recorder = storage.NewRecorder(db, cfg.Recorder, logger, m)
			}
		}
	}

	var publisher mqtt.Publisher = mqtt.Nop{}
	if cfg.MQTT.Enabled {
		real, err := mqtt.NewRealPublisher(cfg.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT publisher disabled, broker unreachable", zap.Error(err))
		} else {
			publisher = real
		}
	}

	return &LifecycleManager{
		config:        cfg,
		logger:        logger,
		metricsReg:    m,
		diags:         diags,
		backendClient: client,
		settingsStore: settingsStore,
		catalog:       catalog,
		streamer:      streamer,
		session:       session,
		authService:   authService,
		wsHub:         wsHub,
		db:            db,
		recorder:      recorder,
		publisher:     publisher,
		currentState:  StateInitializing,
		stopping:      make(chan struct{}),
		shutdownChan:  make(chan struct{}),
	}, nil
}

// Start brings up all components and transitions to RUNNING. Errors
// here are fatal; a reachable backend is not required because the link
// supervisor keeps reconnecting in the background.
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting system")

	lm.setState(StateInitializing)
	lm.broadcastStatus()

	go lm.wsHub.Run()

	runCtx, cancel := context.WithCancel(context.Background())
	lm.runCancel = cancel
	if err := lm.backendClient.Start(runCtx); err != nil {
		lm.setError(err)
		return fmt.Errorf("failed to start backend link: %w", err)
	}

	lm.session.Run()

	lm.monitorCh = lm.session.SubscribeStatus()
	lm.workerWg.Add(1)
	go lm.watchMonitor()

	fanoutID, transitions := lm.streamer.Subscribe()
	lm.fanoutID = fanoutID
	lm.workerWg.Add(1)
	go lm.fanoutTransitions(transitions)

	if lm.recorder != nil {
		lm.recorder.Start()
	}

	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub, lm.authService)
	if err := lm.restServer.Start(); err != nil {
		lm.setError(err)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	if lm.config.Monitor.AutoStart {
		lm.workerWg.Add(1)
		go lm.autoStartMonitor()
	}

	lm.publishSystemEvent("STARTUP", "")

	lm.setState(StateRunning)
	lm.broadcastStatus()

	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.String("backend_url", lm.config.Backend.URL),
		zap.Bool("monitor_auto_start", lm.config.Monitor.AutoStart))

	return nil
}

// watchMonitor maps backend link health onto the RUNNING/DEGRADED pair.
func (lm *LifecycleManager) watchMonitor() {
	defer lm.workerWg.Done()
	for status := range lm.monitorCh {
		lm.applyLinkState(status.BackendConnected)
	}
}

func (lm *LifecycleManager) applyLinkState(connected bool) {
	lm.stateMu.Lock()
	prev := lm.currentState

	var next SystemState
	var reason string
	switch {
	case prev == StateRunning && !connected:
		next, reason = StateDegraded, "backend link lost"
	case prev == StateDegraded && connected:
		next, reason = StateRunning, "backend link restored"
	default:
		lm.stateMu.Unlock()
		return
	}

	if err := ValidateTransition(prev, next); err != nil {
		lm.stateMu.Unlock()
		return
	}
	lm.currentState = next
	lm.stateMu.Unlock()

	lm.logger.Warn("System state changed",
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
		zap.String("reason", reason))

	lm.broadcastStatus()
	lm.wsHub.Broadcast(websocket.NewSystemStatusMessage(next.String(), prev.String(), reason))
}

// fanoutTransitions feeds accepted transitions to the optional side
// channels. The WebSocket hub gets them through the session broadcaster
// already, so only recorder and MQTT hang off the streamer here.
func (lm *LifecycleManager) fanoutTransitions(transitions <-chan rawstate.Transition) {
	defer lm.workerWg.Done()

	for tr := range transitions {
		if lm.recorder != nil {
			lm.recorder.Record(tr)
		}
		if err := lm.publisher.PublishTransition(tr); err != nil {
			lm.logger.Warn("Transition publish failed",
				zap.String("domain", string(tr.Domain)), zap.Error(err))
		}
	}
}

func (lm *LifecycleManager) autoStartMonitor() {
	defer lm.workerWg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-lm.stopping:
			return
		case <-ticker.C:
			if !lm.backendClient.IsConnected() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := lm.session.StartMonitoring(ctx)
			cancel()
			if err != nil {
				lm.logger.Warn("Monitor auto-start failed, retrying", zap.Error(err))
				continue
			}
			lm.logger.Info("Monitor auto-started")
			return
		}
	}
}

func (lm *LifecycleManager) publishSystemEvent(event, reason string) {
	err := lm.publisher.PublishStatus(mqtt.SystemEvent{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Reason:    reason,
	})
	if err != nil {
		lm.logger.Warn("System event publish failed",
			zap.String("event", event), zap.Error(err))
	}
}

// Shutdown stops all components. It is safe to call more than once;
// later calls return immediately with the first call's result.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		close(lm.stopping)

		lm.setState(StateStopping)
		lm.broadcastStatus()

		// Publish before teardown, the broker connection dies with it.
		lm.publishSystemEvent("SHUTDOWN", "requested")

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)
		lm.broadcastStatus()

		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 3)

	// 1. REST API server
	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("REST server shutdown failed: %w", err)
			}
		}()
	}

	// 2. Monitor session and backend link
	wg.Add(1)
	go func() {
		defer wg.Done()

		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := lm.session.StopMonitoring(stopCtx); err != nil {
			lm.logger.Warn("Monitor stop during shutdown failed", zap.Error(err))
		}
		cancel()

		if lm.monitorCh != nil {
			lm.session.UnsubscribeStatus(lm.monitorCh)
		}
		lm.session.Close()

		if lm.runCancel != nil {
			lm.runCancel()
		}
		if err := lm.backendClient.Close(); err != nil {
			errChan <- fmt.Errorf("backend link close failed: %w", err)
		}
	}()

	// 3. WebSocket hub
	wg.Add(1)
	go func() {
		defer wg.Done()
		lm.wsHub.Stop()
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		return fmt.Errorf("shutdown timeout exceeded")
	case err := <-errChan:
		return err
	}

	// The transition fanout drains only after the session stopped
	// feeding it, so these come after the parallel phase.
	lm.streamer.Unsubscribe(lm.fanoutID)
	lm.workerWg.Wait()

	if lm.recorder != nil {
		lm.recorder.Stop()
	}
	if lm.db != nil {
		if err := lm.db.Close(); err != nil {
			lm.logger.Warn("Storage close failed", zap.Error(err))
		}
	}
	if err := lm.publisher.Close(); err != nil {
		lm.logger.Warn("MQTT publisher close failed", zap.Error(err))
	}

	lm.logger.Info("Graceful shutdown completed")
	return nil
}

// ============================================================================
// State tracking and status listeners
// ============================================================================

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	lm.currentState = state
}

func (lm *LifecycleManager) setError(err error) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	lm.currentState = StateError
	lm.lastError = err.Error()
}

func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

func (lm *LifecycleManager) getStatusInternal() SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return SystemStatus{
		State:     lm.currentState,
		Timestamp: time.Now().Unix(),
		Error:     lm.lastError,
	}
}

// SubscribeStatus returns a channel receiving every state change until
// UnsubscribeStatus. Slow listeners miss updates instead of blocking
// the manager.
func (lm *LifecycleManager) SubscribeStatus() chan SystemStatus {
	lm.listenersMu.Lock()
	defer lm.listenersMu.Unlock()

	ch := make(chan SystemStatus, 10)
	lm.statusListeners = append(lm.statusListeners, ch)
	return ch
}

func (lm *LifecycleManager) UnsubscribeStatus(ch chan SystemStatus) {
	lm.listenersMu.Lock()
	defer lm.listenersMu.Unlock()

	for i, listener := range lm.statusListeners {
		if listener == ch {
			lm.statusListeners = append(lm.statusListeners[:i], lm.statusListeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (lm *LifecycleManager) broadcastStatus() {
	status := lm.getStatusInternal()

	lm.listenersMu.RLock()
	defer lm.listenersMu.RUnlock()

	for _, listener := range lm.statusListeners {
		select {
		case listener <- status:
		default:
		}
	}
}

// ============================================================================
// interfaces.LifecycleManager
// ============================================================================

func (lm *LifecycleManager) Config() *config.Config           { return lm.config }
func (lm *LifecycleManager) Backend() backend.Client          { return lm.backendClient }
func (lm *LifecycleManager) Session() *monitor.Session        { return lm.session }
func (lm *LifecycleManager) Settings() *settings.Store        { return lm.settingsStore }
func (lm *LifecycleManager) Boards() *boards.Catalog          { return lm.catalog }
func (lm *LifecycleManager) Storage() *storage.PostgresClient { return lm.db }
func (lm *LifecycleManager) Diagnostics() diag.Diagnostics    { return lm.diags }
func (lm *LifecycleManager) Metrics() *metrics.Metrics        { return lm.metricsReg }

func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	state := lm.currentState
	lastError := lm.lastError
	lm.stateMu.RUnlock()

	st := lm.session.Status()

	return interfaces.SystemStatus{
		State:            state.String(),
		BackendConnected: st.BackendConnected,
		DeviceConnected:  st.DeviceConnected,
		Monitoring:       st.Monitoring,
		InputCount:       st.InputCount,
		WSClients:        lm.wsHub.GetClientCount(),
		Error:            lastError,
	}
}
