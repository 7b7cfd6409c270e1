package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/config"
	"github.com/gingerskull/joycore-link/internal/rawstate"
)

// TransitionStore is the slice of PostgresClient the recorder needs.
type TransitionStore interface {
	InsertTransitions(ctx context.Context, batch []TransitionRecord) (int, error)
}

// RecorderStats receives persistence counters. *metrics.Metrics
// satisfies it.
type RecorderStats interface {
	TransitionsStored(n int)
}

type nopRecorderStats struct{}

func (nopRecorderStats) TransitionsStored(int) {}

// Recorder batches accepted transitions into the database. Record never
// blocks the monitoring loop; when the queue is full the transition is
// dropped with a warning.
type Recorder struct {
	store  TransitionStore
	logger *zap.Logger
	stats  RecorderStats

	batchSize     int
	flushInterval time.Duration

	queue    chan rawstate.Transition
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func NewRecorder(store TransitionStore, cfg config.RecorderConfig, logger *zap.Logger, stats RecorderStats) *Recorder {
	if stats == nil {
		stats = nopRecorderStats{}
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}

	return &Recorder{
		store:         store,
		logger:        logger,
		stats:         stats,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		queue:         make(chan rawstate.Transition, queueSize),
	}
}

func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})

	r.wg.Add(1)
	go r.run()

	r.logger.Info("Transition recorder started",
		zap.Int("batch_size", r.batchSize),
		zap.Duration("flush_interval", r.flushInterval))
}

// Stop drains the queue, flushes the final batch and waits for the
// worker to exit.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Transition recorder stopped")
}

// Record enqueues one transition for persistence.
func (r *Recorder) Record(tr rawstate.Transition) {
	select {
	case r.queue <- tr:
	default:
		r.logger.Warn("Recorder queue full, dropping transition",
			zap.String("domain", string(tr.Domain)))
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]TransitionRecord, 0, r.batchSize)
	for {
		select {
		case tr := <-r.queue:
			batch = append(batch, toRecord(tr))
			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.stopChan:
			for {
				select {
				case tr := <-r.queue:
					batch = append(batch, toRecord(tr))
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(batch []TransitionRecord) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inserted, err := r.store.InsertTransitions(ctx, batch)
	if err != nil {
		r.logger.Error("Failed to persist transition batch",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		return
	}

	r.stats.TransitionsStored(inserted)
	r.logger.Debug("Persisted transition batch",
		zap.Int("inserted", inserted),
		zap.Int("batch_size", len(batch)))
}

func toRecord(tr rawstate.Transition) TransitionRecord {
	payload, err := json.Marshal(tr.Data)
	if err != nil {
		payload = []byte("null")
	}
	return TransitionRecord{
		Domain:     string(tr.Domain),
		Signature:  tr.Signature,
		Payload:    payload,
		OccurredMs: tr.TimestampMs,
	}
}
