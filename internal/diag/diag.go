package diag

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Diagnostics collects interpreter observations for troubleshooting.
// Every hot-path method must be cheap and non-blocking.
type Diagnostics interface {
	ObserveDecode(name string, kind string, parsed bool)
	ObserveSample(domain string, accepted bool)
	ObserveError(op string, err error)
	Snapshot() Report
}

// Report is a point-in-time view of recorded observations.
type Report struct {
	DecodeTotal    int64                   `json:"decode_total"`
	DecodeFallback int64                   `json:"decode_fallback"`
	Samples        map[string]SampleCounts `json:"samples"`
	Errors         []ErrorEntry            `json:"errors"`
}

type SampleCounts struct {
	Received   int64 `json:"received"`
	Accepted   int64 `json:"accepted"`
	Suppressed int64 `json:"suppressed"`
}

type ErrorEntry struct {
	Op      string    `json:"op"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Nop discards everything. Used when debug mode is off.
type Nop struct{}

func (Nop) ObserveDecode(string, string, bool) {}
func (Nop) ObserveSample(string, bool)         {}
func (Nop) ObserveError(string, error)         {}
func (Nop) Snapshot() Report                   { return Report{} }

const maxErrorEntries = 32

// Recorder keeps counters plus a bounded ring of recent errors and
// mirrors error observations to the debug log.
type Recorder struct {
	logger *zap.Logger

	mu             sync.Mutex
	decodeTotal    int64
	decodeFallback int64
	samples        map[string]SampleCounts
	errors         []ErrorEntry
}

func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{
		logger:  logger,
		samples: make(map[string]SampleCounts),
	}
}

func (r *Recorder) ObserveDecode(name string, kind string, parsed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decodeTotal++
	if !parsed {
		r.decodeFallback++
		r.logger.Debug("Input name fell back to direct identity",
			zap.String("name", name),
			zap.String("kind", kind))
	}
}

func (r *Recorder) ObserveSample(domain string, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := r.samples[domain]
	counts.Received++
	if accepted {
		counts.Accepted++
	} else {
		counts.Suppressed++
	}
	r.samples[domain] = counts
}

func (r *Recorder) ObserveError(op string, err error) {
	if err == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, ErrorEntry{Op: op, Message: err.Error(), At: time.Now()})
	if len(r.errors) > maxErrorEntries {
		r.errors = r.errors[len(r.errors)-maxErrorEntries:]
	}
	r.logger.Debug("Recorded error observation", zap.String("op", op), zap.Error(err))
}

func (r *Recorder) Snapshot() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := Report{
		DecodeTotal:    r.decodeTotal,
		DecodeFallback: r.decodeFallback,
		Samples:        make(map[string]SampleCounts, len(r.samples)),
		Errors:         make([]ErrorEntry, len(r.errors)),
	}
	for domain, counts := range r.samples {
		report.Samples[domain] = counts
	}
	copy(report.Errors, r.errors)
	return report
}
