package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/observability"
)

// Progress is one pipeline progress notification.
type Progress struct {
	Phase     Phase     `json:"phase"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Current   string    `json:"current,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer callback signatures. Callbacks must not block; they run on the
// supervisor goroutine.
type (
	ProgressFunc func(Progress)
	CompleteFunc func(extractorID string, result extract.Result)
	ErrorFunc    func(extractorID string, err error)
)

// Observers is the callback registry of one orchestrator. Registration and
// emission are serialised; a panicking callback is swallowed, logged, and
// counted so one misbehaving observer cannot take down the run.
type Observers struct {
	mu       sync.Mutex
	progress []ProgressFunc
	complete []CompleteFunc
	errs     []ErrorFunc
	logger   *slog.Logger
}

func newObservers(logger *slog.Logger) *Observers {
	return &Observers{logger: logger}
}

// OnProgress registers a progress callback.
func (o *Observers) OnProgress(cb ProgressFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.progress = append(o.progress, cb)
}

// OnExtractorComplete registers a per-extractor completion callback.
func (o *Observers) OnExtractorComplete(cb CompleteFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.complete = append(o.complete, cb)
}

// OnError registers an extractor-failure callback.
func (o *Observers) OnError(cb ErrorFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.errs = append(o.errs, cb)
}

func (o *Observers) emitProgress(p Progress) {
	o.mu.Lock()
	callbacks := append([]ProgressFunc(nil), o.progress...)
	o.mu.Unlock()

	for _, cb := range callbacks {
		o.safely(func() { cb(p) })
	}
}

func (o *Observers) emitComplete(extractorID string, result extract.Result) {
	o.mu.Lock()
	callbacks := append([]CompleteFunc(nil), o.complete...)
	o.mu.Unlock()

	for _, cb := range callbacks {
		o.safely(func() { cb(extractorID, result) })
	}
}

func (o *Observers) emitError(extractorID string, err error) {
	o.mu.Lock()
	callbacks := append([]ErrorFunc(nil), o.errs...)
	o.mu.Unlock()

	for _, cb := range callbacks {
		o.safely(func() { cb(extractorID, err) })
	}
}

// safely invokes the callback, converting a panic into a warning and a
// metric increment.
func (o *Observers) safely(invoke func()) {
	defer func() {
		if r := recover(); r != nil {
			observability.ObserverFailures.Inc()
			o.logger.Warn("observer callback panicked", "panic", r)
		}
	}()

	invoke()
}
