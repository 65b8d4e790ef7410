package session

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/zombor/shelf-scanner/internal/camera"
	"github.com/zombor/shelf-scanner/internal/scanning"
)

// Fetcher fetches one camera snapshot. Implementations bound the call with their own timeout.
type Fetcher interface {
	Fetch(ctx context.Context) (*camera.Snapshot, error)
}

// FrameStore keeps the latest fetched frame
type FrameStore interface {
	Store(data []byte, contentType string)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Config holds the worker's pacing
type Config struct {
	// CycleDelay is the pause after a frame with no symbol
	CycleDelay time.Duration
	// BackoffDelay is the pause after a failed fetch
	BackoffDelay time.Duration
}

// DefaultConfig returns the default pacing
func DefaultConfig() Config {
	return Config{
		CycleDelay:   500 * time.Millisecond,
		BackoffDelay: time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CycleDelay <= 0 {
		c.CycleDelay = d.CycleDelay
	}
	if c.BackoffDelay <= 0 {
		c.BackoffDelay = 2 * c.CycleDelay
	}
	return c
}

// Worker runs fetch, cache, decode cycles against a Session until the
// session is disarmed or a symbol decodes.
//
// Cancellation is observed only at the top of an iteration, so a stop takes
// effect after the in-flight fetch (bounded by the fetcher's timeout) and
// decode complete. Sleeps between cycles end early on a wake-up.
type Worker struct {
	session    *Session
	fetcher    Fetcher
	frames     FrameStore
	decoder    scanning.Decoder
	cfg        Config
	timeSource TimeSource
	wake       chan struct{}
}

// NewWorker creates a Worker bound to session
func NewWorker(session *Session, fetcher Fetcher, frames FrameStore, decoder scanning.Decoder, cfg Config) *Worker {
	return NewWorkerWithDeps(session, fetcher, frames, decoder, cfg, &defaultTimeSource{})
}

// NewWorkerWithDeps creates a Worker with a custom time source for testing
func NewWorkerWithDeps(session *Session, fetcher Fetcher, frames FrameStore, decoder scanning.Decoder, cfg Config, timeSrc TimeSource) *Worker {
	return &Worker{
		session:    session,
		fetcher:    fetcher,
		frames:     frames,
		decoder:    decoder,
		cfg:        cfg.withDefaults(),
		timeSource: timeSrc,
		wake:       make(chan struct{}, 1),
	}
}

// Wake cuts short an inter-cycle sleep so a stop is noticed promptly
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// drainWake discards a wake-up left over from a previous run
func (w *Worker) drainWake() {
	select {
	case <-w.wake:
	default:
	}
}

// Run loops until the session is disarmed, a symbol decodes, or ctx is cancelled
func (w *Worker) Run(ctx context.Context, runID string) {
	log := slog.With("run_id", runID)
	log.Info("Scan worker started")

	for {
		if ctx.Err() != nil {
			w.session.abandon()
			log.Info("Scan worker shut down")
			return
		}
		if !w.session.continueScanning() {
			log.Info("Scan worker stopped")
			return
		}
		if w.cycle(ctx, log, runID) {
			return
		}
	}
}

// cycle runs one iteration and reports whether the worker is finished.
// A panic anywhere in the iteration degrades to a skipped cycle.
func (w *Worker) cycle(ctx context.Context, log *slog.Logger, runID string) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Scan cycle panicked, skipping", "panic", r, "stack", string(debug.Stack()))
			w.sleep(ctx, w.cfg.CycleDelay)
			done = false
		}
	}()

	snapshot, err := w.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Warn("Could not fetch frame from camera", "error", err, "retry_in", w.cfg.BackoffDelay)
		w.sleep(ctx, w.cfg.BackoffDelay)
		return false
	}

	w.frames.Store(snapshot.Data, snapshot.ContentType)

	symbol, err := w.decoder.Decode(snapshot.Data, snapshot.ContentType)
	switch {
	case err == nil:
		detection := Detection{
			Payload:   symbol.Payload,
			Symbology: symbol.Symbology,
			DecodedAt: w.timeSource.Now(),
			RunID:     runID,
		}
		if w.session.complete(detection) {
			log.Info("Symbol decoded", "symbology", symbol.Symbology, "payload", symbol.Payload)
		} else {
			log.Info("Symbol decoded after stop, discarding", "symbology", symbol.Symbology)
		}
		return true
	case errors.Is(err, scanning.ErrNoSymbol):
		log.Debug("No symbol in frame", "size", len(snapshot.Data))
	case errors.Is(err, scanning.ErrCorruptImage):
		log.Warn("Unreadable frame", "error", err, "size", len(snapshot.Data), "content_type", snapshot.ContentType)
	default:
		log.Error("Decoder failed", "error", err)
	}

	w.sleep(ctx, w.cfg.CycleDelay)
	return false
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-w.wake:
	case <-ctx.Done():
	}
}
