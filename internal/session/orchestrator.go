package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrShutdown is returned by Start once Shutdown has begun
var ErrShutdown = errors.New("scan orchestrator is shut down")

// IDGenerator generates run IDs for spawned workers
type IDGenerator interface {
	Generate() string
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// Orchestrator exposes the session's operations and guarantees at most one live worker
type Orchestrator struct {
	session     *Session
	worker      *Worker
	idGenerator IDGenerator

	// mu orders Start against Shutdown so wg.Add never races wg.Wait
	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator over session, spawning worker as needed
func NewOrchestrator(session *Session, worker *Worker) *Orchestrator {
	return NewOrchestratorWithDeps(session, worker, &defaultIDGenerator{})
}

// NewOrchestratorWithDeps creates an Orchestrator with a custom ID generator for testing
func NewOrchestratorWithDeps(session *Session, worker *Worker, idGen IDGenerator) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		session:     session,
		worker:      worker,
		idGenerator: idGen,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start arms scanning. If a worker is alive it is re-armed rather than
// duplicated; otherwise a new one is spawned. Any unconsumed detection is dropped.
func (o *Orchestrator) Start() (Status, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return o.session.Status(), ErrShutdown
	}

	spawn, status := o.session.arm(o.idGenerator.Generate)
	if spawn {
		o.worker.drainWake()
		o.wg.Add(1)
		go func(runID string) {
			defer o.wg.Done()
			o.worker.Run(o.ctx, runID)
		}(status.RunID)
		slog.Info("Scanning started", "run_id", status.RunID)
	} else {
		slog.Info("Scanning re-armed", "run_id", status.RunID)
	}
	return status, nil
}

// Stop sets the cancellation flag; the worker exits at its next iteration boundary
func (o *Orchestrator) Stop() Status {
	status := o.session.disarm()
	o.worker.Wake()
	slog.Info("Scanning stop requested", "run_id", status.RunID, "worker_alive", status.WorkerAlive)
	return status
}

// Status returns the current session state without side effects
func (o *Orchestrator) Status() Status {
	return o.session.Status()
}

// Consume returns the pending detection to the first caller and moves the
// session to Idle; later callers get false. It never blocks on the worker.
func (o *Orchestrator) Consume() (*Detection, bool) {
	return o.session.consume()
}

// Shutdown cancels the worker and waits for it to exit or ctx to expire
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.cancel()
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
