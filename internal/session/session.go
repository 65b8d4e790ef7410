// Package session coordinates one scan-to-result flow: a single Session guarded
// by a mutex, a background Worker that polls the camera until a symbol decodes,
// and an Orchestrator exposing idempotent start, stop, status and consume.
//
// The process holds exactly one Session. Scans are not keyed by shopper, so two
// shoppers scanning at once share the same result.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/zombor/shelf-scanner/internal/scanning"
)

// State is the scan session state
type State int

const (
	Idle State = iota
	Scanning
	Found
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Found:
		return "found"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "scanning":
		*s = Scanning
	case "found":
		*s = Found
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// Detection is a decoded symbol waiting to be consumed
type Detection struct {
	Payload   string             `json:"payload"`
	Symbology scanning.Symbology `json:"symbology"`
	DecodedAt time.Time          `json:"decoded_at"`
	RunID     string             `json:"run_id"`
}

// Status is a point-in-time view of the session
type Status struct {
	State       State      `json:"state"`
	Detection   *Detection `json:"detection,omitempty"`
	RunID       string     `json:"run_id,omitempty"`
	WorkerAlive bool       `json:"worker_alive"`
}

// Session is the shared scan state. detection is non-nil iff state is Found.
// Every method holds mu for O(1) field access only.
type Session struct {
	mu          sync.Mutex
	state       State
	detection   *Detection
	armed       bool // cleared by stop; checked by the worker at each iteration
	workerAlive bool
	runID       string
}

// New creates an Idle session
func New() *Session {
	return &Session{state: Idle}
}

// Status returns a copy of the current state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		State:       s.state,
		RunID:       s.runID,
		WorkerAlive: s.workerAlive,
	}
	if s.detection != nil {
		d := *s.detection
		status.Detection = &d
	}
	return status
}

// arm moves to Scanning and drops any stale detection. It reports whether the
// caller must spawn a worker; when one is alive it is re-armed instead.
func (s *Session) arm(newRunID func() string) (spawn bool, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detection = nil
	s.state = Scanning
	s.armed = true
	if !s.workerAlive {
		s.workerAlive = true
		s.runID = newRunID()
		spawn = true
	}
	return spawn, Status{State: s.state, RunID: s.runID, WorkerAlive: true}
}

// disarm sets the cancellation flag. A pending detection is left for consume.
func (s *Session) disarm() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.armed = false
	if s.state == Scanning {
		s.state = Idle
	}
	status := Status{State: s.state, RunID: s.runID, WorkerAlive: s.workerAlive}
	if s.detection != nil {
		d := *s.detection
		status.Detection = &d
	}
	return status
}

// continueScanning is the worker's cancellation check. Returning false also
// marks the worker gone in the same critical section, so a concurrent arm
// either sees it alive and re-arms it, or sees it gone and spawns a new one.
func (s *Session) continueScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed {
		return true
	}
	s.workerAlive = false
	return false
}

// complete records a detection and retires the worker. A detection that
// arrives after stop is discarded and complete returns false.
func (s *Session) complete(d Detection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workerAlive = false
	if !s.armed {
		return false
	}
	s.armed = false
	s.state = Found
	s.detection = &d
	return true
}

// abandon retires the worker on shutdown
func (s *Session) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workerAlive = false
	s.armed = false
	if s.state == Scanning {
		s.state = Idle
	}
}

// consume hands the detection to exactly one caller and returns to Idle
func (s *Session) consume() (*Detection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Found {
		return nil, false
	}
	d := s.detection
	s.detection = nil
	s.state = Idle
	return d, true
}
