// Package jobs owns the single-flight run state of the job server. This is
// the only place concurrent access to shared state exists: run starts go
// through an atomic phase transition, never a plain check-then-set.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

// Phase is the explicit job-state value.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
)

// LogEntry is one buffered pipeline event, as exposed by the status poll.
type LogEntry struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Result captures the outcome of the most recent run.
type Result struct {
	Success     bool           `json:"success"`
	CompletedAt time.Time      `json:"completed_at"`
	Summary     *agent.Summary `json:"summary,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Status is the snapshot returned to pollers.
type Status struct {
	IsRunning   bool       `json:"is_running"`
	LastRun     *time.Time `json:"last_run"`
	LastResult  *Result    `json:"last_result"`
	Logs        []LogEntry `json:"logs"`
	CurrentStep string     `json:"current_step"`
}

// RunState tracks whether a run is active, buffers its events and keeps the
// last result. It implements agent.Sink so it can be wired directly into the
// pipeline's event stream.
type RunState struct {
	mu          sync.Mutex
	phase       Phase
	jobID       string
	lastRun     *time.Time
	lastResult  *Result
	logs        []LogEntry
	currentStep string
}

// NewRunState starts idle.
func NewRunState() *RunState {
	return &RunState{phase: PhaseIdle}
}

// TryStart attempts the idle -> running transition. Exactly one concurrent
// caller wins; losers are told the server is busy and must not queue. On
// success the log buffer is reset and a fresh job ID issued.
func (r *RunState) TryStart() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseRunning {
		return "", false
	}
	r.phase = PhaseRunning
	r.jobID = uuid.NewString()
	now := time.Now()
	r.lastRun = &now
	r.logs = nil
	r.currentStep = "Starting..."
	return r.jobID, true
}

// Finish records the run outcome and transitions back to idle.
func (r *RunState) Finish(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = PhaseIdle
	r.lastResult = &res
	if res.Success {
		r.currentStep = "Completed!"
	} else {
		r.currentStep = "Failed"
	}
}

// Emit buffers a pipeline event and tracks the current step.
func (r *RunState) Emit(e agent.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, LogEntry{
		Type:      string(e.Level),
		Message:   e.Message,
		Timestamp: time.Now(),
	})
	if e.Step != "" {
		r.currentStep = e.Step
	}
}

// Snapshot returns a copy of the current state for the status endpoint.
func (r *RunState) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		IsRunning:   r.phase == PhaseRunning,
		CurrentStep: r.currentStep,
		Logs:        append([]LogEntry(nil), r.logs...),
	}
	if r.lastRun != nil {
		t := *r.lastRun
		st.LastRun = &t
	}
	if r.lastResult != nil {
		res := *r.lastResult
		st.LastResult = &res
	}
	return st
}

var _ agent.Sink = (*RunState)(nil)
