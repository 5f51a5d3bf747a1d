package ipc

import "time"

// Known control operations.
const (
	OpStatus = "status"
	OpRun    = "run"
	OpStop   = "stop"
)

// Request is one control-socket command. Every request carries a client
// generated id that the response echoes back, so answers stay tied to
// questions when a connection is reused.
type Request struct {
	ID string `json:"id"`
	Op string `json:"op"`
}

// Response is the envelope for every reply. Exactly one payload field is
// populated on success; Error carries the failure otherwise.
type Response struct {
	ID     string         `json:"id"`
	Error  string         `json:"error,omitempty"`
	Status *StatusPayload `json:"status,omitempty"`
	Run    *RunPayload    `json:"run,omitempty"`
	Stop   *StopPayload   `json:"stop,omitempty"`
}

// StatusPayload mirrors daemon.Status for the wire.
type StatusPayload struct {
	Running      bool                `json:"running"`
	PID          int                 `json:"pid"`
	StartedAt    time.Time           `json:"started_at"`
	CycleActive  bool                `json:"cycle_active"`
	LastError    string              `json:"last_error,omitempty"`
	LastRun      *RunSummaryPayload  `json:"last_run,omitempty"`
	Records      RecordCountsPayload `json:"records"`
	Hardware     string              `json:"hardware"`
	DatabasePath string              `json:"database_path"`
	LockPath     string              `json:"lock_path"`
}

// RunSummaryPayload carries the tallies of the most recent scan cycle.
type RunSummaryPayload struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Discovered     int       `json:"discovered"`
	Transcoded     int       `json:"transcoded"`
	NotRequired    int       `json:"not_required"`
	AlreadyTracked int       `json:"already_tracked"`
	Failed         int       `json:"failed"`
}

// RecordCountsPayload aggregates ledger record counts per status.
type RecordCountsPayload struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	InProgress  int `json:"in_progress"`
	Completed   int `json:"completed"`
	NotRequired int `json:"not_required"`
	Failed      int `json:"failed"`
}

// RunPayload reports whether an on-demand scan cycle was scheduled.
type RunPayload struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message,omitempty"`
}

// StopPayload acknowledges a shutdown request.
type StopPayload struct {
	Stopping bool `json:"stopping"`
}
