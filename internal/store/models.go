package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcoding record.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusNotRequired Status = "not_required"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusNotRequired,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// terminalStatuses are the states a record never leaves on its own; only the
// reprocess-changed policy or an operator retry moves a record out of them.
var terminalStatuses = map[Status]struct{}{
	StatusCompleted:   {},
	StatusNotRequired: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Valid reports whether the status is a member of the closed enum.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the status is a settled outcome.
func (s Status) Terminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Record is the per-source transcoding ledger row persisted in SQLite.
// SourcePath is the primary key; exactly one record exists per source file.
type Record struct {
	SourcePath       string    `json:"source_path"`
	OutputPath       string    `json:"output_path"`
	OutputWidth      int       `json:"output_width"`
	OutputHeight     int       `json:"output_height"`
	OutputCodec      string    `json:"output_codec"`
	Status           Status    `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	SourceSize       int64     `json:"source_size"`
	SourceModifiedAt time.Time `json:"source_modified_at"`
	Backend          string    `json:"backend,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SetFailed marks the record as failed with the given error message.
func (r *Record) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
}

// SetCompleted records a finished transcode and clears any stale error.
func (r *Record) SetCompleted(outputPath string, width, height int, codec, backend string) {
	r.Status = StatusCompleted
	r.OutputPath = outputPath
	r.OutputWidth = width
	r.OutputHeight = height
	r.OutputCodec = codec
	r.Backend = backend
	r.ErrorMessage = ""
}

// DatabaseHealth captures diagnostic information about the ledger database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalRecords     int
	Error            string
}

// HealthSummary describes aggregated record counts per lifecycle state.
type HealthSummary struct {
	Total       int
	Pending     int
	InProgress  int
	Completed   int
	NotRequired int
	Failed      int
}
