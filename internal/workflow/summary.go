package workflow

import "time"

// Summary tallies the outcomes of one scan cycle.
type Summary struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Discovered     int       `json:"discovered"`
	Transcoded     int       `json:"transcoded"`
	NotRequired    int       `json:"not_required"`
	AlreadyTracked int       `json:"already_tracked"`
	Failed         int       `json:"failed"`
}

// Duration returns the wall-clock time the cycle took.
func (s *Summary) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// outcome is the per-file result a worker reports back to the cycle.
// Skipped files were cut off by shutdown and count toward nothing.
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeTranscoded
	outcomeNotRequired
	outcomeAlreadyTracked
	outcomeFailed
)

func (s *Summary) apply(result outcome) {
	switch result {
	case outcomeTranscoded:
		s.Transcoded++
	case outcomeNotRequired:
		s.NotRequired++
	case outcomeAlreadyTracked:
		s.AlreadyTracked++
	case outcomeFailed:
		s.Failed++
	}
}
