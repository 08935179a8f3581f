package monitor

import (
	"time"

	"github.com/veoreg/infinity-studio/internal/domain"
)

// CandidateMatcher decides whether a store row plausibly carries the result
// of the monitored job. It backs the deep-scan fallback: the external
// workflow system sometimes writes its result to a row other than the one the
// client created (edit jobs in particular), so the newest row is screened as
// a last-resort candidate.
//
// This is an acknowledged heuristic, not a contract. The screens below keep
// false positives tolerable: the row must be a terminal success with an
// extractable URL, it must not predate the job's local start time by more
// than the clock-skew tolerance, and for edits it must differ from the
// unmodified source image.
type CandidateMatcher struct {
	JobID      string
	NotBefore  time.Time
	Skew       time.Duration
	ExcludeURL string
}

// Match reports the resolved URL when the row passes every screen.
func (m CandidateMatcher) Match(row *domain.GenerationJob) (string, bool) {
	if row == nil {
		return "", false
	}
	if row.Status() != domain.JobStatusSucceeded {
		return "", false
	}
	ownRow := row.ID == m.JobID
	url := row.FinalURL(ownRow)
	if url == "" {
		return "", false
	}
	if !ownRow && row.CreatedAt.Before(m.NotBefore.Add(-m.Skew)) {
		return "", false
	}
	if m.ExcludeURL != "" && url == m.ExcludeURL {
		return "", false
	}
	return url, true
}
