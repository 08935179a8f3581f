package monitor

import (
	"time"

	"github.com/veoreg/infinity-studio/internal/domain"
)

// Progress is an elapsed-time-driven simulation of generation progress. The
// external system reports no intermediate state, so the UI stages plausible
// log lines against the typical duration per kind. Computed strictly from the
// job's persisted start time: a page reload resumes mid-simulation instead of
// restarting from zero.
type Progress struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
	Elapsed int64  `json:"elapsed_seconds"`
}

type stage struct {
	after   time.Duration
	message string
}

var avatarStages = []stage{
	{0, "Scanner: mapping facial structure"},
	{2 * time.Second, "Identity: preserving unique features"},
	{6 * time.Second, "Composition: aligning pose and body"},
	{12 * time.Second, "Detailing: generating realistic skin"},
	{18 * time.Second, "Lighting: ray-tracing illumination"},
	{32 * time.Second, "Polishing: blending visual elements"},
	{42 * time.Second, "Studio: developing final photograph"},
}

var videoStages = []stage{
	{0, "Queue: contacting render farm"},
	{5 * time.Second, "Analyst: extracting image context"},
	{15 * time.Second, "Tokenizer: parsing lighting and style"},
	{25 * time.Second, "Router: selecting workflow"},
	{35 * time.Second, "Loader: loading model checkpoint"},
	{50 * time.Second, "Sampler: refining motion data"},
}

// ExpectedDuration is the typical wall time per kind used to scale the
// progress bar.
func ExpectedDuration(kind domain.JobKind) time.Duration {
	switch kind {
	case domain.JobKindVideo:
		return 6 * time.Minute
	default:
		return 50 * time.Second
	}
}

// ProgressAt computes the simulated progress for a job of the given kind that
// started at startedAt, evaluated at now.
func ProgressAt(kind domain.JobKind, startedAt, now time.Time) Progress {
	elapsed := now.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	expected := ExpectedDuration(kind)
	percent := int(elapsed * 100 / expected)
	// Never show completion before a real result arrives.
	if percent > 99 {
		percent = 99
	}

	stages := avatarStages
	if kind == domain.JobKindVideo {
		stages = videoStages
	}
	current := stages[0].message
	for _, s := range stages {
		if elapsed >= s.after {
			current = s.message
		}
	}
	return Progress{
		Percent: percent,
		Stage:   current,
		Elapsed: int64(elapsed / time.Second),
	}
}
