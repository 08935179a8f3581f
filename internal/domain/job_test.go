package domain

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want JobStatus
	}{
		{"completed", JobStatusSucceeded},
		{"success", JobStatusSucceeded},
		{"Success", JobStatusSucceeded},
		{"SUCCEEDED", JobStatusSucceeded},
		{"failed", JobStatusFailed},
		{"error", JobStatusFailed},
		{"Error", JobStatusFailed},
		{"pending", JobStatusPending},
		{"queued", JobStatusPending},
		{"processing", JobStatusProcessing},
		{"running", JobStatusProcessing},
		{"canceled", JobStatusCanceled},
		{"cancelled", JobStatusCanceled},
		{"  completed  ", JobStatusSucceeded},
		{"definitely-not-a-status", JobStatusUnknown},
		{"", JobStatusUnknown},
	}
	for _, tc := range tests {
		if got := ParseStatus(tc.raw); got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusSucceeded, JobStatusFailed, JobStatusCanceled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusPending, JobStatusProcessing, JobStatusUnknown} {
		if s.IsTerminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestFinalURLPrecedence(t *testing.T) {
	job := &GenerationJob{
		ResultURL: "A",
		ImageURL:  "B",
		VideoURL:  "C",
		PlainURL:  "D",
	}
	if got := job.FinalURL(false); got != "A" {
		t.Fatalf("result_url should win, got %q", got)
	}

	job.ResultURL = ""
	if got := job.FinalURL(false); got != "B" {
		t.Fatalf("image_url should win on candidate rows, got %q", got)
	}
	// On the job's own row image_url holds the input, so it is skipped.
	if got := job.FinalURL(true); got != "C" {
		t.Fatalf("video_url should win on own row, got %q", got)
	}

	job.VideoURL = ""
	job.ImageURL = ""
	if got := job.FinalURL(false); got != "D" {
		t.Fatalf("url is the last fallback, got %q", got)
	}

	job.PlainURL = ""
	if got := job.FinalURL(false); got != "" {
		t.Fatalf("expected empty extraction, got %q", got)
	}
}
