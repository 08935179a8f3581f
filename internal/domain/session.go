package domain

import "time"

// ActiveSession is the persisted tuple that lets the UI resume monitoring an
// in-flight job after a reload. StartedAt is the client-local submission time;
// elapsed-time-dependent progress must be computed against it, never reset.
type ActiveSession struct {
	JobID     string    `json:"id"`
	Kind      JobKind   `json:"kind"`
	ImageURL  string    `json:"image_url,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	BeforeURL string    `json:"before_url,omitempty"`
	StartedAt time.Time `json:"start_time"`
}
