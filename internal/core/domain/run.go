package domain

import "time"

// RunRecord is the stored summary of one ingest run.
type RunRecord struct {
	ID        string    `json:"id"`
	Namespace string    `json:"namespace"`
	Seeds     []string  `json:"seeds"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`

	Pages         int `json:"pages"`
	Chunks        int `json:"chunks"`
	Records       int `json:"records"`
	Upserted      int `json:"upserted"`
	FailedBatches int `json:"failedBatches"`

	// Error is set when the run aborted before upserting.
	Error string `json:"error,omitempty"`
}

// Succeeded returns true when the run finished and every batch was written.
func (r RunRecord) Succeeded() bool {
	return r.Error == "" && r.FailedBatches == 0
}

// Duration returns the wall time of the run.
func (r RunRecord) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
