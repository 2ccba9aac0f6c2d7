package model

import "time"

// RunStatus tracks the lifecycle of one synchronization pass.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunResult summarizes what a pass wrote to the record store.
type RunResult struct {
	VideoPageID    string `json:"video_page_id"`
	Mentions       int    `json:"mentions"`
	Dishes         int    `json:"dishes"`
	Places         int    `json:"places"`
	DegradedMerges int    `json:"degraded_merges"`
	EvidenceLines  int    `json:"evidence_lines"`
	Error          string `json:"error,omitempty"`
}

// Run is one recorded pipeline invocation for a video.
type Run struct {
	ID        string     `json:"id"`
	VideoID   string     `json:"video_id"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
