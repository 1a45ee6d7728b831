package store

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one merge job.
type Run struct {
	ID        string
	Output    string
	StartedAt time.Time
	// FinishedAt is zero while the run is in progress.
	FinishedAt  time.Time
	Status      RunStatus
	Error       string
	Classes     int
	Divergences int
}

// RunResult is what FinishRun records.
type RunResult struct {
	Status      RunStatus
	Error       string
	Classes     int
	Divergences int
}

// VersionRecord is one ingested version of a run. Seq is the ingestion
// order, starting at 0.
type VersionRecord struct {
	Seq      int      `json:"seq"`
	Label    string   `json:"label"`
	Roots    []string `json:"roots"`
	Classes  int      `json:"classes"`
	Filtered int      `json:"filtered"`
	Warnings int      `json:"warnings"`
}

// Warning is one skipped artifact.
type Warning struct {
	Version  string `json:"version"`
	Artifact string `json:"artifact"`
	Message  string `json:"message"`
}

// ClassRecord is one emitted class.
type ClassRecord struct {
	FQName string `json:"fq_name"`
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}
