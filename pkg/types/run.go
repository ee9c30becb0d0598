// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EntryRecord is one stage output as persisted in the run archive.
type EntryRecord struct {
	// Seq is the 1-based insertion position within the run.
	Seq int `json:"seq" yaml:"seq"`

	// Stage is the stage name that produced the text.
	Stage string `json:"stage" yaml:"stage"`

	// Attempts is the number of generation calls the stage needed.
	Attempts int `json:"attempts" yaml:"attempts"`

	// Text is the validated, normalized output.
	Text string `json:"text" yaml:"text"`
}

// RunRecord is the archived summary of one pipeline run.
type RunRecord struct {
	ID        string `json:"id" yaml:"id"`
	Topic     string `json:"topic" yaml:"topic"`
	ItemCount int    `json:"item_count" yaml:"item_count"`

	// State is "succeeded" or "failed".
	State string `json:"state" yaml:"state"`

	// FailureKind and FailureStage are set only for failed runs.
	FailureKind  string `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	FailureStage string `json:"failure_stage,omitempty" yaml:"failure_stage,omitempty"`
	FailureError string `json:"failure_error,omitempty" yaml:"failure_error,omitempty"`

	// Skipped lists optional stages that exhausted their attempts.
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Document is the compiled Markdown; empty for failed runs.
	Document string `json:"document,omitempty" yaml:"document,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Entries []EntryRecord `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
