// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"time"

	"github.com/pdiddy/article-engine/pkg/types"
)

// State is the lifecycle position of a run.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Section is one topic of a compiled artifact.
type Section struct {
	Heading   string
	Body      string
	Resources []string

	// Verified is false when the body did not pass through a fact-check.
	Verified bool
}

// Artifact is the compiled output of a successful run.
type Artifact struct {
	Topic    string
	Sections []Section

	// Document is the rendered Markdown.
	Document string
}

// Result describes one run. Artifact is set only when State is Succeeded;
// Failure only when State is Failed. Entries holds whatever the context
// store contained when the run ended.
type Result struct {
	ID        string
	Topic     string
	ItemCount int
	State     State
	Artifact  *Artifact
	Failure   *Failure
	Entries   []Entry

	// Skipped lists optional stages that exhausted their attempts.
	Skipped []string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Record converts the result to its archived form.
func (r *Result) Record() types.RunRecord {
	rec := types.RunRecord{
		ID:         r.ID,
		Topic:      r.Topic,
		ItemCount:  r.ItemCount,
		State:      r.State.String(),
		Skipped:    append([]string(nil), r.Skipped...),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Artifact != nil {
		rec.Document = r.Artifact.Document
	}
	if r.Failure != nil {
		rec.FailureKind = string(r.Failure.Kind)
		rec.FailureStage = r.Failure.Stage
		if r.Failure.Err != nil {
			rec.FailureError = r.Failure.Err.Error()
		}
	}
	for _, e := range r.Entries {
		rec.Entries = append(rec.Entries, types.EntryRecord{
			Seq:      e.Seq,
			Stage:    e.Stage,
			Attempts: e.Attempts,
			Text:     e.Text,
		})
	}
	return rec
}

// EventKind identifies a progress event.
type EventKind string

const (
	EventStateChanged   EventKind = "state"
	EventStageStarted   EventKind = "started"
	EventStageRejected  EventKind = "rejected"
	EventStageCompleted EventKind = "completed"
	EventStageSkipped   EventKind = "skipped"
)

// Event reports run progress to an Observer.
type Event struct {
	RunID   string
	Topic   string
	Kind    EventKind
	State   State
	Stage   string
	Attempt int

	// Err is the rejection or skip reason.
	Err error
}

// Transient reports whether a rejection came from the generator rather
// than from output validation.
func (e Event) Transient() bool {
	var f *Failure
	return e.Err != nil && errors.As(e.Err, &f) && f.Kind == GenerationError
}

// Observer receives progress events. Events of one run are delivered
// sequentially; an observer shared by concurrent runs must be safe for
// concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }
