// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs an ordered list of generation stages against a
// shared, append-only context and compiles their outputs into an artifact.
//
// Stages execute strictly one at a time in declared order. Each stage
// resolves its instruction template, calls the generator, validates the
// result against its output contract, and appends the normalized text to
// the run's context store. Invalid output is retried with corrective
// feedback up to the actor's attempt budget. A Pipeline holds no per-run
// state, so concurrent runs on the same Pipeline are independent.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/article-engine/internal/contract"
	"github.com/pdiddy/article-engine/internal/generate"
)

// backoffBase controls the base delay before retrying a transient
// generation error. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// compileStage names the compiler in failures and events.
const compileStage = "compile"

// Compiler reduces the context of a finished run to an artifact. It must
// only read from view.
type Compiler interface {
	Compile(view View, topics []string) (*Artifact, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(view View, topics []string) (*Artifact, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(view View, topics []string) (*Artifact, error) {
	return f(view, topics)
}

// Pipeline is a validated, immutable stage sequence.
type Pipeline struct {
	gen         generate.Generator
	stages      []*boundStage
	compiler    Compiler
	topicsStage string
	maxAttempts int
	logger      *slog.Logger
	observer    Observer
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCompiler sets the final reduction step. Required.
func WithCompiler(c Compiler) Option {
	return func(p *Pipeline) { p.compiler = c }
}

// WithTopicsStage names the stage whose numbered-list output supplies the
// subtopics for subtopic-bound stages and for the compiler.
func WithTopicsStage(name string) Option {
	return func(p *Pipeline) { p.topicsStage = name }
}

// WithMaxAttempts overrides every actor's attempt budget when n > 0.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) { p.maxAttempts = n }
}

// WithLogger sets the structured logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver receives progress events.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New validates the stage wiring and returns a Pipeline. Every wiring
// problem is reported as a *Failure of kind ConfigurationError: duplicate
// or empty names, missing contracts, dependencies that are absent from the
// pipeline or declared later, explicit dependencies of a required stage on
// an optional one, and subtopic-bound stages without an earlier topics
// stage.
func New(gen generate.Generator, stages []Stage, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		gen:    gen,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if gen == nil {
		return nil, configError("", "no generator configured")
	}
	if p.compiler == nil {
		return nil, configError("", "no compiler configured")
	}
	if len(stages) == 0 {
		return nil, configError("", "pipeline has no stages")
	}

	all := make(map[string]bool, len(stages))
	for _, st := range stages {
		all[st.Name] = true
	}

	position := make(map[string]int, len(stages))
	optional := make(map[string]bool)
	for i, st := range stages {
		if st.Name == "" {
			return nil, configError("", "stage %d has no name", i+1)
		}
		if _, dup := position[st.Name]; dup {
			return nil, configError(st.Name, "duplicate stage name %q", st.Name)
		}
		if st.Contract == nil {
			return nil, configError(st.Name, "no output contract")
		}
		if st.Actor.Role == "" {
			return nil, configError(st.Name, "actor %q has no role", st.Actor.Name)
		}
		if st.Item < 0 {
			return nil, configError(st.Name, "negative subtopic index %d", st.Item)
		}
		if st.Item > 0 {
			if p.topicsStage == "" {
				return nil, configError(st.Name, "subtopic-bound stage needs a topics stage")
			}
			if _, ok := position[p.topicsStage]; !ok {
				return nil, configError(st.Name, "topics stage %q must come before subtopic-bound stages", p.topicsStage)
			}
		}

		b := &boundStage{Stage: st}
		var err error
		if b.instruction, err = parseTemplate(st.Name, st.Instruction); err != nil {
			return nil, configError(st.Name, "parsing instruction: %v", err)
		}
		if b.goal, err = parseTemplate(st.Name+"/goal", st.Actor.Goal); err != nil {
			return nil, configError(st.Name, "parsing goal of actor %s: %v", st.Actor.Name, err)
		}
		if b.backstory, err = parseTemplate(st.Name+"/backstory", st.Actor.Backstory); err != nil {
			return nil, configError(st.Name, "parsing backstory of actor %s: %v", st.Actor.Name, err)
		}

		if st.DependsOn == nil {
			b.implicit = true
			for _, prev := range stages[:i] {
				b.deps = append(b.deps, prev.Name)
			}
		} else {
			for _, dep := range st.DependsOn {
				if !all[dep] {
					return nil, configError(st.Name, "unsatisfiable dependency %q: no such stage", dep)
				}
				if _, earlier := position[dep]; !earlier {
					return nil, configError(st.Name, "dependency %q is declared after the stage", dep)
				}
				if optional[dep] && !st.Optional {
					return nil, configError(st.Name, "required stage depends on optional stage %q", dep)
				}
				b.deps = append(b.deps, dep)
			}
		}

		position[st.Name] = i
		if st.Optional {
			optional[st.Name] = true
		}
		p.stages = append(p.stages, b)
	}

	if p.topicsStage != "" {
		if _, ok := position[p.topicsStage]; !ok {
			return nil, configError(p.topicsStage, "topics stage is not part of the pipeline")
		}
	}
	return p, nil
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, b := range p.stages {
		names[i] = b.Name
	}
	return names
}

// run carries the mutable state of one execution.
type run struct {
	*Result
	store  *Store
	topics []string
	log    *slog.Logger
}

// Run executes every stage for topic and compiles the artifact. The
// returned Result is never nil; on failure it carries the entries produced
// so far and err is the same *Failure as Result.Failure.
func (p *Pipeline) Run(ctx context.Context, topic string, itemCount int) (*Result, error) {
	r := &run{
		Result: &Result{
			ID:        uuid.NewString(),
			Topic:     topic,
			ItemCount: itemCount,
			State:     Pending,
			StartedAt: p.now(),
		},
		store: NewStore(),
	}
	r.log = p.logger.With(slog.String("run", r.ID), slog.String("topic", topic))

	if f := p.checkInput(topic, itemCount); f != nil {
		return p.fail(r, f)
	}

	p.setState(r, Running)

	for _, b := range p.stages {
		if err := ctx.Err(); err != nil {
			return p.fail(r, &Failure{Kind: Cancelled, Stage: b.Name, Err: err})
		}

		if missing := p.missingDependency(b, r); missing != "" {
			if !b.Optional {
				return p.fail(r, &Failure{Kind: ConfigurationError, Stage: b.Name, Err: fmt.Errorf("dependency %s has no entry", missing)})
			}
			r.Skipped = append(r.Skipped, b.Name)
			r.log.Warn("stage skipped", slog.String("stage", b.Name), slog.String("missing_dependency", missing))
			p.emit(r, Event{Kind: EventStageSkipped, Stage: b.Name, Err: fmt.Errorf("dependency %s was skipped", missing)})
			continue
		}

		text, attempts, f := p.runStage(ctx, b, r)
		if f != nil {
			if b.Optional && f.Kind == StageContractViolation {
				r.Skipped = append(r.Skipped, b.Name)
				r.log.Warn("optional stage skipped", slog.String("stage", b.Name), slog.Any("error", f.Err))
				p.emit(r, Event{Kind: EventStageSkipped, Stage: b.Name, Err: f})
				continue
			}
			return p.fail(r, f)
		}

		e, err := r.store.Append(b.Name, text, attempts)
		if err != nil {
			return p.fail(r, &Failure{Kind: ConfigurationError, Stage: b.Name, Err: err})
		}
		r.log.Info("stage completed", slog.String("stage", b.Name), slog.Int("attempts", attempts))
		p.emit(r, Event{Kind: EventStageCompleted, Stage: b.Name, Attempt: attempts})

		if b.Name == p.topicsStage {
			topics, err := contract.ParseNumberedList(e.Text)
			if err != nil {
				return p.fail(r, &Failure{Kind: StageContractViolation, Stage: b.Name, Err: err})
			}
			r.topics = topics
		}
	}

	artifact, err := p.compiler.Compile(r.store.View(), r.topics)
	if err == nil && artifact == nil {
		err = errors.New("compiler returned no artifact")
	}
	if err != nil {
		return p.fail(r, &Failure{Kind: StageContractViolation, Stage: compileStage, Err: err})
	}
	artifact.Topic = topic

	r.Artifact = artifact
	r.Entries = r.store.Entries()
	r.FinishedAt = p.now()
	p.setState(r, Succeeded)
	return r.Result, nil
}

func (p *Pipeline) checkInput(topic string, itemCount int) *Failure {
	if topic == "" {
		return configError("", "topic must not be empty")
	}
	if itemCount < 1 {
		return configError("", "item count must be at least 1, got %d", itemCount)
	}
	for _, b := range p.stages {
		if b.Item > itemCount {
			return configError(b.Name, "stage needs subtopic %d but the run has %d", b.Item, itemCount)
		}
	}
	return nil
}

// missingDependency returns the first declared dependency without an
// entry. Implicit dependencies on skipped optional stages are ignored.
func (p *Pipeline) missingDependency(b *boundStage, r *run) string {
	for _, dep := range b.deps {
		if r.store.Has(dep) {
			continue
		}
		if b.implicit && r.wasSkipped(dep) {
			continue
		}
		return dep
	}
	return ""
}

func (r *run) wasSkipped(stage string) bool {
	for _, s := range r.Skipped {
		if s == stage {
			return true
		}
	}
	return false
}

// runStage generates and validates output for one stage, retrying up to
// the attempt budget. It returns the normalized text and the number of
// generation calls made.
func (p *Pipeline) runStage(ctx context.Context, b *boundStage, r *run) (string, int, *Failure) {
	data := PromptData{Topic: r.Topic, ItemCount: r.ItemCount, Item: b.Item}
	if b.Item > 0 {
		if b.Item > len(r.topics) {
			return "", 0, configError(b.Name, "topics stage produced %d subtopics, stage needs subtopic %d", len(r.topics), b.Item)
		}
		data.Subtopic = r.topics[b.Item-1]
	}

	system, err := b.persona(data)
	if err != nil {
		return "", 0, &Failure{Kind: ConfigurationError, Stage: b.Name, Err: err}
	}
	prompt, err := b.prompt(data, r.store)
	if err != nil {
		return "", 0, &Failure{Kind: ConfigurationError, Stage: b.Name, Err: err}
	}

	maxAttempts := b.Actor.Attempts()
	if p.maxAttempts > 0 {
		maxAttempts = p.maxAttempts
	}
	log := r.log.With(slog.String("stage", b.Name), slog.String("actor", b.Actor.Name))
	if b.Actor.AllowDelegation {
		log.Debug("actor allows delegation; stage still runs in declared order")
	}

	var (
		lastErr   error
		rejection error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && rejection == nil {
			// The previous attempt failed in the generator, not validation.
			backoff := time.Duration(math.Pow(2, float64(attempt-2))) * backoffBase
			select {
			case <-ctx.Done():
				return "", attempt - 1, &Failure{Kind: Cancelled, Stage: b.Name, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		p.emit(r, Event{Kind: EventStageStarted, Stage: b.Name, Attempt: attempt})
		log.Debug("generating", slog.Int("attempt", attempt))

		raw, err := p.gen.Generate(ctx, generate.Request{
			Stage:   b.Name,
			Actor:   b.Actor.Name,
			System:  system,
			Prompt:  withFeedback(prompt, rejection, b.Contract.Describe()),
			Hint:    b.Contract.Describe(),
			Attempt: attempt,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", attempt, &Failure{Kind: Cancelled, Stage: b.Name, Err: ctx.Err()}
			}
			if errors.Is(err, generate.ErrUnavailable) {
				return "", attempt, &Failure{Kind: GenerationUnavailable, Stage: b.Name, Err: err}
			}
			lastErr = &Failure{Kind: GenerationError, Stage: b.Name, Err: err}
			rejection = nil
			log.Warn("generation failed", slog.Int("attempt", attempt), slog.Any("error", err))
			p.emit(r, Event{Kind: EventStageRejected, Stage: b.Name, Attempt: attempt, Err: lastErr})
			continue
		}
		if b.Actor.Verbose {
			log.Info("generation result", slog.Int("attempt", attempt), slog.String("text", raw))
		}

		text, err := contract.Validate(raw, b.Contract)
		if err != nil {
			lastErr = err
			rejection = err
			log.Warn("output rejected", slog.Int("attempt", attempt), slog.Any("error", err))
			p.emit(r, Event{Kind: EventStageRejected, Stage: b.Name, Attempt: attempt, Err: err})
			continue
		}
		return text, attempt, nil
	}

	return "", maxAttempts, &Failure{
		Kind:  StageContractViolation,
		Stage: b.Name,
		Err:   fmt.Errorf("no valid output after %d attempt(s): %w", maxAttempts, lastErr),
	}
}

func (p *Pipeline) fail(r *run, f *Failure) (*Result, error) {
	r.Failure = f
	r.Artifact = nil
	r.Entries = r.store.Entries()
	r.FinishedAt = p.now()
	r.log.Error("run failed", slog.String("kind", string(f.Kind)), slog.String("stage", f.Stage), slog.Any("error", f.Err))
	p.setState(r, Failed)
	return r.Result, f
}

func (p *Pipeline) setState(r *run, s State) {
	r.State = s
	p.emit(r, Event{Kind: EventStateChanged, State: s})
}

func (p *Pipeline) emit(r *run, e Event) {
	if p.observer == nil {
		return
	}
	e.RunID = r.ID
	e.Topic = r.Topic
	if e.Kind != EventStateChanged {
		e.State = r.State
	}
	p.observer.Observe(e)
}
