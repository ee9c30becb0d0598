// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pdiddy/article-engine/internal/archive"
	"github.com/pdiddy/article-engine/internal/crew"
	"github.com/pdiddy/article-engine/internal/generate"
	"github.com/pdiddy/article-engine/internal/pipeline"
	"github.com/pdiddy/article-engine/internal/sink"
	"github.com/pdiddy/article-engine/pkg/types"
)

// engine holds what the generating commands share: the crew, the
// generator, the output sink and the optional run archive.
type engine struct {
	cfg     types.Config
	def     *crew.Definition
	gen     generate.Generator
	sink    *sink.Sink
	archive *archive.Store
	out     io.Writer
	logger  *slog.Logger
}

func newEngine(cfg types.Config, out io.Writer) (*engine, error) {
	def, err := crew.Load(cfg.Pipeline.CrewFile)
	if err != nil {
		return nil, err
	}
	gen, err := generate.New(cfg.Generation, &http.Client{Timeout: cfg.Generation.Timeout})
	if err != nil {
		return nil, err
	}
	s, err := sink.New(cfg.Output.DownloadsDir)
	if err != nil {
		return nil, err
	}

	e := &engine{cfg: cfg, def: def, gen: gen, sink: s, out: out, logger: slog.Default()}
	if cfg.Archive.Enabled {
		if e.archive, err = archive.Open(cfg.Archive.Path); err != nil {
			return nil, err
		}
	}
	fmt.Fprintln(out, "Downloads folder is:", s.Dir)
	return e, nil
}

func (e *engine) Close() error {
	if e.archive != nil {
		return e.archive.Close()
	}
	return nil
}

func (e *engine) options() []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithLogger(e.logger),
		pipeline.WithObserver(&progress{w: e.out}),
	}
}

// articles runs the full crew for every topic.
func (e *engine) articles(ctx context.Context, topics []string) error {
	p, err := crew.NewPipeline(e.gen, e.def, e.cfg.Pipeline, e.options()...)
	if err != nil {
		return err
	}
	return e.runAll(ctx, p, topics)
}

// titles runs only the planning stage for every topic.
func (e *engine) titles(ctx context.Context, topics []string) error {
	p, err := crew.NewTitlesPipeline(e.gen, e.def, e.cfg.Pipeline, e.options()...)
	if err != nil {
		return err
	}
	return e.runAll(ctx, p, topics)
}

func (e *engine) runAll(ctx context.Context, p *pipeline.Pipeline, topics []string) error {
	results := p.RunAll(ctx, topics, e.cfg.Pipeline.ItemCount, e.cfg.Pipeline.Parallel)

	var errs []error
	for _, res := range results {
		if err := e.finish(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(topics) > 1 {
		errs = append(errs, fmt.Errorf("%d of %d runs failed", len(errs), len(topics)))
	}
	return errors.Join(errs...)
}

// finish archives a result and writes its document.
func (e *engine) finish(ctx context.Context, res *pipeline.Result) error {
	if e.archive != nil {
		if err := e.archive.SaveRun(ctx, res.Record()); err != nil {
			e.logger.Warn("could not archive run", slog.String("run", res.ID), slog.Any("error", err))
		}
	}
	if res.Failure != nil {
		return fmt.Errorf("run failed for %q: %w", res.Topic, res.Failure)
	}

	path, err := e.sink.Write(res.Topic, res.Artifact.Document)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "\n%s: wrote %s (%d sections", res.Topic, path, len(res.Artifact.Sections))
	if n := len(res.Skipped); n > 0 {
		fmt.Fprintf(e.out, ", %d unverified", n)
	}
	fmt.Fprintf(e.out, ", run %s)\n", res.ID)
	return nil
}

// progress prints stage events for the user. Concurrent runs share it.
type progress struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *progress) Observe(ev pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case pipeline.EventStateChanged:
		if ev.State == pipeline.Running {
			fmt.Fprintf(p.w, "[%s] starting run %s\n", ev.Topic, ev.RunID)
		}
	case pipeline.EventStageStarted:
		if ev.Attempt > 1 {
			fmt.Fprintf(p.w, "[%s] %s: attempt %d\n", ev.Topic, ev.Stage, ev.Attempt)
		}
	case pipeline.EventStageRejected:
		reason := "output rejected"
		if ev.Transient() {
			reason = "generation failed"
		}
		fmt.Fprintf(p.w, "[%s] %s: %s: %v\n", ev.Topic, ev.Stage, reason, ev.Err)
	case pipeline.EventStageCompleted:
		fmt.Fprintf(p.w, "[%s] %s done\n", ev.Topic, ev.Stage)
	case pipeline.EventStageSkipped:
		fmt.Fprintf(p.w, "[%s] %s skipped: %v\n", ev.Topic, ev.Stage, ev.Err)
	}
}
