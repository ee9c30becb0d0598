// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/article-engine/internal/archive"
	"github.com/pdiddy/article-engine/internal/crew"
	"github.com/pdiddy/article-engine/internal/generate"
	"github.com/pdiddy/article-engine/internal/pipeline"
	"github.com/pdiddy/article-engine/internal/sink"
	"github.com/pdiddy/article-engine/pkg/types"
)

// crewReplies answers every stage of the built-in crew with valid output.
func crewReplies(_ context.Context, req generate.Request) (string, error) {
	base, item, _ := strings.Cut(req.Stage, "/")
	switch base {
	case "plan":
		return "1. Solar Power\n2. Wind Power", nil
	case "research":
		return "Research Findings\n- finding " + item + "\nSource Links\n1. https://research.example.org/" + item, nil
	case "links":
		return "1. https://links.example.org/" + item, nil
	case "article":
		return "## Introduction\nArticle " + item + " covers the subject in enough words.", nil
	case "factcheck":
		return "Fact Check Report\nAll accurate.\nRevised Article\nChecked article " + item + " covers the subject.", nil
	case "overview":
		return strings.TrimSpace(strings.Repeat("word ", 50)), nil
	}
	return "", fmt.Errorf("unexpected stage %s: %w", req.Stage, generate.ErrUnavailable)
}

func testEngine(t *testing.T, gen generate.Generator) (*engine, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := types.Defaults()
	cfg.Pipeline.ItemCount = 2
	cfg.Pipeline.MinWords = 3
	cfg.Pipeline.Parallel = 2

	def, err := crew.Default()
	require.NoError(t, err)
	store, err := archive.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var out bytes.Buffer
	return &engine{
		cfg:     cfg,
		def:     def,
		gen:     gen,
		sink:    &sink.Sink{Dir: dir, Now: time.Now},
		archive: store,
		out:     &out,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, &out
}

func TestEngineArticlesWritesAndArchives(t *testing.T) {
	e, out := testEngine(t, generate.Func(crewReplies))

	require.NoError(t, e.articles(context.Background(), []string{"renewable energy"}))

	files, err := filepath.Glob(filepath.Join(e.sink.Dir, sink.FilePrefix+"*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	doc := string(data)
	assert.True(t, strings.HasPrefix(doc, "# Theme: renewable energy\n\n---\n\n## Overview"))
	assert.Contains(t, doc, "## 2. Wind Power")
	assert.Contains(t, doc, "Checked article 01")

	runs, err := e.archive.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "succeeded", runs[0].State)

	assert.Contains(t, out.String(), "[renewable energy] research/01 done")
	assert.Contains(t, out.String(), "wrote "+files[0])
}

func TestEngineFailureIsReportedAndArchived(t *testing.T) {
	gen := generate.Func(func(ctx context.Context, req generate.Request) (string, error) {
		if strings.HasPrefix(req.Stage, "article/") {
			return "", fmt.Errorf("no key: %w", generate.ErrUnavailable)
		}
		return crewReplies(ctx, req)
	})
	e, _ := testEngine(t, gen)

	err := e.articles(context.Background(), []string{"solar", "wind"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GenerationUnavailable at stage article/01")
	assert.Contains(t, err.Error(), "2 of 2 runs failed")

	runs, err := e.archive.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "failed", r.State)
		assert.Equal(t, "article/01", r.FailureStage)
	}
}

func TestEngineTitles(t *testing.T) {
	e, _ := testEngine(t, generate.Func(crewReplies))
	require.NoError(t, e.titles(context.Background(), []string{"energy"}))

	files, err := filepath.Glob(filepath.Join(e.sink.Dir, sink.FilePrefix+"*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "# Theme: energy\n\n---\n\n## Article Titles\n\n1. Solar Power\n2. Wind Power\n", string(data))
}

func TestProgressObserver(t *testing.T) {
	var buf bytes.Buffer
	p := &progress{w: &buf}
	p.Observe(pipeline.Event{Kind: pipeline.EventStateChanged, State: pipeline.Running, Topic: "t", RunID: "r1"})
	p.Observe(pipeline.Event{Kind: pipeline.EventStageStarted, Topic: "t", Stage: "plan", Attempt: 1})
	p.Observe(pipeline.Event{Kind: pipeline.EventStageRejected, Topic: "t", Stage: "plan", Attempt: 1, Err: fmt.Errorf("missing heading")})
	p.Observe(pipeline.Event{Kind: pipeline.EventStageStarted, Topic: "t", Stage: "plan", Attempt: 2})
	p.Observe(pipeline.Event{Kind: pipeline.EventStageCompleted, Topic: "t", Stage: "plan", Attempt: 2})
	p.Observe(pipeline.Event{Kind: pipeline.EventStageSkipped, Topic: "t", Stage: "factcheck/01", Err: fmt.Errorf("exhausted")})

	assert.Equal(t, strings.Join([]string{
		"[t] starting run r1",
		"[t] plan: output rejected: missing heading",
		"[t] plan: attempt 2",
		"[t] plan done",
		"[t] factcheck/01 skipped: exhausted",
		"",
	}, "\n"), buf.String())
}

func TestTopicsFromFlags(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "x"}
		cmd.Flags().StringArray("topic", nil, "")
		return cmd
	}

	cmd := newCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--topic", "solar", "--topic", " wind "}))
	topics, err := topicsFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"solar", "wind"}, topics)

	t.Setenv("TOPIC", "from env")
	topics, err = topicsFromFlags(newCmd())
	require.NoError(t, err)
	assert.Equal(t, []string{"from env"}, topics)

	t.Setenv("TOPIC", "")
	_, err = topicsFromFlags(newCmd())
	assert.Error(t, err)
}

func TestPrintRuns(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printRuns(&buf, []types.RunRecord{{
		ID:         "0123456789abcdef",
		Topic:      "energy",
		ItemCount:  3,
		State:      "succeeded",
		StartedAt:  now.Add(-2 * time.Hour),
		FinishedAt: now.Add(-2*time.Hour + 75*time.Second),
	}}, now)

	out := buf.String()
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "1m15s")
	assert.Contains(t, out, "1 runs")

	buf.Reset()
	printRuns(&buf, nil, now)
	assert.Equal(t, "No runs recorded.\n", buf.String())
}

func TestPrintRunShowsEntriesForFailedRun(t *testing.T) {
	var buf bytes.Buffer
	printRun(&buf, types.RunRecord{
		ID:           "run-1",
		Topic:        "energy",
		State:        "failed",
		FailureKind:  "StageContractViolation",
		FailureStage: "links/01",
		FailureError: "no valid output",
		Entries:      []types.EntryRecord{{Seq: 1, Stage: "plan", Attempts: 1, Text: "1. Solar"}},
	}, false)

	out := buf.String()
	assert.Contains(t, out, "Failure:  StageContractViolation at stage links/01: no valid output")
	assert.Contains(t, out, "--- 1. plan (1 attempt(s)) ---\n1. Solar")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false, "text").Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, true, "json").Debug("shown", slog.String("stage", "plan"))
	assert.Contains(t, buf.String(), `"stage":"plan"`)
}

func TestConfigDefaultsCoverEveryFlag(t *testing.T) {
	keys := configDefaults(types.Defaults())
	for flag, key := range flagKeys {
		_, ok := keys[key]
		assert.True(t, ok, "flag --%s maps to unknown key %s", flag, key)
	}
}
