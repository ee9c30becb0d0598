// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/article-engine/internal/archive"
	"github.com/pdiddy/article-engine/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse, search and export recorded runs",
	Long: `History reads the SQLite run archive. Every run, successful or not, is
recorded with the validated output of each stage, so earlier documents and
research can be listed, searched with full-text queries, and exported.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withArchive(cmd, func(s *archive.Store) error {
			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs, time.Now())
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one run's document, or its stage outputs with --entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, _ := cmd.Flags().GetBool("entries")
		return withArchive(cmd, func(s *archive.Store) error {
			rec, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRun(cmd.OutOrStdout(), rec, entries)
			return nil
		})
	},
}

var historySearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Full-text search over recorded stage outputs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withArchive(cmd, func(s *archive.Store) error {
			hits, err := s.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(out, "%s  %-14s  %s\n    %s\n", shortID(h.RunID), h.Stage, h.Topic, h.Snippet)
			}
			fmt.Fprintf(out, "\n%d results\n", len(hits))
			return nil
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every recorded run to YAML or JSON on stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withArchive(cmd, func(s *archive.Store) error {
			return s.Export(cmd.Context(), cmd.OutOrStdout(), format)
		})
	},
}

func withArchive(cmd *cobra.Command, fn func(*archive.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printRuns(w io.Writer, runs []types.RunRecord, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-9s  %-5s  %-14s  %-8s  %s\n", "ID", "State", "Items", "Started", "Took", "Topic")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(w, "%-8s  %-9s  %-5d  %-14s  %-8s  %s\n",
			shortID(r.ID), r.State, r.ItemCount,
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.Duration().Round(time.Second), r.Topic)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func printRun(w io.Writer, r types.RunRecord, entries bool) {
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Topic:    %s (%d subtopics)\n", r.Topic, r.ItemCount)
	fmt.Fprintf(w, "State:    %s\n", r.State)
	fmt.Fprintf(w, "Started:  %s (took %s)\n", r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Second))
	if r.FailureKind != "" {
		fmt.Fprintf(w, "Failure:  %s at stage %s: %s\n", r.FailureKind, r.FailureStage, r.FailureError)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped:  %s\n", strings.Join(r.Skipped, ", "))
	}
	fmt.Fprintln(w)

	if entries || r.Document == "" {
		for _, e := range r.Entries {
			fmt.Fprintf(w, "--- %d. %s (%d attempt(s)) ---\n%s\n\n", e.Seq, e.Stage, e.Attempts, e.Text)
		}
		return
	}
	fmt.Fprintln(w, r.Document)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.PersistentFlags().String("archive", "", "run history database (default from config: output/history.db)")

	historyListCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	historyShowCmd.Flags().Bool("entries", false, "print every stage output instead of the document")
	historySearchCmd.Flags().Int("limit", 20, "maximum results")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
