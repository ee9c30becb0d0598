// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a fact-checked article document for one or more topics",
	Long: `Run executes the article crew for each topic: the planner lists subtopics,
then every subtopic is researched, its sources collected, an article written
and fact-checked. The compiled document is written to the downloads folder
as Article_Topic_Generated_<date>.md.

Several --topic flags run independent crews; --parallel bounds how many run
at once. Articles whose fact check fails are kept and marked unverified.`,
	Example: `  article-engine run --topic "renewable energy" --count 3
  TOPIC="space exploration" article-engine run
  article-engine run --topic solar --topic wind --parallel 2`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	topics, err := topicsFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	e, err := newEngine(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()
	return e.articles(ctx, topics)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	addGenerationFlags(runCmd)
	runCmd.Flags().Int("min-words", 0, "minimum words per article (default from config: 400)")
	runCmd.Flags().Int("max-words", 0, "maximum words per article (default from config: 600)")
	runCmd.Flags().IntP("parallel", "p", 0, "topics to run at once (default from config: 1)")

	rootCmd.AddCommand(runCmd)
}
