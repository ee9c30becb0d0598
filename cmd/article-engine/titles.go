// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Generate a numbered list of article titles for a topic",
	Long: `Titles runs only the topic planner and writes the numbered list of
article titles to the downloads folder.`,
	Example: `  article-engine titles --topic "urban farming" --count 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		return e.titles(ctx, topics)
	},
}

func init() {
	addGenerationFlags(titlesCmd)
	rootCmd.AddCommand(titlesCmd)
}
