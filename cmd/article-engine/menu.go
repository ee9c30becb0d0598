// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-engine/internal/menu"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Choose an action interactively",
	Long: `Menu offers the title generator, the article generator and file packaging
in a loop until you choose Exit. The topic defaults to $TOPIC.`,
	RunE: runMenu,
}

func runMenu(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	defaults := menu.Selection{Topic: os.Getenv("TOPIC"), Count: cfg.Pipeline.ItemCount}

	for {
		sel, err := menu.Run(cmd.InOrStdin(), out, defaults)
		if err != nil {
			return err
		}

		switch sel.Action {
		case menu.ActionExit:
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case menu.ActionPackage:
			err = packageFiles(cmd, cfg.Output.DownloadsDir, ".", nil, false)
		case menu.ActionTitles, menu.ActionArticles:
			defaults.Topic, defaults.Count = sel.Topic, sel.Count
			err = generateFromMenu(commandContext(cmd), cmd, sel)
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func generateFromMenu(parent context.Context, cmd *cobra.Command, sel menu.Selection) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Pipeline.ItemCount = sel.Count

	e, err := newEngine(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()
	if sel.Action == menu.ActionTitles {
		return e.titles(ctx, []string{sel.Topic})
	}
	return e.articles(ctx, []string{sel.Topic})
}

func init() {
	rootCmd.AddCommand(menuCmd)
}
