// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-engine/internal/bundle"
	"github.com/pdiddy/article-engine/internal/sink"
)

var packageCmd = &cobra.Command{
	Use:   "package [patterns...]",
	Short: "Zip project files into the downloads folder",
	Long: `Package collects the files matching the given glob patterns (doublestar
syntax, relative to --root) into zipped_file_<date>.zip in the downloads
folder. With --extract the archive is unpacked there and then removed.

Without patterns the project's Go sources, go.mod, Markdown and YAML files
in --root are packaged.`,
	Example: `  article-engine package
  article-engine package "**/*.md" --extract`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		root, _ := cmd.Flags().GetString("root")
		extract, _ := cmd.Flags().GetBool("extract")
		return packageFiles(cmd, cfg.Output.DownloadsDir, root, args, extract)
	},
}

func packageFiles(cmd *cobra.Command, downloads, root string, patterns []string, extract bool) error {
	dest, err := sink.DownloadsDir(downloads)
	if err != nil {
		return err
	}
	report, err := bundle.Package(bundle.Options{
		Root:     root,
		Patterns: patterns,
		Dest:     dest,
		Extract:  extract,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range report.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	if extract {
		fmt.Fprintf(out, "Extracted %s into %s\n", report, dest)
	} else {
		fmt.Fprintf(out, "Packaged %s\n", report)
	}
	return nil
}

func init() {
	packageCmd.Flags().String("root", ".", "directory to collect files from")
	packageCmd.Flags().Bool("extract", false, "unpack into the downloads folder and delete the archive")
	packageCmd.Flags().String("output", "", "destination directory (default ~/Downloads)")

	rootCmd.AddCommand(packageCmd)
}
