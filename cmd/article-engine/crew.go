// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-engine/internal/crew"
)

var crewCmd = &cobra.Command{
	Use:   "crew",
	Short: "Inspect the crew definition",
}

var crewDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective crew definition as YAML",
	Long: `Dump prints the crew in use: the file named by --crew or pipeline.crew_file,
or the built-in crew. Redirect it to a file to start a custom crew.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		def, err := crew.Load(cfg.Pipeline.CrewFile)
		if err != nil {
			return err
		}
		data, err := def.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var crewStagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List the concrete stages a run executes, in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		def, err := crew.Load(cfg.Pipeline.CrewFile)
		if err != nil {
			return err
		}
		stages, err := def.Expand(cfg.Pipeline.ItemCount, cfg.Pipeline.MinWords, cfg.Pipeline.MaxWords)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, s := range stages {
			deps := "all earlier stages"
			if s.DependsOn != nil {
				deps = strings.Join(s.DependsOn, ", ")
				if deps == "" {
					deps = "none"
				}
			}
			optional := ""
			if s.Optional {
				optional = " (optional)"
			}
			fmt.Fprintf(out, "%2d. %-14s %-22s%s\n    needs: %s\n    output: %s\n",
				i+1, s.Name, s.Actor.Role, optional, deps, s.Contract.Describe())
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{crewDumpCmd, crewStagesCmd} {
		c.Flags().String("crew", "", "crew definition YAML (default: built-in)")
	}
	crewStagesCmd.Flags().IntP("count", "n", 0, "number of subtopics (default from config: 3)")
	crewStagesCmd.Flags().Int("min-words", 0, "minimum words per article")
	crewStagesCmd.Flags().Int("max-words", 0, "maximum words per article")

	crewCmd.AddCommand(crewDumpCmd)
	crewCmd.AddCommand(crewStagesCmd)
	rootCmd.AddCommand(crewCmd)
}
