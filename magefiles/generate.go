//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// topic reads the TOPIC environment variable the generation targets need.
func topic() (string, error) {
	t := os.Getenv("TOPIC")
	if t == "" {
		return "", fmt.Errorf("set TOPIC, e.g. TOPIC=\"renewable energy\" mage article")
	}
	return t, nil
}

// Article builds the CLI and generates a fact-checked document for $TOPIC.
// COUNT sets the number of subtopics.
func Article() error {
	mg.Deps(Build)
	t, err := topic()
	if err != nil {
		return err
	}
	args := []string{"run", "--topic", t}
	if n := os.Getenv("COUNT"); n != "" {
		args = append(args, "--count", n)
	}
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Titles builds the CLI and generates a list of article titles for $TOPIC.
func Titles() error {
	mg.Deps(Build)
	t, err := topic()
	if err != nil {
		return err
	}
	args := []string{"titles", "--topic", t}
	if n := os.Getenv("COUNT"); n != "" {
		args = append(args, "--count", n)
	}
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Package builds the CLI and zips the project sources into ~/Downloads.
func Package() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "package")
}
