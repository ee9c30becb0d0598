// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink writes compiled documents to the downloads folder.
package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilePrefix starts the name of every article file.
const FilePrefix = "Article_Topic_Generated_"

// DownloadsDir returns dir, or ~/Downloads when dir is empty, creating it
// if it does not exist.
func DownloadsDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		dir = filepath.Join(home, "Downloads")
	} else if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating downloads directory: %w", err)
	}
	return dir, nil
}

// Stamp formats t as D-M-YYYY_H-M-S without zero padding.
func Stamp(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d_%d-%d-%d", t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute(), t.Second())
}

// FileName returns the article file name for a document written at t.
func FileName(t time.Time) string {
	return FilePrefix + Stamp(t) + ".md"
}

// Header is written above every document.
func Header(topic string) string {
	return "# Theme: " + topic + "\n\n---\n\n"
}

// Sink writes documents into one directory.
type Sink struct {
	Dir string
	Now func() time.Time
}

// New resolves the downloads directory (see DownloadsDir) and returns a
// Sink writing into it.
func New(dir string) (*Sink, error) {
	resolved, err := DownloadsDir(dir)
	if err != nil {
		return nil, err
	}
	return &Sink{Dir: resolved, Now: time.Now}, nil
}

// Write stores document under a timestamped name and returns its path.
// Documents written in the same second get a numeric suffix instead of
// replacing each other.
func (s *Sink) Write(topic, document string) (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	base := strings.TrimSuffix(FileName(now()), ".md")

	for n := 1; ; n++ {
		name := base + ".md"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.md", base, n)
		}
		path := filepath.Join(s.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", path, err)
		}
		_, werr := f.WriteString(Header(topic) + document)
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("writing %s: %w", path, werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("closing %s: %w", path, cerr)
		}
		return path, nil
	}
}
