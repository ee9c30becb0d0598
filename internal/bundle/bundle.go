// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bundle packages project files into the downloads folder as a zip
// archive, optionally unpacking them there.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"

	"github.com/pdiddy/article-engine/internal/sink"
)

// ArchivePrefix starts the name of every bundle.
const ArchivePrefix = "zipped_file_"

// DefaultPatterns selects the project sources when no pattern is given.
var DefaultPatterns = []string{"*.go", "go.mod", "*.md", "*.yaml"}

// Options control one packaging run.
type Options struct {
	// Root is the directory searched for files (default ".").
	Root string

	// Patterns are doublestar globs relative to Root.
	Patterns []string

	// Dest receives the archive or the extracted files.
	Dest string

	// Extract unpacks the archive into Dest and deletes it.
	Extract bool

	Now func() time.Time
}

// Report describes a finished packaging run.
type Report struct {
	// Files are the packaged paths relative to Root, sorted.
	Files []string

	// Archive is the zip path, empty when it was extracted and removed.
	Archive string

	// Size is the total uncompressed size of Files.
	Size uint64

	// Compressed is the size of the zip archive.
	Compressed uint64
}

// String summarizes the report for the terminal.
func (r *Report) String() string {
	if r.Archive == "" {
		return fmt.Sprintf("%d file(s), %s", len(r.Files), humanize.Bytes(r.Size))
	}
	return fmt.Sprintf("%d file(s), %s in %s (%s)", len(r.Files), humanize.Bytes(r.Size),
		filepath.Base(r.Archive), humanize.Bytes(r.Compressed))
}

// Package zips the files matching opts.Patterns. Hidden directories and
// Dest itself are not searched.
func Package(opts Options) (*Report, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}
	if opts.Dest == "" {
		return nil, fmt.Errorf("no destination directory")
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	files, err := match(root, patterns, opts.Dest)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %s", strings.Join(patterns, ", "))
	}

	name := ArchivePrefix + sink.Stamp(now()) + ".zip"
	zipPath := filepath.Join(opts.Dest, name)
	if opts.Extract {
		tmp, err := os.MkdirTemp("", "article-engine-bundle")
		if err != nil {
			return nil, fmt.Errorf("creating temporary directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		zipPath = filepath.Join(tmp, name)
	}

	report := &Report{Files: files, Archive: zipPath}
	if report.Size, err = writeZip(zipPath, root, files); err != nil {
		return nil, err
	}
	if info, err := os.Stat(zipPath); err == nil {
		report.Compressed = uint64(info.Size())
	}

	if opts.Extract {
		if err := extract(zipPath, opts.Dest); err != nil {
			return nil, err
		}
		if err := os.Remove(zipPath); err != nil {
			return nil, fmt.Errorf("removing temporary archive: %w", err)
		}
		report.Archive = ""
	}
	return report, nil
}

func match(root string, patterns []string, dest string) ([]string, error) {
	destAbs, _ := filepath.Abs(dest)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if abs, _ := filepath.Abs(path); abs == destAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				files = append(files, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func writeZip(zipPath, root string, files []string) (uint64, error) {
	out, err := os.Create(zipPath)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}
	zw := zip.NewWriter(out)

	var total uint64
	for _, rel := range files {
		n, err := addFile(zw, root, rel)
		if err != nil {
			zw.Close()
			out.Close()
			return 0, err
		}
		total += n
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return 0, fmt.Errorf("finishing archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("closing archive: %w", err)
	}
	return total, nil
}

func addFile(zw *zip.Writer, root, rel string) (uint64, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", rel, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", rel, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, fmt.Errorf("zip header for %s: %w", rel, err)
	}
	hdr.Name = rel
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, fmt.Errorf("adding %s: %w", rel, err)
	}
	n, err := io.Copy(w, f)
	if err != nil {
		return 0, fmt.Errorf("compressing %s: %w", rel, err)
	}
	return uint64(n), nil
}

func extract(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(zf.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes %s", zf.Name, dest)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(zf, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("reading %s: %w", zf.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", zf.Name, err)
	}
	return out.Close()
}
