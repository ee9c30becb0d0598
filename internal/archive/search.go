// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"
	"strings"
)

// defaultSearchLimit caps Search when no limit is given.
const defaultSearchLimit = 20

// Hit is one stage output matching a search.
type Hit struct {
	RunID   string `json:"run_id" yaml:"run_id"`
	Topic   string `json:"topic" yaml:"topic"`
	Stage   string `json:"stage" yaml:"stage"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// Search finds stage outputs matching query. With the full-text index the
// query uses FTS5 syntax and hits are ranked by relevance; without it the
// query is matched as a case-insensitive substring, newest runs first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var (
		q    string
		args []any
	)
	if s.fts {
		q = `SELECT e.run_id, r.topic, e.stage,
				snippet(entries_fts, 0, '[', ']', '...', 12)
			FROM entries_fts
			JOIN entries e ON e.rowid = entries_fts.rowid
			JOIN runs r ON r.id = e.run_id
			WHERE entries_fts MATCH ?
			ORDER BY entries_fts.rank
			LIMIT ?`
		args = []any{query, limit}
	} else {
		q = `SELECT e.run_id, r.topic, e.stage, e.text
			FROM entries e
			JOIN runs r ON r.id = e.run_id
			WHERE instr(lower(e.text), lower(?)) > 0
			ORDER BY r.started_at DESC, e.seq
			LIMIT ?`
		args = []any{query, limit}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching archive: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.RunID, &h.Topic, &h.Stage, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		if !s.fts {
			h.Snippet = excerpt(h.Snippet, query, 60)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// excerpt returns the text around the first case-insensitive match of
// query, with up to width bytes of context on each side.
func excerpt(text, query string, width int) string {
	i := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if i < 0 {
		return ""
	}
	start, end := max(i-width, 0), min(i+len(query)+width, len(text))
	out := strings.Join(strings.Fields(text[start:end]), " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}
