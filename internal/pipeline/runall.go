// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll runs the pipeline once per topic with at most limit runs in
// flight (limit <= 0 means one at a time). Runs share nothing but the
// immutable Pipeline; a failed run does not stop the others. Results are
// returned in topic order, with per-run failures in Result.Failure.
func (p *Pipeline) RunAll(ctx context.Context, topics []string, itemCount, limit int) []*Result {
	if limit <= 0 {
		limit = 1
	}
	results := make([]*Result, len(topics))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, topic := range topics {
		i, topic := i, topic
		g.Go(func() error {
			results[i], _ = p.Run(ctx, topic, itemCount)
			return nil
		})
	}
	g.Wait()
	return results
}
