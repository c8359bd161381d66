package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
	m "mutafix.dev/pkg/mutafix/internal/model"
)

// classBatch holds the candidates of one class. Ordinal is the position of
// the class in the enumeration order, so batches can be put back in order
// whatever the scheduling was.
type classBatch struct {
	Ordinal    int
	Class      string
	Candidates []m.Candidate
}

// normalizeBufferSize ensures the buffer size is at least 1.
func normalizeBufferSize(threads int) int {
	if threads <= 0 {
		return 1
	}

	return threads
}

// streamCandidates enumerates classes on at most threads goroutines. The
// batch channel closes when done or when ctx is cancelled; the error channel
// then yields at most one error. Classes that fail to parse are logged and
// skipped.
func streamCandidates(ctx context.Context, e Engine, classes []string, threads int) (<-chan classBatch, <-chan error) {
	slog.Debug("starting candidate streaming", "classes", len(classes), "threads", threads)

	batches := make(chan classBatch, normalizeBufferSize(threads))
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(batches)

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(normalizeBufferSize(threads))

		for i, class := range classes {
			if groupCtx.Err() != nil {
				break
			}

			group.Go(func() error {
				cands, err := e.Enumerate(groupCtx, class)
				if errors.Is(err, classinfo.ErrParse) {
					slog.Warn("skipping class that failed to parse", "class", class, "error", err)
					return nil
				}

				if err != nil {
					return fmt.Errorf("enumerate %s: %w", class, err)
				}

				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				case batches <- classBatch{Ordinal: i, Class: class, Candidates: cands}:
				}

				return nil
			})
		}

		if err := group.Wait(); err != nil {
			errs <- err
			return
		}

		if err := ctx.Err(); err != nil {
			errs <- err
		}
	}()

	return batches, errs
}

// shardClasses keeps the classes of one shard using round-robin assignment
// over the sorted class list. A non-positive total disables sharding.
func shardClasses(classes []string, shardIndex, totalShardCount int) ([]string, error) {
	if totalShardCount <= 0 {
		return classes, nil
	}

	if shardIndex < 0 || shardIndex >= totalShardCount {
		return nil, fmt.Errorf("shard index %d out of range [0, %d)", shardIndex, totalShardCount)
	}

	var out []string

	for i, class := range classes {
		if i%totalShardCount == shardIndex {
			out = append(out, class)
		}
	}

	slog.Debug("sharded classes", "shardIndex", shardIndex, "totalShardCount", totalShardCount, "kept", len(out))

	return out, nil
}
