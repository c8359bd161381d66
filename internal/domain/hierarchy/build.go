package hierarchy

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Source is one codebase entry, such as a class directory or a jar.
type Source interface {
	Name() string
	Classes() ([]string, error)
	Bytes(className string) ([]byte, error)
}

type job struct {
	source Source
	class  string
}

// Build scans every class of every source. Classes are read and parsed by at
// most parallel goroutines, then added in (source, class) order so the
// result does not depend on scheduling. Unreadable entries are logged and
// skipped.
func Build(ctx context.Context, sources []Source, parallel int) (*Index, error) {
	b := NewBuilder()

	var jobs []job

	for _, src := range sources {
		classes, err := src.Classes()
		if err != nil {
			slog.Warn("skipping unreadable codebase entry", "entry", src.Name(), "error", err)
			b.skipped++

			continue
		}

		for _, c := range classes {
			jobs = append(jobs, job{source: src, class: c})
		}
	}

	results := make([]*summary, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := j.source.Bytes(j.class)
			if err != nil {
				slog.Warn("skipping unreadable class", "entry", j.source.Name(), "class", j.class, "error", err)
				return nil
			}

			s, err := summarize(data)
			if err != nil {
				slog.Warn("skipping unparsable class", "entry", j.source.Name(), "class", j.class, "error", err)
				return nil
			}

			results[i] = s

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range results {
		if s == nil {
			b.skipped++
			continue
		}

		b.add(s)
	}

	slog.Info("class hierarchy indexed", "classes", b.classes, "skipped", b.skipped)

	return b.Freeze(), nil
}
