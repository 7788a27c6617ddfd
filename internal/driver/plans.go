package driver

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/planfill-cli/internal/planxml"
)

// Plan is one parsed plan document bound to an output column.
type Plan struct {
	File  string
	ID    string // client id, or filename stem when the export has none
	Label string // column header
	Flags planxml.FlagSet
}

// PlanError records a per-plan parse failure. The batch proceeds without
// the plan.
type PlanError struct {
	File string
	Err  error
}

// FindPlanFiles lists the XML exports under a directory, sorted by name so
// column order is stable across runs.
func FindPlanFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// LoadPlans parses plan documents concurrently, then deduplicates by client
// id with first-seen winning. Parse failures are isolated per plan.
func LoadPlans(ctx context.Context, files []string, concurrency int) ([]Plan, []PlanError, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	docs := make([]*planxml.Document, len(files))
	errs := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs[i], errs[i] = planxml.ParseFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		plans  []Plan
		failed []PlanError
		seen   = make(map[string]string) // client id -> first file
	)
	for i, f := range files {
		if errs[i] != nil {
			zap.L().Warn("skipping unparsable plan document",
				zap.String("file", f),
				zap.Error(errs[i]))
			failed = append(failed, PlanError{File: f, Err: errs[i]})
			continue
		}
		doc := docs[i]
		stem := planStem(f)
		id := doc.ClientID()
		if id == "" {
			id = stem
		}
		if first, dup := seen[id]; dup {
			zap.L().Warn("dropping duplicate plan",
				zap.String("client_id", id),
				zap.String("file", f),
				zap.String("kept", first))
			continue
		}
		seen[id] = f
		plans = append(plans, Plan{
			File:  f,
			ID:    id,
			Label: doc.Label(stem),
			Flags: doc.Flags,
		})
	}
	return plans, failed, nil
}

func planStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
