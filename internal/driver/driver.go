// Package driver walks the questionnaire template row by row, resolving one
// column per plan through the resolution engine, and assembles the output
// table. Row order is load-bearing: later rows read earlier rows' outcomes
// through the engine memo, so rows are never reordered or revisited.
package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/planfill-cli/internal/mapping"
	"github.com/sells-group/planfill-cli/internal/resolve"
)

// Options configures one fill run.
type Options struct {
	TemplatePath  string
	TemplateSheet string
	MapPath       string // "" or missing degrades to map-less resolution
	LOVSheet      string
	OverlayPath   string // optional ground-truth CSV
	Strict        bool
	Progress      ProgressFunc
}

// Result is the outcome of one fill run.
type Result struct {
	Table    *Table
	Plans    []Plan
	Failed   []PlanError
	RowCount int
	Hits     int
	Misses   int
}

// Run fills the questionnaire for the given plans. Cancellation is honored
// between rows; a canceled run's partial state is discarded.
func Run(ctx context.Context, opts Options, plans []Plan, failed []PlanError) (*Result, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(Phase, int, int) {}
	}
	progress(PhaseInit, 0, 0)

	tmpl, err := LoadTemplate(opts.TemplatePath, opts.TemplateSheet)
	if err != nil {
		progress(PhaseError, 0, 0)
		return nil, err
	}

	engine, err := buildEngine(opts)
	if err != nil {
		progress(PhaseError, 0, 0)
		return nil, err
	}

	var overlay *Overlay
	if opts.OverlayPath != "" {
		overlay, err = LoadOverlay(opts.OverlayPath)
		if err != nil {
			progress(PhaseError, 0, 0)
			return nil, err
		}
		zap.L().Info("manual overlay loaded", zap.String("path", opts.OverlayPath))
	}

	res := &Result{Plans: plans, Failed: failed, RowCount: len(tmpl.Rows)}
	memo := resolve.NewMemo()
	values := make([][]string, len(tmpl.Rows))

	// The template sheet often ships the quick-text column empty; the map
	// entry's quick text backfills it in the output.
	for i, row := range tmpl.Rows {
		if strings.TrimSpace(row.Quick) == "" {
			if entry := engine.Lookup(row.Prompt); entry != nil {
				tmpl.Rows[i].Quick = entry.Quick
			}
		}
	}

	for i, row := range tmpl.Rows {
		if err := ctx.Err(); err != nil {
			progress(PhaseError, i, len(tmpl.Rows))
			return nil, err
		}
		values[i] = make([]string, len(plans))
		for j, plan := range plans {
			req := resolve.Request{
				Prompt:         row.Prompt,
				OptionsAllowed: row.OptionsAllowed,
				Page:           row.Page,
				Seq:            row.Seq,
				PlanID:         plan.ID,
				Entry:          engine.Lookup(row.Prompt),
				Flags:          plan.Flags,
			}
			r := engine.Resolve(req, memo)
			value := r.Value
			resolved := r.Resolved
			// Overlay always wins, and its value is what later gated rows
			// observe through the memo.
			if ov, ok := overlay.Lookup(row.Page, row.Seq, row.Prompt, plan.ID); ok {
				value, resolved = ov, true
			}
			memo.SetValue(row.Page, row.Seq, plan.ID, value)
			values[i][j] = value
			if resolved {
				res.Hits++
			} else {
				res.Misses++
			}
		}
		progress(PhaseResolving, i+1, len(tmpl.Rows))
	}

	progress(PhaseWriting, 0, 0)
	res.Table = buildTable(tmpl, plans, values)
	progress(PhaseComplete, len(tmpl.Rows), len(tmpl.Rows))
	return res, nil
}

// buildEngine loads the map and LOV tables. A missing map source degrades to
// an empty table so the fallback tiers still run.
func buildEngine(opts Options) (*resolve.Engine, error) {
	rules, err := resolve.LoadRules()
	if err != nil {
		return nil, err
	}

	mapTable := mapping.Table{}
	lov := mapping.LOVTable{}
	if opts.MapPath == "" {
		zap.L().Warn("no map workbook configured, strict resolution degraded")
	} else if _, err := os.Stat(opts.MapPath); err != nil {
		zap.L().Warn("map workbook missing, strict resolution degraded",
			zap.String("path", opts.MapPath))
	} else {
		mapTable, err = mapping.LoadMap(opts.MapPath)
		if err != nil {
			return nil, err
		}
		// The LOV sheet lives in the map workbook; a CSV map has none.
		if strings.EqualFold(filepath.Ext(opts.MapPath), ".xlsx") {
			lov, err = mapping.LoadLOV(opts.MapPath, opts.LOVSheet)
			if err != nil {
				return nil, err
			}
		}
		zap.L().Info("map workbook loaded",
			zap.String("path", opts.MapPath),
			zap.Int("prompts", len(mapTable)),
			zap.Int("lov_coords", len(lov)))
	}

	return resolve.New(mapTable, lov, rules, opts.Strict), nil
}
