package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/planfill-cli/internal/driver"
	"github.com/sells-group/planfill-cli/internal/store"
)

var (
	batchInputDir string
	batchOut      string
	batchLenient  bool
	batchRecord   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Fill the questionnaire for a directory of plan exports",
	Long:  "Auto-detects the prompt map and data points workbook in the input directory, parses every plan XML, and writes one combined CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := prepareBatch(batchInputDir, cfg.Fill.Strict && !batchLenient)
		if err != nil {
			return err
		}

		outPath := batchOut
		if outPath == "" {
			outPath = filepath.Join(batchInputDir, cfg.Batch.OutputName)
		}

		var st store.Store
		var run *store.Run
		if batchRecord {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run, err = st.CreateRun(ctx, store.RunInput{
				InputDir:     batchInputDir,
				MapPath:      opts.MapPath,
				TemplatePath: opts.TemplatePath,
				OverlayPath:  opts.OverlayPath,
				OutputPath:   outPath,
				Strict:       opts.Strict,
			})
			if err != nil {
				return err
			}
			if err := st.UpdateRunStatus(ctx, run.ID, store.RunStatusRunning); err != nil {
				return err
			}
		}

		result, err := executeBatch(ctx, opts, batchInputDir)
		if err != nil {
			if run != nil {
				_ = st.UpdateRunResult(ctx, run.ID, store.RunStatusFailed, &store.RunResult{Error: err.Error()})
			}
			return err
		}

		if err := result.Table.WriteCSVFile(outPath); err != nil {
			if run != nil {
				_ = st.UpdateRunResult(ctx, run.ID, store.RunStatusFailed, &store.RunResult{Error: err.Error()})
			}
			return err
		}

		if run != nil {
			if err := st.UpdateRunResult(ctx, run.ID, store.RunStatusCompleted, runResult(result, outPath, nil)); err != nil {
				return err
			}
		}

		zap.L().Info("batch complete",
			zap.String("output", outPath),
			zap.Int("plans", len(result.Plans)),
			zap.Int("failed_plans", len(result.Failed)),
			zap.Int("rows", result.RowCount),
			zap.Int("hits", result.Hits),
			zap.Int("misses", result.Misses),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInputDir, "input-dir", ".", "directory holding plan XMLs plus the map and data points workbooks")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output CSV path (default <input-dir>/"+"plan_express_filled_batch.csv)")
	batchCmd.Flags().BoolVar(&batchLenient, "lenient", false, "fill unresolved rows with smart defaults")
	batchCmd.Flags().BoolVar(&batchRecord, "record", false, "record the run in the history store")
	rootCmd.AddCommand(batchCmd)
}

// prepareBatch locates the map and template workbooks inside dir by filename
// pattern and assembles driver options.
func prepareBatch(dir string, strict bool) (driver.Options, error) {
	mapPath, templatePath, err := detectWorkbooks(dir)
	if err != nil {
		return driver.Options{}, err
	}

	overlayPath := ""
	if cfg.Fill.OverlayName != "" {
		p := filepath.Join(dir, cfg.Fill.OverlayName)
		if _, err := os.Stat(p); err == nil {
			overlayPath = p
		}
	}

	return driver.Options{
		TemplatePath:  templatePath,
		TemplateSheet: cfg.Fill.TemplateSheet,
		MapPath:       mapPath,
		LOVSheet:      cfg.Fill.LOVSheet,
		OverlayPath:   overlayPath,
		Strict:        strict,
	}, nil
}

// detectWorkbooks scans dir for the prompt map and the data points template.
// The map matches cfg.Fill.MapPattern; the template matches any of
// cfg.Fill.TemplatePatterns and must not be the map file itself.
func detectWorkbooks(dir string) (mapPath, templatePath string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", eris.Wrapf(err, "read input dir %s", dir)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		ext := filepath.Ext(name)
		if ext != ".xlsx" && ext != ".csv" {
			continue
		}
		full := filepath.Join(dir, e.Name())

		if mapPath == "" && strings.Contains(name, strings.ToLower(cfg.Fill.MapPattern)) {
			mapPath = full
			continue
		}
		if templatePath == "" {
			for _, pat := range cfg.Fill.TemplatePatterns {
				if strings.Contains(name, strings.ToLower(pat)) {
					templatePath = full
					break
				}
			}
		}
	}

	if templatePath == "" {
		return "", "", eris.Errorf("no data points workbook found in %s (looked for %v)", dir, cfg.Fill.TemplatePatterns)
	}
	if mapPath == "" {
		zap.L().Warn("no prompt map workbook found, resolution will be degraded",
			zap.String("dir", dir),
			zap.String("pattern", cfg.Fill.MapPattern),
		)
	}
	return mapPath, templatePath, nil
}

// executeBatch loads every plan XML under dir and runs the fill.
func executeBatch(ctx context.Context, opts driver.Options, dir string) (*driver.Result, error) {
	files, err := driver.FindPlanFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, eris.Errorf("no plan XML files in %s", dir)
	}

	plans, failed, err := driver.LoadPlans(ctx, files, cfg.Batch.ParseConcurrency)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, eris.Errorf("all %d plan exports failed to parse", len(files))
	}

	return driver.Run(ctx, opts, plans, failed)
}

func runResult(result *driver.Result, outPath string, runErr error) *store.RunResult {
	rr := &store.RunResult{
		OutputPath: outPath,
		Plans:      len(result.Plans),
		Rows:       result.RowCount,
		Hits:       result.Hits,
		Misses:     result.Misses,
	}
	for _, f := range result.Failed {
		rr.FailedPlans = append(rr.FailedPlans, f.File)
	}
	if runErr != nil {
		rr.Error = runErr.Error()
	}
	return rr
}
