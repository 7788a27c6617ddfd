package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/planfill-cli/internal/driver"
)

var (
	fillMapPath      string
	fillTemplatePath string
	fillOverlayPath  string
	fillOut          string
	fillJSON         bool
	fillLenient      bool
)

var fillCmd = &cobra.Command{
	Use:   "fill <plan.xml> [plan.xml...]",
	Short: "Fill the questionnaire for one or more plan exports",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if fillTemplatePath == "" {
			return eris.New("--template is required")
		}

		plans, failed, err := driver.LoadPlans(ctx, args, cfg.Batch.ParseConcurrency)
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			return eris.New("no plan export could be parsed")
		}

		opts := driver.Options{
			TemplatePath:  fillTemplatePath,
			TemplateSheet: cfg.Fill.TemplateSheet,
			MapPath:       fillMapPath,
			LOVSheet:      cfg.Fill.LOVSheet,
			OverlayPath:   fillOverlayPath,
			Strict:        cfg.Fill.Strict && !fillLenient,
		}

		result, err := driver.Run(ctx, opts, plans, failed)
		if err != nil {
			return err
		}

		zap.L().Info("fill complete",
			zap.Int("plans", len(result.Plans)),
			zap.Int("rows", result.RowCount),
			zap.Int("hits", result.Hits),
			zap.Int("misses", result.Misses),
		)

		if fillJSON {
			if fillOut == "" {
				return result.Table.WriteJSON(os.Stdout)
			}
			f, err := os.Create(fillOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", fillOut)
			}
			defer f.Close() //nolint:errcheck
			return result.Table.WriteJSON(f)
		}

		if fillOut == "" {
			return result.Table.WriteCSV(os.Stdout)
		}
		return result.Table.WriteCSVFile(fillOut)
	},
}

func init() {
	fillCmd.Flags().StringVar(&fillTemplatePath, "template", "", "data points workbook or CSV (required)")
	fillCmd.Flags().StringVar(&fillMapPath, "map", "", "prompt map workbook or CSV")
	fillCmd.Flags().StringVar(&fillOverlayPath, "overlay", "", "ground-truth overlay CSV")
	fillCmd.Flags().StringVar(&fillOut, "out", "", "output path (default stdout)")
	fillCmd.Flags().BoolVar(&fillJSON, "json", false, "emit JSON rows instead of CSV")
	fillCmd.Flags().BoolVar(&fillLenient, "lenient", false, "fill unresolved rows with smart defaults")
	rootCmd.AddCommand(fillCmd)
}
