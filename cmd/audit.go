package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/planfill-cli/internal/driver"
)

var (
	auditMapPath      string
	auditTemplatePath string
	auditOut          string
)

var auditCmd = &cobra.Command{
	Use:   "audit <plan.xml>",
	Short: "Emit a strict QA report for one plan export",
	Long:  "Writes a per-row diagnostic CSV showing mapped field ids, selected ids, field texts, and the strict resolver value, with no fallbacks applied.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if auditTemplatePath == "" {
			return eris.New("--template is required")
		}

		plans, failed, err := driver.LoadPlans(ctx, args, 1)
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			if len(failed) > 0 {
				return failed[0].Err
			}
			return eris.New("no plan export could be parsed")
		}

		opts := driver.Options{
			TemplatePath:  auditTemplatePath,
			TemplateSheet: cfg.Fill.TemplateSheet,
			MapPath:       auditMapPath,
			LOVSheet:      cfg.Fill.LOVSheet,
			Strict:        true,
		}

		table, err := driver.BuildAudit(opts, plans[0])
		if err != nil {
			return err
		}

		zap.L().Info("audit complete",
			zap.String("plan", plans[0].Label),
			zap.Int("rows", len(table.Rows)),
		)

		if auditOut == "" {
			return table.WriteCSV(os.Stdout)
		}
		return table.WriteCSVFile(auditOut)
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditTemplatePath, "template", "", "data points workbook or CSV (required)")
	auditCmd.Flags().StringVar(&auditMapPath, "map", "", "prompt map workbook or CSV")
	auditCmd.Flags().StringVar(&auditOut, "out", "", "output CSV path (default stdout)")
	rootCmd.AddCommand(auditCmd)
}
