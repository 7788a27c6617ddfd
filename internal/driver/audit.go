package driver

import (
	"strings"

	"github.com/sells-group/planfill-cli/internal/resolve"
)

// BuildAudit produces the strict-QA diagnostic table for a single plan:
// per row, the mapped field ids, which of them the document selected, their
// free text, and the value the strict tier alone produces. Fallback tiers
// are deliberately excluded so reviewers see exactly what the curated map
// delivers.
func BuildAudit(opts Options, plan Plan) (*Table, error) {
	tmpl, err := LoadTemplate(opts.TemplatePath, opts.TemplateSheet)
	if err != nil {
		return nil, err
	}
	engine, err := buildEngine(opts)
	if err != nil {
		return nil, err
	}

	t := &Table{Header: []string{
		"Page", "Seq", "PROMPT",
		"Mapped Fields", "Selected Fields", "Field Texts",
		"Strict Value", "Resolved",
	}}

	for _, row := range tmpl.Rows {
		entry := engine.Lookup(row.Prompt)
		var mapped, selected, texts []string
		if entry != nil {
			mapped = entry.FieldIDs()
			for _, n := range mapped {
				if plan.Flags.IsSelected(n) {
					selected = append(selected, n)
				}
				if txt := plan.Flags.Text(n); txt != "" {
					texts = append(texts, n+"="+txt)
				}
			}
		}

		value, ok := engine.StrictValue(resolve.Request{
			Prompt:         row.Prompt,
			OptionsAllowed: row.OptionsAllowed,
			Page:           row.Page,
			Seq:            row.Seq,
			PlanID:         plan.ID,
			Entry:          entry,
			Flags:          plan.Flags,
		})
		resolved := "no"
		if ok {
			resolved = "yes"
		}
		t.Rows = append(t.Rows, []string{
			row.Page, row.Seq, row.Prompt,
			strings.Join(mapped, "; "),
			strings.Join(selected, "; "),
			strings.Join(texts, "; "),
			value, resolved,
		})
	}
	return t, nil
}
