package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/planfill-cli/internal/mapping"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildTemplate(t *testing.T) {
	t.Run("exact header", func(t *testing.T) {
		rows := [][]string{
			{"Plan Express Data Points", ""},
			{"Page", "Seq", "PROMPT", "Quick Text Data Point", "Options Allowed"},
			{"10", "5", "Does the plan permit loans?", "Loans, Yes", "Y/N"},
			{"", "", "", "", " "},
			{"10", "10", "Loan minimum", "", ""},
		}
		tmpl, err := buildTemplate(rows, "test")
		require.NoError(t, err)
		require.Len(t, tmpl.Rows, 2)
		assert.Equal(t, "Does the plan permit loans?", tmpl.Rows[0].Prompt)
		assert.Equal(t, "Y/N", tmpl.Rows[0].OptionsAllowed)
		assert.Equal(t, "10", tmpl.Rows[1].Page)
		assert.Equal(t, "10", tmpl.Rows[1].Seq)
	})

	t.Run("case-insensitive header", func(t *testing.T) {
		rows := [][]string{
			{"page", "seq", "Prompt"},
			{"1", "1", "Anything"},
		}
		tmpl, err := buildTemplate(rows, "test")
		require.NoError(t, err)
		require.Len(t, tmpl.Rows, 1)
	})

	t.Run("missing prompt column is a schema error", func(t *testing.T) {
		rows := [][]string{{"Page", "Seq", "Question"}}
		_, err := buildTemplate(rows, "test")
		require.Error(t, err)
		assert.True(t, eris.Is(err, mapping.ErrSchema))
	})
}

func TestLoadTemplate_MissingFile(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "nope.csv"), "")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrSourceNotFound))
}

const planA = `<Plan>
  <LinkName value="ReportingID" selected="1" insert="0">R1</LinkName>
  <LinkName value="1stAdoptERName" selected="1" insert="0">Acme Mfg</LinkName>
  <LinkName value="YesInPlanRoth" selected="1" insert="0"></LinkName>
  <LinkName value="InPlanRothDeemedAge" selected="1" insert="1">55</LinkName>
</Plan>`

const planDupA = `<Plan>
  <LinkName value="ReportingID" selected="1" insert="0">R1</LinkName>
</Plan>`

const planNoID = `<Plan>
  <PlanData FieldName="SomeField">hello</PlanData>
</Plan>`

func TestLoadPlans(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.xml", planA)
	b := writeFile(t, dir, "b.xml", planDupA)
	c := writeFile(t, dir, "c.xml", planNoID)
	broken := writeFile(t, dir, "d.xml", "<Plan><LinkName></Plan>")

	plans, failed, err := LoadPlans(context.Background(), []string{a, b, broken, c}, 2)
	require.NoError(t, err)

	require.Len(t, plans, 2)
	assert.Equal(t, "R1", plans[0].ID)
	assert.Equal(t, "Acme Mfg [R1]", plans[0].Label)
	assert.Equal(t, "c", plans[1].ID)

	require.Len(t, failed, 1)
	assert.Equal(t, broken, failed[0].File)
}

func TestFindPlanFiles_Sorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.xml", planNoID)
	writeFile(t, dir, "a.xml", planNoID)
	writeFile(t, dir, "notes.txt", "x")

	files, err := FindPlanFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.xml", filepath.Base(files[0]))
	assert.Equal(t, "b.xml", filepath.Base(files[1]))
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "overlay.csv",
		"Page,Seq,PROMPT,Acme Mfg [R1]\n"+
			"10,5,Does the plan permit loans?,Yes\n"+
			"10,10,Loan minimum,\n")

	o, err := LoadOverlay(path)
	require.NoError(t, err)

	v, ok := o.Lookup("10", "5", "  Does the plan permit loans? ", "R1")
	require.True(t, ok)
	assert.Equal(t, "Yes", v)

	// A present blank cell still overrides.
	v, ok = o.Lookup("10", "10", "Loan minimum", "R1")
	require.True(t, ok)
	assert.Empty(t, v)

	_, ok = o.Lookup("10", "5", "Does the plan permit loans?", "R2")
	assert.False(t, ok)

	var nilOverlay *Overlay
	_, ok = nilOverlay.Lookup("10", "5", "x", "R1")
	assert.False(t, ok)
}

func TestLoadOverlay_SchemaErrors(t *testing.T) {
	dir := t.TempDir()

	noPrompt := writeFile(t, dir, "noprompt.csv", "Page,Seq,Acme [R1]\n1,1,x\n")
	_, err := LoadOverlay(noPrompt)
	assert.True(t, eris.Is(err, mapping.ErrSchema))

	noPlans := writeFile(t, dir, "noplans.csv", "Page,Seq,PROMPT\n1,1,x\n")
	_, err = LoadOverlay(noPlans)
	assert.True(t, eris.Is(err, mapping.ErrSchema))
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	tmplPath := writeFile(t, dir, "template.csv",
		"Page,Seq,PROMPT,Quick Text Data Point,Options Allowed\n"+
			"100,5,Is an in-plan Roth transfer permitted?,,Y/N\n"+
			"100,10,What is the minimum age for in-plan Roth transfers?,,If Y in page 100 seq 5 - enter minimum age\n")
	mapPath := writeFile(t, dir, "client map.csv",
		"Prompt,Quick Text Data Point,Proposed LinkName\n"+
			"Is an in-plan Roth transfer permitted?,\"Roth, Yes\",YesInPlanRoth\n")
	planPath := writeFile(t, dir, "acme.xml", planA)

	plans, failed, err := LoadPlans(context.Background(), []string{planPath}, 1)
	require.NoError(t, err)
	require.Empty(t, failed)

	var phases []Phase
	res, err := Run(context.Background(), Options{
		TemplatePath: tmplPath,
		MapPath:      mapPath,
		Strict:       true,
		Progress: func(p Phase, cur, total int) {
			phases = append(phases, p)
		},
	}, plans, failed)
	require.NoError(t, err)

	require.NotNil(t, res.Table)
	require.Len(t, res.Table.Rows, 3)

	idRow := res.Table.Rows[0]
	assert.Equal(t, "PensionPal ID", idRow[2])
	assert.Equal(t, "R1", idRow[5])

	assert.Equal(t, "Yes", res.Table.Rows[1][5])
	assert.Equal(t, "55", res.Table.Rows[2][5])
	assert.Equal(t, 2, res.Hits)
	assert.Zero(t, res.Misses)

	// The template shipped the quick-text column empty; the mapped row
	// gets it from the map entry, the unmapped row stays blank.
	assert.Equal(t, "Roth, Yes", res.Table.Rows[1][3])
	assert.Empty(t, res.Table.Rows[2][3])

	assert.Contains(t, phases, PhaseResolving)
	assert.Equal(t, PhaseComplete, phases[len(phases)-1])
}

func TestRun_OverlayWinsAndFeedsGates(t *testing.T) {
	dir := t.TempDir()
	tmplPath := writeFile(t, dir, "template.csv",
		"Page,Seq,PROMPT,Quick Text Data Point,Options Allowed\n"+
			"100,5,Is an in-plan Roth transfer permitted?,,Y/N\n"+
			"100,10,What is the minimum age for in-plan Roth transfers?,,If Y in page 100 seq 5 - enter minimum age\n")
	overlayPath := writeFile(t, dir, "overlay.csv",
		"Page,Seq,PROMPT,Acme [R1]\n"+
			"100,5,Is an in-plan Roth transfer permitted?,Yes\n")
	planPath := writeFile(t, dir, "acme.xml", planA)

	plans, failed, err := LoadPlans(context.Background(), []string{planPath}, 1)
	require.NoError(t, err)

	// No map at all: row one comes from the overlay, and the gated row still
	// sees "Yes" through the memo.
	res, err := Run(context.Background(), Options{
		TemplatePath: tmplPath,
		OverlayPath:  overlayPath,
		Strict:       true,
	}, plans, failed)
	require.NoError(t, err)

	assert.Equal(t, "Yes", res.Table.Rows[1][5])
	assert.Equal(t, "55", res.Table.Rows[2][5])
}

func TestTable_Records(t *testing.T) {
	tbl := &Table{
		Header: []string{"Page", "Seq", "PROMPT"},
		Rows:   [][]string{{"1", "5", "Q"}, {"2"}},
	}
	recs := tbl.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "Q", recs[0]["PROMPT"])
	assert.Empty(t, recs[1]["PROMPT"])
}

func TestBuildAudit(t *testing.T) {
	dir := t.TempDir()
	tmplPath := writeFile(t, dir, "template.csv",
		"Page,Seq,PROMPT,Quick Text Data Point,Options Allowed\n"+
			"100,5,Is an in-plan Roth transfer permitted?,,Y/N\n")
	mapPath := writeFile(t, dir, "map.csv",
		"Prompt,Quick Text Data Point,Proposed LinkName\n"+
			"Is an in-plan Roth transfer permitted?,\"Roth, Yes\",YesInPlanRoth\n")
	planPath := writeFile(t, dir, "acme.xml", planA)

	plans, _, err := LoadPlans(context.Background(), []string{planPath}, 1)
	require.NoError(t, err)

	tbl, err := BuildAudit(Options{
		TemplatePath: tmplPath,
		MapPath:      mapPath,
		Strict:       true,
	}, plans[0])
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)

	row := tbl.Rows[0]
	assert.Equal(t, "YesInPlanRoth", row[3])
	assert.Equal(t, "YesInPlanRoth", row[4])
	assert.Equal(t, "Yes", row[6])
	assert.Equal(t, "yes", row[7])
}
