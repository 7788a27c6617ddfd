package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/planfill-cli/internal/driver"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func TestDetectWorkbooks(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()

	wantMap := touch(t, dir, "Client Map v3.xlsx")
	wantTemplate := touch(t, dir, "TPA Data Points.xlsx")
	touch(t, dir, "notes.txt")
	touch(t, dir, "plan_a.xml")

	mapPath, templatePath, err := detectWorkbooks(dir)
	require.NoError(t, err)
	assert.Equal(t, wantMap, mapPath)
	assert.Equal(t, wantTemplate, templatePath)
}

func TestDetectWorkbooks_NoTemplate(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	touch(t, dir, "Client Map v3.xlsx")

	_, _, err := detectWorkbooks(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data points workbook")
}

func TestDetectWorkbooks_MissingMapTolerated(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	wantTemplate := touch(t, dir, "data points.csv")

	mapPath, templatePath, err := detectWorkbooks(dir)
	require.NoError(t, err)
	assert.Empty(t, mapPath)
	assert.Equal(t, wantTemplate, templatePath)
}

func TestPrepareBatch_Overlay(t *testing.T) {
	cfg = testConfig()
	cfg.Fill.OverlayName = "verified.csv"
	dir := t.TempDir()

	touch(t, dir, "tpa data points.csv")
	overlay := touch(t, dir, "verified.csv")

	opts, err := prepareBatch(dir, true)
	require.NoError(t, err)
	assert.Equal(t, overlay, opts.OverlayPath)
	assert.True(t, opts.Strict)
	assert.Equal(t, "Plan Express Data Points", opts.TemplateSheet)
}

func TestRunResult(t *testing.T) {
	res := &driver.Result{
		Plans:    []driver.Plan{{ID: "a"}, {ID: "b"}},
		Failed:   []driver.PlanError{{File: "broken.xml"}},
		RowCount: 10,
		Hits:     14,
		Misses:   6,
	}

	rr := runResult(res, "out.csv", nil)
	assert.Equal(t, "out.csv", rr.OutputPath)
	assert.Equal(t, 2, rr.Plans)
	assert.Equal(t, 10, rr.Rows)
	assert.Equal(t, 14, rr.Hits)
	assert.Equal(t, 6, rr.Misses)
	assert.Equal(t, []string{"broken.xml"}, rr.FailedPlans)
	assert.Empty(t, rr.Error)
}
