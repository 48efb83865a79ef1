//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-retailprep/internal/export"

	_ "github.com/pgEdge/pgedge-retailprep/internal/sqlreport"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// The commands share package-level flag variables, so the whole workflow
// runs in one test in a fixed order.
func TestWorkflow(t *testing.T) {
	dir := t.TempDir()
	workbook := filepath.Join(dir, "raw.xlsx")
	outDir := filepath.Join(dir, "out")
	metricsPath := filepath.Join(dir, "retailprep.prom")

	out, err := execute(t, "generate", "--log-level", "error",
		"--output", workbook, "--seed", "5",
		"--invoices", "300", "--customers", "50", "--products", "80")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Wrote "+workbook)
	require.FileExists(t, workbook)

	out, err = execute(t, "clean", "--input", workbook, "--output-dir", outDir,
		"--metrics-file", metricsPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "cancelled_invoices")
	for _, name := range []string{export.CleanedFile, export.CustomersFile, export.ProductsFile,
		export.InvoicesFile, export.InvoiceItemsFile} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	metricsText, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "retailprep_step_rows")

	// Existing outputs are kept without --overwrite.
	out, err = execute(t, "clean", "--input", workbook, "--output-dir", outDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "skipped")

	out, err = execute(t, "report", "--output-dir", outDir, "--engine", "all")
	require.NoError(t, err, out)
	for _, engine := range []string{"direct", "sql"} {
		assert.FileExists(t, filepath.Join(outDir, "reports", engine, "01_monthly_revenue_summary.csv"))
		assert.FileExists(t, filepath.Join(outDir, "reports", engine, "12_rfm_segment_summary.csv"))
	}

	out, err = execute(t, "verify", "--output-dir", outDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "direct and sql agree")

	out, err = execute(t, "engines")
	require.NoError(t, err, out)
	assert.Contains(t, out, "direct")
	assert.Contains(t, out, "sql")

	out, err = execute(t, "version")
	require.NoError(t, err, out)
	assert.Contains(t, out, "pgedge-retailprep")

	_, err = execute(t, "report", "--output-dir", outDir, "--engine", "spark")
	assert.Error(t, err)

	// Cleaning in-process needs an input path.
	noInput := filepath.Join(dir, "noinput.yaml")
	require.NoError(t, os.WriteFile(noInput, []byte("input:\n  path: \"\"\n"), 0o644))
	_, err = execute(t, "report", "--config", noInput, "--output-dir", outDir,
		"--engine", "direct", "--from-raw", "--input", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input path is required")

	_, err = execute(t, "verify", "--config", noInput, "--output-dir", outDir,
		"--from-raw", "--input", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input path is required")
}
