package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/shopper-spectrum/internal/cli"
	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/testutil/retail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv isolates config, database and artifacts in a temp home directory.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SPECTRUM_DATABASE_PATH", filepath.Join(home, "spectrum.db"))
	return home
}

// writeExport writes a UTF-8 export with 12 customers, a return and a row
// without a customer.
func writeExport(t *testing.T, dir string) string {
	t.Helper()
	export := retail.NewBuilder().WithCustomers(12, retail.Profiles...).CSV() +
		"C536379,D,Discount,-1,12/1/2010 9:41,27.50,14527,United Kingdom\n" +
		"536414,22139,,56,12/1/2010 11:52,0,,United Kingdom\n"

	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(export), 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "spectrum dev")
}

func TestMigrateCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "completed successfully")

	out, err = execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 2")
	assert.Contains(t, out, "Latest version: 2")
}

func TestImportTrainAndQuery(t *testing.T) {
	home := setupEnv(t)
	export := writeExport(t, home)

	out, err := execute(t, "import", export, "--encoding", "utf8")
	require.NoError(t, err)
	assert.Contains(t, out, "Import complete!")
	assert.Contains(t, out, "Rows kept: 126")
	assert.Contains(t, out, "non_positive_quantity: 1")
	assert.Contains(t, out, "missing_customer: 1")

	// Importing again stores nothing new.
	out, err = execute(t, "import", export, "--encoding", "utf8")
	require.NoError(t, err)
	assert.Contains(t, out, "Newly imported: 0")

	out, err = execute(t, "train", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Training complete!")
	assert.Contains(t, out, "Customers: 12")
	assert.Contains(t, out, "Products: 5")

	out, err = execute(t, "segment", "--recency", "1", "--frequency", "4", "--monetary", "150")
	require.NoError(t, err)
	assert.Contains(t, out, "This customer belongs to:")

	out, err = execute(t, "recommend", "party bunting", "--scores", "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, cli.CartIcon+" Customers who bought this also bought")
	assert.Contains(t, out, " 1. ")
	assert.NotContains(t, out, "2. PARTY BUNTING")
	assert.NotContains(t, out, "1. PARTY BUNTING")
	assert.NotContains(t, out, " 3. ")

	out, err = execute(t, "segments")
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 13)
	assert.Equal(t, []string{"CustomerID", "Recency", "Frequency", "Monetary", "Cluster", "Segment"}, records[0])
	assert.Equal(t, "13000", records[1][0])

	out, err = execute(t, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Segment")
	assert.Contains(t, out, "Customers")
	assert.Contains(t, out, "High-Value Customer")
}

func TestTrainFromExportWithJSONBackend(t *testing.T) {
	home := setupEnv(t)
	export := writeExport(t, home)
	artifacts := filepath.Join(home, "artifacts", "model.json")

	_, err := execute(t, "train", "--input", export, "--encoding", "utf8", "--no-progress",
		"--backend", "json", "--artifacts", artifacts)
	require.NoError(t, err)
	assert.FileExists(t, artifacts)

	out, err := execute(t, "segment", "-r", "30", "-f", "1", "-m", "20",
		"--backend", "json", "--artifacts", artifacts)
	require.NoError(t, err)
	assert.Contains(t, out, "This customer belongs to:")

	// The SQLite store was never written to.
	_, err = execute(t, "segment", "-r", "30", "-f", "1", "-m", "20")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCleanCommand(t *testing.T) {
	home := setupEnv(t)
	export := writeExport(t, home)
	output := filepath.Join(home, "cleaned.csv")

	out, err := execute(t, "clean", export, "--encoding", "utf8", "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 126 of 128 rows")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 127)
	assert.Contains(t, records[0], "TotalSum")
}

func TestCommandErrors(t *testing.T) {
	home := setupEnv(t)

	t.Run("no trained model", func(t *testing.T) {
		_, err := execute(t, "recommend", "PARTY BUNTING")
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid segment values", func(t *testing.T) {
		export := writeExport(t, home)
		_, err := execute(t, "train", "--input", export, "--encoding", "utf8", "--no-progress")
		require.NoError(t, err)

		_, err = execute(t, "segment", "-r", "5", "-f", "2", "-m", "0")
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := execute(t, "recommend", "NOT A REAL PRODUCT")
		assert.ErrorIs(t, err, common.ErrProductNotFound)
	})

	t.Run("invalid k", func(t *testing.T) {
		t.Setenv("SPECTRUM_MODEL_K", "0")
		_, err := execute(t, "train", "--no-progress")
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("k without segment names", func(t *testing.T) {
		out, err := execute(t, "train", "--input", writeExport(t, home), "--encoding", "utf8", "--k", "3", "--no-progress")
		require.NoError(t, err)
		assert.Contains(t, out, "Occasional Shopper")
		assert.NotContains(t, out, "At-Risk Customer")
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := execute(t, "version", "--log-level", "loud")
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("missing export", func(t *testing.T) {
		_, err := execute(t, "import", filepath.Join(home, "missing.csv"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, common.NewUserError("No trained model found", common.ErrNotFound))
	assert.Contains(t, buf.String(), "No trained model found")
	assert.NotContains(t, buf.String(), common.ErrNotFound.Error())

	buf.Reset()
	reportError(&buf, fmt.Errorf("failed to open database: %w", errors.New("disk full")))
	assert.Contains(t, buf.String(), "failed to open database: disk full")
	assert.Contains(t, buf.String(), cli.ErrorIcon)
}
