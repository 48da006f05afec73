package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dcim-inventory-backend/config"
	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/testutil"
)

func init() {
	color.NoColor = true
}

type harness struct {
	db   *gorm.DB
	open Opener
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb := testutil.NewDB(t)
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return &harness{
		db: gdb,
		open: func(string) (*App, error) {
			return &App{Config: cfg, DB: gdb, Log: zerolog.Nop()}, nil
		},
	}
}

func (h *harness) run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCommand(NewPrinterTo(&out, &errOut), h.open)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestGenerateAndStats(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("generate", "--count", "3", "--batch", "B1")
	require.NoError(t, err)
	assert.Equal(t, "✓ Generated 3 short IDs\nE-00001\nE-00002\nE-00003\n", out)

	out, _, err = h.run("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "  total      3\n")
	assert.Contains(t, out, "  generated  3\n")

	_, errOut, err := h.run("stats", "--entity-type", "rack")
	assert.Error(t, err)
	assert.Contains(t, errOut, "Invalid --entity-type")

	_, _, err = h.run("generate")
	assert.Error(t, err)

	_, errOut, err = h.run("generate", "--count", "0")
	assert.Error(t, err)
	assert.Contains(t, errOut, "Failed to generate short IDs")
}

func TestPrintTaskCommands(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("generate", "--count", "3")
	require.NoError(t, err)

	out, _, err := h.run("print-task", "create", "--name", "row 4", "--count", "2")
	require.NoError(t, err)
	assert.Equal(t, "✓ Print task 1 \"row 4\" created with 2 short IDs (4..5)\n", out)

	out, _, err = h.run("print-task", "export", "1")
	require.NoError(t, err)
	assert.Equal(t, "short_id,display_code\n4,E-00004\n5,E-00005\n", out)

	path := filepath.Join(t.TempDir(), "labels.csv")
	out, _, err = h.run("print-task", "export", "1", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "short_id,display_code\n4,E-00004\n5,E-00005\n", string(data))

	_, errOut, err := h.run("print-task", "export", "9")
	assert.Error(t, err)
	assert.Contains(t, errOut, "Failed to export print task 9")

	_, _, err = h.run("print-task", "export", "one")
	assert.Error(t, err)
}

func TestReconcileCommand(t *testing.T) {
	h := newHarness(t)
	at := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	entityID := "r-1"
	require.NoError(t, h.db.Create(&[]model.LegacyShortIDAllocation{
		{ID: 20, EntityType: "Room", EntityID: &entityID, CreatedAt: at},
		{ID: 21, EntityType: "Rack", CreatedAt: at},
	}).Error)

	out, _, err := h.run("reconcile", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Scanned 2 legacy rows\n")
	assert.Contains(t, out, "[DRY-RUN] reconcile: would create 2 and update 0 records\n")
	assert.Contains(t, out, "⚠ Unknown legacy entity types: RACK\n")

	var count int64
	require.NoError(t, h.db.Model(&model.ShortID{}).Count(&count).Error)
	assert.Zero(t, count)

	out, _, err = h.run("reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created 2, updated 0, skipped 0\n")

	out, _, err = h.run("generate", "--count", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "E-00022\n")
}

func TestOpenFailure(t *testing.T) {
	failing := func(string) (*App, error) { return nil, errors.New("no such file") }
	var out, errOut bytes.Buffer
	root := NewRootCommand(NewPrinterTo(&out, &errOut), failing)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"stats", "--config", "/nope.yaml"})

	assert.Error(t, root.Execute())
	assert.Contains(t, errOut.String(), "✗ Failed to open database: no such file")
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinterTo(&out, &errOut)

	p.Success("done %d", 1)
	p.Info("note")
	p.Warning("careful")
	p.DryRun("create", "record %d", 7)
	p.Error("broken", errors.New("boom"))
	p.Error("plain failure", nil)

	assert.Equal(t, "✓ done 1\nnote\n⚠ careful\n[DRY-RUN] create: record 7\n", out.String())
	assert.Equal(t, "✗ broken: boom\n✗ plain failure\n", errOut.String())
}
