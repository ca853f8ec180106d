package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"leafspec/internal/export"
	"leafspec/internal/inventory"
	"leafspec/internal/selfcheck"
)

func TestScanCommandListsInventory(t *testing.T) {
	env := setupCLITestEnv(t)
	writeCube(t, env, "leaf_a_visnir_D1")
	writeCube(t, env, "leaf_b_visnir_D1")
	writeCube(t, env, "cloth_visnir_D1")

	out, _, err := runCLI(t, env, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "3 cube pairs")
	requireContains(t, out, "leaf_a_visnir_D1")
	requireContains(t, out, "Day 1")

	if _, err := os.Stat(filepath.Join(env.processedDir, inventory.MetaFileName)); err != nil {
		t.Fatalf("expected metadata table: %v", err)
	}
}

func TestExportCommandWritesSpectra(t *testing.T) {
	env := setupCLITestEnv(t)
	writeCube(t, env, "leaf_a_visnir_D1")
	writeCube(t, env, "leaf_b_visnir_D1")
	writeCube(t, env, "cloth_visnir_D1")

	if _, _, err := runCLI(t, env, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, _, err := runCLI(t, env, "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "2 spectra written")
	requireContains(t, out, "{CLOTH:2}")

	files, err := export.ListSpectrumFiles(env.processedDir)
	if err != nil {
		t.Fatalf("ListSpectrumFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("spectrum files = %d, want 2", len(files))
	}
}

func TestCheckCommandPassesThenFails(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, stem := range []string{"leaf_a_visnir_D1", "leaf_b_visnir_D1", "leaf_c_visnir_D1", "cloth_visnir_D1"} {
		writeCube(t, env, stem)
	}
	if _, _, err := runCLI(t, env, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, _, err := runCLI(t, env, "export"); err != nil {
		t.Fatalf("export: %v", err)
	}

	out, _, err := runCLI(t, env, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "PASS")

	// Deleting one spectrum drops the count below the floor and orphans a
	// metadata row.
	victim := filepath.Join(env.processedDir, "leaf_a_visnir_D1"+export.SpectrumFileSuffix)
	if err := os.Remove(victim); err != nil {
		t.Fatalf("remove spectrum: %v", err)
	}

	out, _, err = runCLI(t, env, "check")
	if !errors.Is(err, selfcheck.ErrCheckFailed) {
		t.Fatalf("check error = %v, want ErrCheckFailed", err)
	}
	if got := exitCode(err); got != 1 {
		t.Fatalf("exitCode = %d, want 1", got)
	}
	requireContains(t, out, "FAIL")
	requireContains(t, out, selfcheck.CodeMetaSpectraMismatch)
}

func TestCheckCommandJSONReport(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, stem := range []string{"leaf_a_visnir_D1", "leaf_b_visnir_D1", "leaf_c_visnir_D1"} {
		writeCube(t, env, stem)
	}
	if _, _, err := runCLI(t, env, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, _, err := runCLI(t, env, "export"); err != nil {
		t.Fatalf("export: %v", err)
	}

	out, _, err := runCLI(t, env, "check", "--json")
	if err != nil {
		t.Fatalf("check --json: %v", err)
	}
	requireContains(t, out, `"Status": "PASS"`)
	requireContains(t, out, `"SpectraFiles": 3`)
}

func TestRunCommandExecutesFullPipeline(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, stem := range []string{"leaf_a_visnir_D1", "leaf_b_visnir_D1", "leaf_c_visnir_D1", "cloth_visnir_D1"} {
		writeCube(t, env, stem)
	}

	out, _, err := runCLI(t, env, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Preflight")
	requireContains(t, out, "Inventory")
	requireContains(t, out, "3 spectra written")
	requireContains(t, out, "PASS")

	history, _, err := runCLI(t, env, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	for _, stage := range []string{"parse_inventory", "export_spectra", "self_check"} {
		requireContains(t, history, stage)
	}
}

func TestRunsCommandEmptyLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded yet")
}

func TestPlotCommandWritesPage(t *testing.T) {
	env := setupCLITestEnv(t)
	writeCube(t, env, "leaf_a_visnir_D1")
	if _, _, err := runCLI(t, env, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, _, err := runCLI(t, env, "export"); err != nil {
		t.Fatalf("export: %v", err)
	}

	out, _, err := runCLI(t, env, "plot")
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	requireContains(t, out, "spectra.html")
	if _, err := os.Stat(filepath.Join(env.reportsDir, "spectra.html")); err != nil {
		t.Fatalf("expected spectra page: %v", err)
	}
}
