package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"leafspec/internal/testsupport"
)

type cliTestEnv struct {
	baseDir      string
	configPath   string
	rawDir       string
	processedDir string
	reportsDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:      base,
		configPath:   filepath.Join(base, "config.toml"),
		rawDir:       filepath.Join(base, "raw"),
		processedDir: filepath.Join(base, "processed"),
		reportsDir:   filepath.Join(base, "reports"),
	}
	for _, dir := range []string{env.rawDir, env.processedDir, env.reportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
raw_dir = %q
processed_dir = %q
reports_dir = %q
audit_dir = %q
log_dir = %q
`,
		env.rawDir,
		env.processedDir,
		env.reportsDir,
		filepath.Join(env.baseDir, "audit"),
		filepath.Join(env.baseDir, "logs"),
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCube(t *testing.T, env *cliTestEnv, stem string) {
	t.Helper()
	testsupport.WriteCubePair(t, env.rawDir, stem, testsupport.CubeSpec{
		Wavelengths: []float64{450, 550, 650},
		BandValues:  []float64{0.5, 1.0, 1.5},
	})
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
