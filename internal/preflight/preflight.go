package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"leafspec/internal/config"
	"leafspec/internal/export"
	"leafspec/internal/pipeline"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for cfg: directory access for each
// pipeline root, the free-disk floor on the processed directory, and
// reference availability under the configured normalization policy.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadAccess("Raw directory", cfg.Paths.RawDir),
		CheckDirectoryAccess("Processed directory", cfg.Paths.ProcessedDir),
		CheckDirectoryAccess("Reports directory", cfg.Paths.ReportsDir),
	}
	if strings.TrimSpace(cfg.Paths.AuditDir) != "" {
		results = append(results, CheckDirectoryAccess("Audit directory", cfg.Paths.AuditDir))
	}
	results = append(results, CheckFreeSpace("Free disk", cfg.Paths.ProcessedDir, cfg.Workflow.MinFreeGiB))
	results = append(results, CheckReferences(cfg))
	return results
}

// Err folds results into a single error: nil when every check passed,
// otherwise an infrastructure error naming the failed checks.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return pipeline.Wrap(pipeline.ErrInfrastructure, "preflight", "check environment",
		strings.Join(failed, ", "), nil)
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkAccess(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadAccess verifies that the directory exists and is readable. The
// acquisition root is never written, so write permission is not required.
func CheckReadAccess(name, path string) Result {
	return checkAccess(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkAccess(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minGiB
// available. A floor of zero disables the check.
func CheckFreeSpace(name, path string, minGiB int) Result {
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "floor disabled"}
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := uint64(stat.Bavail) * uint64(stat.Bsize)
	floor := uint64(minGiB) << 30
	detail := fmt.Sprintf("%.1f GiB free, floor %d GiB", float64(free)/float64(1<<30), minGiB)
	if free < floor {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckReferences reports reference availability for the configured policy.
// A forced BASELINE policy fails without a baseline curve; under AUTO the
// result is informational since the cascade has a fallback.
func CheckReferences(cfg *config.Config) Result {
	const name = "Normalization references"
	curves := baselineCurveCount(cfg.Paths.ProcessedDir)

	switch cfg.Normalization.Mode {
	case config.NormModeBaseline:
		if curves == 0 {
			return Result{Name: name, Detail: "policy BASELINE forced but no baseline curve file exists (run baseline first)"}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d baseline curve(s)", curves)}
	case config.NormModeAuto:
		if curves == 0 {
			return Result{Name: name, Passed: true, Detail: "no baseline curves, AUTO will use cloth or z-score"}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d baseline curve(s)", curves)}
	default:
		return Result{Name: name, Passed: true, Detail: "policy " + cfg.Normalization.Mode}
	}
}

func baselineCurveCount(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && export.IsBaselineFileName(entry.Name()) {
			count++
		}
	}
	return count
}
