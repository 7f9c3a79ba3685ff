// Package preflight verifies the host is fit to run translations: directory
// access, free disk space, and at least one launchable engine executable.
package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"glossa/internal/config"
	"glossa/internal/engine"
)

// minFreeBytes is the disk headroom required for translated output; bilingual
// PDFs roughly double the source size.
const minFreeBytes = 256 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDiskSpace("Output disk space", cfg.Paths.OutputDir),
	}
	results = append(results, CheckEngine(cfg))
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
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
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem holding path has enough headroom
// for translated output.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s (%.1f GiB free)", path, float64(free)/(1<<30))
	if free < minFreeBytes {
		return Result{Name: name, Detail: detail + " below required headroom"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckEngine verifies at least one engine launch candidate exists.
func CheckEngine(cfg *config.Config) Result {
	const name = "Translation engine"
	for _, candidate := range engine.ResolveCandidates(cfg) {
		if resolved, ok := engine.CandidateAvailable(candidate); ok {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", resolved, candidate.Label)}
		}
	}
	return Result{Name: name, Detail: "no engine executable found; install the packaged engine or a Python environment with the pdf2zh module"}
}

// EngineCandidates reports the availability of every launch candidate, for
// status displays.
func EngineCandidates(cfg *config.Config) []Result {
	candidates := engine.ResolveCandidates(cfg)
	out := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		resolved, ok := engine.CandidateAvailable(candidate)
		detail := candidate.Path
		if ok {
			detail = resolved
		}
		out = append(out, Result{Name: candidate.Label, Passed: ok, Detail: detail})
	}
	return out
}
