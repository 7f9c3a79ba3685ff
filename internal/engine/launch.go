package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"glossa/internal/config"
)

// Candidate describes one way of launching the worker process.
type Candidate struct {
	// Label identifies the candidate in logs and errors.
	Label string
	// Path is the executable to run.
	Path string
	// Args are passed before the port flag.
	Args []string
}

// ResolveCandidates returns the launch candidates for the configured engine
// in preference order without checking availability.
func ResolveCandidates(cfg *config.Config) []Candidate {
	var candidates []Candidate
	if cfg == nil {
		return candidates
	}

	if binary := strings.TrimSpace(cfg.Engine.Binary); binary != "" {
		candidates = append(candidates, Candidate{
			Label: "packaged binary",
			Path:  binary,
		})
	}

	module := cfg.Engine.Module
	if venv := strings.TrimSpace(cfg.Engine.VenvDir); venv != "" {
		candidates = append(candidates, Candidate{
			Label: "virtualenv interpreter",
			Path:  venvPython(venv),
			Args:  []string{"-m", module},
		})
	}

	python := strings.TrimSpace(cfg.Engine.Python)
	if python == "" {
		python = "python3"
	}
	candidates = append(candidates, Candidate{
		Label: "system interpreter",
		Path:  python,
		Args:  []string{"-m", module},
	})

	return candidates
}

// selectCandidate picks the first launch candidate that exists, or fails with
// an error naming every attempted path.
func selectCandidate(cfg *config.Config) (Candidate, error) {
	candidates := ResolveCandidates(cfg)
	attempted := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		resolved, ok := CandidateAvailable(candidate)
		if ok {
			candidate.Path = resolved
			return candidate, nil
		}
		attempted = append(attempted, fmt.Sprintf("%s (%s)", candidate.Path, candidate.Label))
	}
	return Candidate{}, fmt.Errorf("no engine executable found; tried: %s", strings.Join(attempted, ", "))
}

// CandidateAvailable reports whether the candidate's executable exists,
// returning its resolved path. Bare names are resolved on PATH.
func CandidateAvailable(candidate Candidate) (string, bool) {
	path := strings.TrimSpace(candidate.Path)
	if path == "" {
		return "", false
	}
	if strings.ContainsRune(path, os.PathSeparator) {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return "", false
		}
		return path, true
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", false
	}
	return resolved, true
}

func venvPython(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}
