package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"txrmwatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable preflight check for the given config.
// Failures are advisory: the daemon starts regardless and keeps retrying
// unavailable roots every scan cycle.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, root := range cfg.Paths.Roots {
		results = append(results, CheckReadableDir(fmt.Sprintf("Watch root %s", root), root))
	}
	results = append(results, CheckWritableDir("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckExtractor(cfg.Extractor.Command))
	return results
}

// CheckReadableDir verifies the directory exists and can be listed.
func CheckReadableDir(name, path string) Result {
	return checkDir(name, path, unix.R_OK|unix.X_OK, "readable")
}

// CheckWritableDir verifies the directory exists and can be written.
func CheckWritableDir(name, path string) Result {
	return checkDir(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

func checkDir(name, path string, mode uint32, okDetail string) Result {
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

// CheckExtractor verifies the configured extraction command resolves to an
// executable.
func CheckExtractor(command string) Result {
	const name = "Extractor"
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// Summarize reduces results to pass/fail counts.
func Summarize(results []Result) (passed, failed int) {
	for _, result := range results {
		if result.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
