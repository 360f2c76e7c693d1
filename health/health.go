package health

import (
	"fmt"
	"os"

	"github.com/zero-day-ai/threatscore/types"
)

// FileCheck reports whether a file or directory exists at path.
func FileCheck(path string) types.HealthStatus {
	if path == "" {
		return types.NewUnhealthyStatus("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return types.NewUnhealthyStatus(fmt.Sprintf("path '%s' does not exist", path), map[string]any{"path": path})
	case err != nil:
		return types.NewUnhealthyStatus(fmt.Sprintf("failed to stat path '%s'", path), map[string]any{"path": path, "error": err.Error()})
	case info.IsDir():
		return types.NewHealthyStatus(fmt.Sprintf("directory '%s' exists", path))
	default:
		return types.NewHealthyStatus(fmt.Sprintf("file '%s' exists", path))
	}
}

// DatasetCheck reports whether the source of a named dataset can be parsed.
//
//   - unset path: unhealthy, the dataset is not configured
//   - missing path or a directory: unhealthy
//   - empty file: degraded, it parses to an empty table
//
// Details always carry the dataset name.
func DatasetCheck(name, path string) types.HealthStatus {
	details := map[string]any{"dataset": name}
	if path == "" {
		return types.NewUnhealthyStatus(fmt.Sprintf("dataset '%s' is not configured", name), details)
	}
	details["path"] = path

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return types.NewUnhealthyStatus(fmt.Sprintf("dataset '%s': '%s' does not exist", name, path), details)
	case err != nil:
		details["error"] = err.Error()
		return types.NewUnhealthyStatus(fmt.Sprintf("dataset '%s': failed to stat '%s'", name, path), details)
	case info.IsDir():
		return types.NewUnhealthyStatus(fmt.Sprintf("dataset '%s': '%s' is a directory", name, path), details)
	case info.Size() == 0:
		return types.NewDegradedStatus(fmt.Sprintf("dataset '%s': '%s' is empty", name, path), details)
	}
	return types.NewHealthyStatus(fmt.Sprintf("dataset '%s' source '%s' is readable", name, path))
}

// Combine folds several statuses into one. Any unhealthy status makes the
// result unhealthy; otherwise any degraded status makes it degraded.
// Non-healthy results list the offending checks by dataset name when the
// status carries one, by message otherwise.
func Combine(checks ...types.HealthStatus) types.HealthStatus {
	if len(checks) == 0 {
		return types.NewHealthyStatus("no checks provided")
	}

	var unhealthy, degraded []string
	for _, check := range checks {
		switch check.Status {
		case types.StatusUnhealthy:
			unhealthy = append(unhealthy, label(check))
		case types.StatusDegraded:
			degraded = append(degraded, label(check))
		}
	}

	details := map[string]any{
		"total":     len(checks),
		"unhealthy": len(unhealthy),
		"degraded":  len(degraded),
		"healthy":   len(checks) - len(unhealthy) - len(degraded),
	}

	switch {
	case len(unhealthy) > 0:
		details["failed_checks"] = unhealthy
		if len(degraded) > 0 {
			details["degraded_checks"] = degraded
		}
		return types.NewUnhealthyStatus(fmt.Sprintf("%d check(s) failed", len(unhealthy)), details)
	case len(degraded) > 0:
		details["degraded_checks"] = degraded
		return types.NewDegradedStatus(fmt.Sprintf("%d check(s) degraded", len(degraded)), details)
	}
	return types.NewHealthyStatus(fmt.Sprintf("all %d check(s) passed", len(checks)))
}

func label(check types.HealthStatus) string {
	if name := check.Dataset(); name != "" {
		return name
	}
	if check.Message != "" {
		return check.Message
	}
	return "unnamed check"
}
