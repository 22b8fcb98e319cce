package dupescan

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mordilloSan/go-logger/logger"
)

// ErrScanCancelled is returned when a run is interrupted by the shutdown
// channel. A cancelled run never reports partial duplicate groups.
var ErrScanCancelled = errors.New("scan cancelled by shutdown")

// WarningKind classifies non-fatal per-file failures
type WarningKind int

const (
	TraversalWarning WarningKind = iota // a path could not be listed or stat'd
	HashFailure                         // a candidate file could not be hashed
	DeletionFailure                     // a removable file could not be deleted
)

// String returns the warning kind name
func (wk WarningKind) String() string {
	switch wk {
	case TraversalWarning:
		return "traversal"
	case HashFailure:
		return "hash"
	case DeletionFailure:
		return "deletion"
	default:
		return "unknown"
	}
}

// ScanWarning records one non-fatal failure for the end-of-run summary
type ScanWarning struct {
	Kind WarningKind
	Path string
	Err  error
}

// String formats the warning for display
func (w ScanWarning) String() string {
	return fmt.Sprintf("%s: %s: %v", w.Kind, w.Path, w.Err)
}

// warningCollector serializes warning collection from concurrent pipeline
// stages. File-level failures are always local and non-fatal; they are
// gathered here and surfaced in the summary.
type warningCollector struct {
	mutex    sync.Mutex
	warnings []ScanWarning
}

func newWarningCollector() *warningCollector {
	return &warningCollector{}
}

// Add records a warning and logs it
func (wc *warningCollector) Add(kind WarningKind, path string, err error) {
	wc.mutex.Lock()
	wc.warnings = append(wc.warnings, ScanWarning{Kind: kind, Path: path, Err: err})
	wc.mutex.Unlock()

	logger.WarnKV("file skipped", "kind", kind.String(), "path", path, "error", err.Error())
}

// List returns a copy of all collected warnings
func (wc *warningCollector) List() []ScanWarning {
	wc.mutex.Lock()
	defer wc.mutex.Unlock()

	out := make([]ScanWarning, len(wc.warnings))
	copy(out, wc.warnings)
	return out
}

// Count returns the total number of warnings
func (wc *warningCollector) Count() int {
	wc.mutex.Lock()
	defer wc.mutex.Unlock()
	return len(wc.warnings)
}

// CountKind returns the number of warnings of one kind
func (wc *warningCollector) CountKind(kind WarningKind) int {
	wc.mutex.Lock()
	defer wc.mutex.Unlock()

	n := 0
	for _, w := range wc.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// ConfigError marks a configuration-level failure. Unlike file-level
// warnings these abort the run before any work begins.
type ConfigError struct {
	Option string
	Err    error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Option, e.Err)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Err
}
