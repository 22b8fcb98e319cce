package dupescan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
)

// inodeKey identifies file content on disk. Hardlinked copies share one
// key and must not be reported as duplicates of each other.
type inodeKey struct {
	dev uint64
	ino uint64
}

// treeWalker streams FileRecords for every regular file under a root.
// It is the only writer of records; ownership passes to the catalog
// collector through the channel.
type treeWalker struct {
	root       string
	excludes   *ExcludeMatcher
	minSize    int64
	skipPaths  map[string]struct{} // absolute paths never catalogued (e.g. the report file)
	seenInodes map[inodeKey]struct{}
	progress   *ScanProgress
	warnings   *warningCollector
}

// newTreeWalker prepares a walker for one run
func newTreeWalker(root string, excludes *ExcludeMatcher, minSize int64, skipPaths []string, progress *ScanProgress, warnings *warningCollector) *treeWalker {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = struct{}{}
		}
	}

	return &treeWalker{
		root:       root,
		excludes:   excludes,
		minSize:    minSize,
		skipPaths:  skip,
		seenInodes: make(map[inodeKey]struct{}),
		progress:   progress,
		warnings:   warnings,
	}
}

// Walk scans the tree in sorted order and streams records as they are
// found. Symlinks are skipped entirely, as are additional hardlinks to an
// inode already catalogued. Unreadable entries produce traversal warnings
// and the walk continues.
func (w *treeWalker) Walk(recordChan chan<- *FileRecord, shutdownChan <-chan struct{}) error {
	defer VerboseEnter()()
	defer close(recordChan)

	if IsDebugEnabled("walk") {
		VerboseLog(3, "walk: starting scan of root %s", w.root)
	}

	// Sorted queue keeps the stream in lexicographic order, which is what
	// gives the catalog a stable shape across runs.
	pathQueue := []string{w.root}

	for len(pathQueue) > 0 {
		// Check for shutdown
		select {
		case <-shutdownChan:
			if IsDebugEnabled("walk") {
				VerboseLog(3, "walk: interrupted by shutdown")
			}
			return fmt.Errorf("walk of %s: %w", w.root, ErrScanCancelled)
		default:
		}

		currentPath := pathQueue[0]
		pathQueue = pathQueue[1:]

		info, err := os.Lstat(currentPath)
		if err != nil {
			w.warn(currentPath, err)
			continue
		}

		relPath, err := filepath.Rel(w.root, currentPath)
		if err != nil {
			w.warn(currentPath, err)
			continue
		}

		if w.excludes.ShouldExclude(relPath) {
			if IsDebugEnabled("walk") {
				VerboseLog(3, "walk: excluded %s", relPath)
			}
			continue
		}

		// Symlinks are neither followed nor catalogued. Their targets are
		// reachable through real paths if they live under the root.
		if info.Mode()&os.ModeSymlink != 0 {
			if IsDebugEnabled("walk") {
				VerboseLog(3, "walk: skipping symlink %s", relPath)
			}
			continue
		}

		if info.IsDir() {
			entries, err := os.ReadDir(currentPath)
			if err != nil {
				w.warn(currentPath, err)
				continue
			}

			// Sort entries for consistent ordering
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Name() < entries[j].Name()
			})

			var newPaths []string
			for _, entry := range entries {
				newPaths = append(newPaths, filepath.Join(currentPath, entry.Name()))
			}

			pathQueue = insertSorted(pathQueue, newPaths)
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		if _, skipped := w.skipPaths[currentPath]; skipped {
			continue
		}

		if info.Size() < w.minSize {
			continue
		}

		stat, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			w.warn(currentPath, fmt.Errorf("no stat information"))
			continue
		}

		key := inodeKey{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}
		if _, seen := w.seenInodes[key]; seen {
			if IsDebugEnabled("walk") {
				VerboseLog(3, "walk: skipping hardlink %s (dev=%d ino=%d)", relPath, key.dev, key.ino)
			}
			continue
		}
		w.seenInodes[key] = struct{}{}

		record := &FileRecord{
			Path:    currentPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			dev:     key.dev,
			ino:     key.ino,
		}

		if IsDebugEnabled("walk") {
			VerboseLog(3, "walk: found file %s size=%d", relPath, record.Size)
		}

		w.progress.FilesDiscovered.Add(1)
		w.progress.BytesDiscovered.Add(record.Size)

		// Stream the record immediately; the catalog collector owns it
		// from here.
		select {
		case recordChan <- record:
		case <-shutdownChan:
			return fmt.Errorf("walk of %s: %w", w.root, ErrScanCancelled)
		}
	}

	return nil
}

func (w *treeWalker) warn(path string, err error) {
	w.progress.Warnings.Add(1)
	w.warnings.Add(TraversalWarning, path, err)
}

// insertSorted inserts new paths into an existing sorted slice maintaining order
func insertSorted(existing []string, newPaths []string) []string {
	if len(newPaths) == 0 {
		return existing
	}
	if len(existing) == 0 {
		sort.Strings(newPaths)
		return newPaths
	}

	// Merge the two sorted slices
	result := make([]string, 0, len(existing)+len(newPaths))

	sort.Strings(newPaths)

	i, j := 0, 0
	for i < len(existing) && j < len(newPaths) {
		if existing[i] <= newPaths[j] {
			result = append(result, existing[i])
			i++
		} else {
			result = append(result, newPaths[j])
			j++
		}
	}

	for i < len(existing) {
		result = append(result, existing[i])
		i++
	}
	for j < len(newPaths) {
		result = append(result, newPaths[j])
		j++
	}

	return result
}
