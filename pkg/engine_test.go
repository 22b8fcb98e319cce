package dupescan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

// groupSignatures flattens groups into comparable strings: digest, keeper,
// and removable paths.
func groupSignatures(groups []*DuplicateGroup) []string {
	sigs := make([]string, 0, len(groups))
	for _, g := range groups {
		parts := []string{g.Digest, g.Keeper.Path}
		for _, r := range g.Removable {
			parts = append(parts, r.Path)
		}
		sigs = append(sigs, strings.Join(parts, "|"))
	}
	sort.Strings(sigs)
	return sigs
}

func TestScan_BasicScenario(t *testing.T) {
	// A and B share size and content, C shares only size, D is unique
	tempDir := t.TempDir()
	writeTestFile(t, filepath.Join(tempDir, "a.txt"), strings.Repeat("x", 10), baseTime)
	writeTestFile(t, filepath.Join(tempDir, "b.txt"), strings.Repeat("x", 10), baseTime.Add(time.Hour))
	writeTestFile(t, filepath.Join(tempDir, "c.txt"), strings.Repeat("y", 10), baseTime)
	writeTestFile(t, filepath.Join(tempDir, "d.txt"), strings.Repeat("z", 5), baseTime)

	scanner := newTestScanner(t, tempDir, nil)
	result, err := scanner.Scan(nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Groups) != 1 {
		t.Fatalf("Expected 1 duplicate group, got %d", len(result.Groups))
	}

	g := result.Groups[0]
	if g.Size != 10 {
		t.Errorf("Expected group size 10, got %d", g.Size)
	}
	if g.Keeper.Path != filepath.Join(tempDir, "a.txt") {
		t.Errorf("Expected keeper a.txt (oldest), got %s", g.Keeper.Path)
	}
	if len(g.Removable) != 1 || g.Removable[0].Path != filepath.Join(tempDir, "b.txt") {
		t.Errorf("Expected removable b.txt, got %v", g.Removable)
	}

	s := result.Summary
	if s.FilesScanned != 4 {
		t.Errorf("Expected 4 files scanned, got %d", s.FilesScanned)
	}
	if s.GroupsFound != 1 {
		t.Errorf("Expected 1 group in summary, got %d", s.GroupsFound)
	}
	if s.BytesReclaimable != 10 {
		t.Errorf("Expected 10 reclaimable bytes, got %d", s.BytesReclaimable)
	}

	progress := scanner.Progress()
	if progress.FilesDiscovered != 4 {
		t.Errorf("Expected 4 files discovered, got %d", progress.FilesDiscovered)
	}
	if progress.CandidatesFound != 3 {
		t.Errorf("Expected 3 candidates (a, b, c share a size), got %d", progress.CandidatesFound)
	}
	if progress.FullHashed != 3 {
		t.Errorf("Expected 3 full digests, got %d", progress.FullHashed)
	}
}

func TestScan_GroupInvariants(t *testing.T) {
	tempDir := t.TempDir()
	// Three duplicate pairs at different sizes plus unique files
	for i := 0; i < 3; i++ {
		content := strings.Repeat(fmt.Sprintf("%d", i), (i+1)*100)
		writeTestFile(t, filepath.Join(tempDir, fmt.Sprintf("pair%d_a.bin", i)), content, baseTime)
		writeTestFile(t, filepath.Join(tempDir, fmt.Sprintf("pair%d_b.bin", i)), content, baseTime.Add(time.Minute))
	}
	writeTestFile(t, filepath.Join(tempDir, "solo.bin"), "solitary content", baseTime)

	scanner := newTestScanner(t, tempDir, nil)
	result, err := scanner.Scan(nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Groups) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(result.Groups))
	}

	for _, g := range result.Groups {
		if g.Count() < 2 {
			t.Errorf("Group %d has fewer than 2 members", g.ID)
		}
		for _, m := range g.Members() {
			if m.Size != g.Size {
				t.Errorf("Group %d member %s has size %d, group size %d",
					g.ID, m.Path, m.Size, g.Size)
			}
		}
		if strings.Contains(g.Keeper.Path, "solo") {
			t.Error("Unique file appeared as a keeper")
		}
	}

	// Group ids are sequential from 1 in keeper-path order
	for i, g := range result.Groups {
		if g.ID != i+1 {
			t.Errorf("Expected group id %d, got %d", i+1, g.ID)
		}
	}
}

func TestScan_ZeroByteFiles(t *testing.T) {
	tempDir := t.TempDir()
	writeTestFile(t, filepath.Join(tempDir, "empty_a"), "", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "empty_b"), "", baseTime.Add(time.Hour))

	scanner := newTestScanner(t, tempDir, nil)
	result, err := scanner.Scan(nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Groups) != 1 {
		t.Fatalf("Expected zero-byte files in one group, got %d groups", len(result.Groups))
	}
	if result.Groups[0].Count() != 2 {
		t.Errorf("Expected 2 members, got %d", result.Groups[0].Count())
	}
	if result.Groups[0].Size != 0 {
		t.Errorf("Expected group size 0, got %d", result.Groups[0].Size)
	}
}

func TestScan_Idempotent(t *testing.T) {
	tempDir := t.TempDir()
	writeTestFile(t, filepath.Join(tempDir, "x1.dat"), "same bytes here", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "x2.dat"), "same bytes here", baseTime.Add(time.Hour))
	writeTestFile(t, filepath.Join(tempDir, "y1.dat"), "other same data", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "y2.dat"), "other same data", baseTime.Add(time.Hour))

	first, err := newTestScanner(t, tempDir, nil).Scan(nil)
	if err != nil {
		t.Fatalf("First scan failed: %v", err)
	}
	second, err := newTestScanner(t, tempDir, nil).Scan(nil)
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}

	sigA := groupSignatures(first.Groups)
	sigB := groupSignatures(second.Groups)
	if len(sigA) != len(sigB) {
		t.Fatalf("Run group counts differ: %d vs %d", len(sigA), len(sigB))
	}
	for i := range sigA {
		if sigA[i] != sigB[i] {
			t.Errorf("Runs differ at group %d:\n  %s\n  %s", i, sigA[i], sigB[i])
		}
	}
}

func TestScan_WorkerCountInvariant(t *testing.T) {
	tempDir := t.TempDir()
	for i := 0; i < 10; i++ {
		content := strings.Repeat("c", 64+i%3)
		writeTestFile(t, filepath.Join(tempDir, fmt.Sprintf("f%02d.bin", i)), content, baseTime)
	}

	var signatures [][]string
	for _, workers := range []int{1, 8} {
		scanner := newTestScanner(t, tempDir, func(c *ScanConfig) {
			c.Workers = workers
		})
		result, err := scanner.Scan(nil)
		if err != nil {
			t.Fatalf("Scan with %d workers failed: %v", workers, err)
		}
		signatures = append(signatures, groupSignatures(result.Groups))
	}

	if len(signatures[0]) != len(signatures[1]) {
		t.Fatalf("Group counts differ across worker counts: %d vs %d",
			len(signatures[0]), len(signatures[1]))
	}
	for i := range signatures[0] {
		if signatures[0][i] != signatures[1][i] {
			t.Errorf("Results differ between 1 and 8 workers at group %d", i)
		}
	}
}

func TestScan_PrefilterInvariant(t *testing.T) {
	tempDir := t.TempDir()
	prefix := strings.Repeat("p", 8192)

	// Identical prefixes with differing tails must never group together
	writeTestFile(t, filepath.Join(tempDir, "tail_a.bin"), prefix+"ending-a", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "tail_b.bin"), prefix+"ending-b", baseTime)
	// Genuine duplicates larger than the prefix
	writeTestFile(t, filepath.Join(tempDir, "dup_1.bin"), prefix+"shared", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "dup_2.bin"), prefix+"shared", baseTime.Add(time.Hour))
	// Different prefixes, same size: the filter should prune these
	writeTestFile(t, filepath.Join(tempDir, "pre_a.bin"), "A"+prefix, baseTime)
	writeTestFile(t, filepath.Join(tempDir, "pre_b.bin"), "B"+prefix, baseTime)

	var signatures [][]string
	for _, prefilter := range []bool{true, false} {
		scanner := newTestScanner(t, tempDir, func(c *ScanConfig) {
			c.Prefilter = prefilter
		})
		result, err := scanner.Scan(nil)
		if err != nil {
			t.Fatalf("Scan (prefilter=%t) failed: %v", prefilter, err)
		}
		signatures = append(signatures, groupSignatures(result.Groups))
	}

	if len(signatures[0]) != 1 || len(signatures[1]) != 1 {
		t.Fatalf("Expected exactly 1 group for both modes, got %d and %d",
			len(signatures[0]), len(signatures[1]))
	}
	if signatures[0][0] != signatures[1][0] {
		t.Errorf("Prefilter changed the result:\n  on:  %s\n  off: %s",
			signatures[0][0], signatures[1][0])
	}
	if !strings.Contains(signatures[0][0], "dup_1.bin") {
		t.Errorf("Expected the dup pair in the group, got %s", signatures[0][0])
	}
}

func TestScan_Cancellation(t *testing.T) {
	tempDir := t.TempDir()
	writeTestFile(t, filepath.Join(tempDir, "a.bin"), "content", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "b.bin"), "content", baseTime)

	shutdownChan := make(chan struct{})
	close(shutdownChan)

	scanner := newTestScanner(t, tempDir, nil)
	result, err := scanner.Scan(shutdownChan)
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if result != nil {
		t.Error("A cancelled run must not return partial groups")
	}
}

func TestHashCandidates_CancellationIsNotAWarning(t *testing.T) {
	tempDir := t.TempDir()
	var records []*FileRecord
	for i := 0; i < 8; i++ {
		path := filepath.Join(tempDir, fmt.Sprintf("f%d.bin", i))
		writeTestFile(t, path, strings.Repeat("w", 64), baseTime)
		records = append(records, makeRecord(path, 64, baseTime))
	}

	scanner := newTestScanner(t, tempDir, nil)
	shutdownChan := make(chan struct{})
	close(shutdownChan)

	grouper := newDuplicateGrouper(KeepOldest, scanner.algorithm.TypeID)
	err := scanner.hashCandidates(records, grouper, shutdownChan)
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if !errors.Is(err, ErrScanCancelled) {
		t.Fatalf("Expected ErrScanCancelled, got: %v", err)
	}

	// Digests cut short by the shutdown must not surface as per-file
	// hash failures.
	if warnings := scanner.Warnings(); len(warnings) != 0 {
		t.Errorf("Expected no warnings after cancellation, got %v", warnings)
	}
	if n := scanner.Progress().Warnings; n != 0 {
		t.Errorf("Expected warning counter 0 after cancellation, got %d", n)
	}
}

func TestScan_FileDisappearsBeforeHashing(t *testing.T) {
	// Simulate a file vanishing between indexing and hashing by feeding the
	// hash phase a record whose path no longer exists.
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "still_here.bin")
	writeTestFile(t, existing, "content", baseTime)

	scanner := newTestScanner(t, tempDir, nil)

	gone := makeRecord(filepath.Join(tempDir, "vanished.bin"), 7, baseTime)
	here := makeRecord(existing, 7, baseTime)

	grouper := newDuplicateGrouper(KeepOldest, scanner.algorithm.TypeID)
	if err := scanner.hashCandidates([]*FileRecord{gone, here}, grouper, nil); err != nil {
		t.Fatalf("hashCandidates failed: %v", err)
	}

	warnings := scanner.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 hash failure warning, got %d", len(warnings))
	}
	if warnings[0].Kind != HashFailure {
		t.Errorf("Expected HashFailure, got %s", warnings[0].Kind)
	}
	if warnings[0].Path != gone.Path {
		t.Errorf("Expected warning for %s, got %s", gone.Path, warnings[0].Path)
	}

	// The surviving file forms no group on its own
	if groups := grouper.Groups(); len(groups) != 0 {
		t.Errorf("Expected no groups, got %d", len(groups))
	}
}

func TestScan_ExcludePattern(t *testing.T) {
	tempDir := t.TempDir()
	writeTestFile(t, filepath.Join(tempDir, "doc.txt"), "duplicate content", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "copy.txt"), "duplicate content", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "backup", "doc.txt"), "duplicate content", baseTime)

	scanner := newTestScanner(t, tempDir, func(c *ScanConfig) {
		c.ExcludePatterns = []string{`^backup/`}
	})
	result, err := scanner.Scan(nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(result.Groups))
	}
	for _, m := range result.Groups[0].Members() {
		if strings.Contains(m.Path, "backup") {
			t.Errorf("Excluded file %s appeared in a group", m.Path)
		}
	}
	if result.Summary.FilesScanned != 2 {
		t.Errorf("Expected 2 files scanned, got %d", result.Summary.FilesScanned)
	}
}

func TestScan_HardlinksNotDuplicates(t *testing.T) {
	tempDir := t.TempDir()
	original := filepath.Join(tempDir, "one.bin")
	writeTestFile(t, original, "hardlinked content", baseTime)
	if err := os.Link(original, filepath.Join(tempDir, "two.bin")); err != nil {
		t.Skipf("Cannot create hardlink: %v", err)
	}

	scanner := newTestScanner(t, tempDir, nil)
	result, err := scanner.Scan(nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Groups) != 0 {
		t.Errorf("Hardlinked pair must not form a duplicate group, got %d groups", len(result.Groups))
	}
}

func TestNewScanner_FatalConfigErrors(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*ScanConfig)
	}{
		{"missing root", func(c *ScanConfig) { c.Root = filepath.Join(tempDir, "missing") }},
		{"root is a file", func(c *ScanConfig) {
			path := filepath.Join(tempDir, "file.txt")
			writeTestFile(t, path, "x", baseTime)
			c.Root = path
		}},
		{"unknown algorithm", func(c *ScanConfig) { c.HashAlgorithm = "rot13" }},
		{"bad buffer size", func(c *ScanConfig) { c.HashBuffer = "lots" }},
		{"zero buffer size", func(c *ScanConfig) { c.HashBuffer = "0" }},
		{"bad keeper policy", func(c *ScanConfig) { c.KeepPolicy = "biggest" }},
		{"bad exclude pattern", func(c *ScanConfig) { c.ExcludePatterns = []string{"["} }},
		{"negative min size", func(c *ScanConfig) { c.MinSize = -1 }},
		{"unwritable destination", func(c *ScanConfig) {
			c.ReportDestination = filepath.Join(tempDir, "no", "such", "dir", "report.csv")
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultScanConfig()
			config.Root = tempDir
			config.ReportDestination = "-"
			tc.mutate(&config)

			if _, err := NewScanner(config); err == nil {
				t.Error("Expected a fatal configuration error")
			}
		})
	}
}

func TestScan_NoDuplicates(t *testing.T) {
	tempDir := t.TempDir()
	writeTestFile(t, filepath.Join(tempDir, "a.txt"), "alpha", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "b.txt"), "beta content", baseTime)

	scanner := newTestScanner(t, tempDir, nil)
	result, err := scanner.Scan(nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(result.Groups) != 0 {
		t.Errorf("Expected no groups, got %d", len(result.Groups))
	}
	if result.Summary.FilesScanned != 2 {
		t.Errorf("Expected 2 files scanned, got %d", result.Summary.FilesScanned)
	}
}

func TestFreeSpace(t *testing.T) {
	free, err := FreeSpace(t.TempDir())
	if err != nil {
		t.Fatalf("FreeSpace failed: %v", err)
	}
	if free < 0 {
		t.Errorf("Expected non-negative free space, got %d", free)
	}
}
