package dupescan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mordilloSan/go-logger/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// ScanConfig is the full engine configuration for one run. Values are
// resolved once by NewScanner; nothing is re-read mid-run.
type ScanConfig struct {
	Root              string   // directory tree to scan
	ReportDestination string   // report file path, "-" for stdout
	ReportFormat      string   // csv, json, text
	Delete            bool     // enable the deletion phase
	DryRun            bool     // preview decisions without removing
	HashAlgorithm     string   // md5/fast, sha256/strong, sha512
	HashBuffer        string   // streaming chunk size, human syntax
	Workers           int      // hash pool size, 0 = available parallelism
	Prefilter         bool     // prefix digest pre-filter
	PrefixSize        int64    // leading bytes the pre-filter digests
	ExcludePatterns   []string // regexps matched against root-relative paths
	MinSize           int64    // ignore files smaller than this
	KeepPolicy        string   // oldest, newest, path
}

// DefaultScanConfig returns the engine defaults
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		ReportDestination: DefaultReportName,
		ReportFormat:      "csv",
		HashAlgorithm:     DefaultHashAlgorithm,
		HashBuffer:        DefaultHashBuffer,
		Prefilter:         true,
		PrefixSize:        DefaultPrefixSize,
	}
}

// ScanSummary is the end-of-run accounting reported regardless of how the
// run went.
type ScanSummary struct {
	FilesScanned     int64
	BytesScanned     int64
	CandidateFiles   int64
	GroupsFound      int
	BytesReclaimable int64
	BytesFreed       int64
	Warnings         int
	DeletionFailures int
	Elapsed          time.Duration
}

// ScanResult is everything one completed run produced
type ScanResult struct {
	Groups   []*DuplicateGroup
	Warnings []ScanWarning
	Summary  ScanSummary
}

// ApplyDeletion folds the outcome of the deletion protocol into the summary
func (sr *ScanResult) ApplyDeletion(results []GroupResult) {
	for _, gr := range results {
		sr.Summary.BytesFreed += gr.BytesFreed()
		if gr.State == GroupDeleteFailed {
			sr.Summary.DeletionFailures++
		}
	}
}

// Scanner runs the two-pass detection engine: size-based candidate
// grouping, concurrent content hashing of candidates, duplicate-group
// assembly, and the deletion protocol. One Scanner serves one run.
type Scanner struct {
	config    ScanConfig
	algorithm *HashAlgorithm
	bufSize   int
	policy    KeeperPolicy
	excludes  *ExcludeMatcher
	progress  *ScanProgress
	warnings  *warningCollector
}

// NewScanner validates the configuration and resolves every choice the run
// needs. All validation failures here are fatal and happen before any work
// begins.
func NewScanner(config ScanConfig) (*Scanner, error) {
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, &ConfigError{Option: "root path", Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ConfigError{Option: "root path", Err: err}
	}
	if !info.IsDir() {
		return nil, &ConfigError{Option: "root path", Err: fmt.Errorf("%s is not a directory", root)}
	}
	if err := unix.Access(root, unix.R_OK); err != nil {
		return nil, &ConfigError{Option: "root path", Err: fmt.Errorf("%s is not readable: %w", root, err)}
	}
	config.Root = root

	if config.ReportDestination != "-" {
		if err := checkDestinationWritable(config.ReportDestination); err != nil {
			return nil, &ConfigError{Option: "output destination", Err: err}
		}
	}

	algorithm, err := GetHashAlgorithm(config.HashAlgorithm)
	if err != nil {
		return nil, &ConfigError{Option: "hash algorithm", Err: err}
	}

	bufSize, err := ParseHumanSize(config.HashBuffer)
	if err != nil {
		return nil, &ConfigError{Option: "hash buffer", Err: err}
	}
	if bufSize <= 0 {
		return nil, &ConfigError{Option: "hash buffer", Err: fmt.Errorf("must be positive: %s", config.HashBuffer)}
	}

	policy, err := ParseKeeperPolicy(config.KeepPolicy)
	if err != nil {
		return nil, &ConfigError{Option: "keeper policy", Err: err}
	}

	excludes, err := NewExcludeMatcher(config.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.PrefixSize <= 0 {
		config.PrefixSize = DefaultPrefixSize
	}
	if config.MinSize < 0 {
		return nil, &ConfigError{Option: "minimum size", Err: fmt.Errorf("must not be negative: %d", config.MinSize)}
	}

	return &Scanner{
		config:    config,
		algorithm: algorithm,
		bufSize:   bufSize,
		policy:    policy,
		excludes:  excludes,
		progress:  &ScanProgress{},
		warnings:  newWarningCollector(),
	}, nil
}

// checkDestinationWritable verifies the report destination before any work
// begins: an existing file must be writable, otherwise its directory must
// be.
func checkDestinationWritable(destination string) error {
	abs, err := filepath.Abs(destination)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err == nil {
		if err := unix.Access(abs, unix.W_OK); err != nil {
			return fmt.Errorf("%s is not writable: %w", abs, err)
		}
		return nil
	}
	dir := filepath.Dir(abs)
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	return nil
}

// Config returns the resolved configuration for the run
func (sc *Scanner) Config() ScanConfig {
	return sc.config
}

// Progress returns a point-in-time snapshot of the run's counters
func (sc *Scanner) Progress() ProgressSnapshot {
	return sc.progress.Snapshot()
}

// Warnings returns the non-fatal failures collected so far
func (sc *Scanner) Warnings() []ScanWarning {
	return sc.warnings.List()
}

// Scan runs detection end to end: walk, size index, hash, group. A closed
// shutdown channel cancels the run; a cancelled run returns
// ErrScanCancelled and no groups, never a partial result.
func (sc *Scanner) Scan(shutdownChan <-chan struct{}) (*ScanResult, error) {
	defer VerboseEnter()()
	start := time.Now()

	logger.InfoKV("scan starting", "root", sc.config.Root,
		"algorithm", sc.algorithm.Name, "workers", sc.config.Workers)

	catalog, err := sc.buildCatalog(shutdownChan)
	if err != nil {
		return nil, err
	}
	if catalog.IsEmpty() {
		logger.Debugf("catalog is empty, nothing to hash")
	}
	logger.Debugf("catalog: %d files", catalog.Length())

	buckets := indexBySize(catalog, sc.progress)
	logger.Debugf("size index: %d buckets, %d candidate files",
		len(buckets), candidateCount(buckets))

	candidates := sc.flattenCandidates(buckets)
	if sc.config.Prefilter {
		candidates, err = sc.prefilterCandidates(candidates, shutdownChan)
		if err != nil {
			return nil, err
		}
	}

	grouper := newDuplicateGrouper(sc.policy, sc.algorithm.TypeID)
	if err := sc.hashCandidates(candidates, grouper, shutdownChan); err != nil {
		return nil, err
	}

	groups := grouper.Groups()
	catalog.dumpCatalog()

	result := &ScanResult{
		Groups:   groups,
		Warnings: sc.warnings.List(),
	}
	result.Summary = ScanSummary{
		FilesScanned:   sc.progress.FilesDiscovered.Load(),
		BytesScanned:   sc.progress.BytesDiscovered.Load(),
		CandidateFiles: sc.progress.CandidatesFound.Load(),
		GroupsFound:    len(groups),
		Warnings:       sc.warnings.Count(),
		Elapsed:        time.Since(start),
	}
	for _, g := range groups {
		result.Summary.BytesReclaimable += g.Reclaimable()
	}

	logger.InfoKV("scan complete", "files", result.Summary.FilesScanned,
		"groups", result.Summary.GroupsFound,
		"reclaimable", FormatBytes(result.Summary.BytesReclaimable),
		"warnings", result.Summary.Warnings)

	return result, nil
}

// Delete runs the deletion protocol over the groups of a completed scan.
// It must only be called after Scan returns; nothing here can race an
// in-flight hash.
func (sc *Scanner) Delete(groups []*DuplicateGroup, preview PreviewFunc, decide DecideFunc) []GroupResult {
	coordinator := newDeletionCoordinator(preview, decide, sc.config.DryRun, sc.warnings)
	return coordinator.Run(groups)
}

// buildCatalog runs the walker and the catalog collector concurrently. The
// collector is the catalog's single writer.
func (sc *Scanner) buildCatalog(shutdownChan <-chan struct{}) (*scanCatalog, error) {
	catalog := newScanCatalog()
	recordChan := make(chan *FileRecord, recordChanDepth)

	walker := newTreeWalker(sc.config.Root, sc.excludes, sc.config.MinSize,
		[]string{sc.config.ReportDestination}, sc.progress, sc.warnings)

	var g errgroup.Group
	g.Go(func() error {
		return walker.Walk(recordChan, shutdownChan)
	})
	g.Go(func() error {
		for record := range recordChan {
			catalog.Insert(record, ScanContext)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// flattenCandidates turns the size buckets into one unit-of-work list for
// the pool. Bucket boundaries stop mattering here: only the (size, digest)
// key decides grouping.
func (sc *Scanner) flattenCandidates(buckets []*SizeBucket) []*FileRecord {
	candidates := make([]*FileRecord, 0, candidateCount(buckets))
	for _, bucket := range buckets {
		candidates = append(candidates, bucket.Records...)
	}
	return candidates
}

// prefilterCandidates digests only the leading PrefixSize bytes of each
// candidate and drops files whose prefix is unique within their size: a
// differing prefix proves non-duplication. Files no bigger than the prefix
// skip this pass since the full digest costs the same read. The full
// digest stays authoritative, so the filter can only remove provable
// non-duplicates, never create a false duplicate.
func (sc *Scanner) prefilterCandidates(candidates []*FileRecord, shutdownChan <-chan struct{}) ([]*FileRecord, error) {
	var small, large []*FileRecord
	for _, r := range candidates {
		if r.Size <= sc.config.PrefixSize {
			small = append(small, r)
		} else {
			large = append(large, r)
		}
	}
	if len(large) == 0 {
		return candidates, nil
	}

	byPrefix := make(map[groupKey][]*FileRecord)
	collect := func(outcome *hashOutcome) {
		if outcome.err != nil {
			// A digest cut short by shutdown is not a file failure.
			if errors.Is(outcome.err, ErrScanCancelled) {
				return
			}
			sc.progress.Warnings.Add(1)
			sc.warnings.Add(HashFailure, outcome.record.Path, outcome.err)
			return
		}
		key := groupKey{size: outcome.record.Size, digest: string(outcome.digest)}
		byPrefix[key] = append(byPrefix[key], outcome.record)
	}

	if err := sc.runPool(large, true, collect, shutdownChan); err != nil {
		return nil, err
	}

	survivors := small
	for _, records := range byPrefix {
		if len(records) >= 2 {
			survivors = append(survivors, records...)
		}
	}

	if IsDebugEnabled("hash") {
		VerboseLog(3, "prefilter: %d of %d large candidates survive", len(survivors)-len(small), len(large))
	}
	return survivors, nil
}

// hashCandidates computes the authoritative full-content digest of every
// surviving candidate and feeds results to the grouper.
func (sc *Scanner) hashCandidates(candidates []*FileRecord, grouper *duplicateGrouper, shutdownChan <-chan struct{}) error {
	collect := func(outcome *hashOutcome) {
		if outcome.err != nil {
			if errors.Is(outcome.err, ErrScanCancelled) {
				return
			}
			sc.progress.Warnings.Add(1)
			sc.warnings.Add(HashFailure, outcome.record.Path, outcome.err)
			return
		}
		grouper.Add(&HashResult{
			Record:   outcome.record,
			Digest:   outcome.digest,
			HashType: sc.algorithm.TypeID,
		})
	}
	return sc.runPool(candidates, false, collect, shutdownChan)
}

// runPool pushes one batch of records through a fresh worker pool and
// hands every outcome to collect on the calling goroutine, which therefore
// owns all accumulation state. Returns ErrScanCancelled once shutdown is
// requested; collected results are discarded by the caller in that case.
func (sc *Scanner) runPool(records []*FileRecord, prefixOnly bool, collect func(*hashOutcome), shutdownChan <-chan struct{}) error {
	pool := newHashPool(sc.config.Workers, sc.algorithm, sc.bufSize,
		sc.config.PrefixSize, sc.progress, shutdownChan)

	go func() {
		for _, r := range records {
			if !pool.Submit(&hashJob{record: r, prefixOnly: prefixOnly}) {
				break
			}
		}
		pool.FinishSubmitting()
	}()

	go pool.Wait()

	for outcome := range pool.resultChan {
		collect(outcome)
	}

	select {
	case <-shutdownChan:
		return fmt.Errorf("hashing: %w", ErrScanCancelled)
	default:
	}
	return nil
}

// FreeSpace reports the free bytes on the filesystem holding path
func FreeSpace(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
