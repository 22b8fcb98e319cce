package dupescan

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// scanCatalog is the path-ordered collection of records built during
// traversal. Backing it with a skiplist keyed by path gives every later
// stage one deterministic iteration order, which is what makes repeated
// runs over an unchanged tree produce identical buckets, groups, and
// reports.
type scanCatalog struct {
	skiplist *zcsl.ZeroCopySkiplist[FileRecord, string, string]
}

// newScanCatalog creates an empty catalog
func newScanCatalog() *scanCatalog {
	// Key extractor function - the absolute path orders the catalog
	getKeyFromItem := func(r *FileRecord) string {
		return r.Path
	}

	// Size function, only used for serialization accounting
	getItemSize := func(r *FileRecord) int {
		return len(r.Path)
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	skiplist := zcsl.MakeZeroCopySkiplist[FileRecord, string, string](
		16,
		getKeyFromItem,
		getItemSize,
		cmpKey,
	)

	return &scanCatalog{
		skiplist: skiplist,
	}
}

// Insert adds a record with the given context
func (sc *scanCatalog) Insert(record *FileRecord, context string) bool {
	return sc.skiplist.Insert(record, context)
}

// ForEach iterates through all records in path order with a callback
func (sc *scanCatalog) ForEach(callback func(*FileRecord, string) bool) {
	for current := sc.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			break
		}
	}
}

// MarkCandidate updates a record's context once it joins a bucket that
// still has >=2 members
func (sc *scanCatalog) MarkCandidate(path string) bool {
	return sc.skiplist.UpdateContext(path, CandidateContext)
}

// Length returns the number of catalogued records
func (sc *scanCatalog) Length() int {
	return sc.skiplist.Length()
}

// IsEmpty returns true if the catalog has no records
func (sc *scanCatalog) IsEmpty() bool {
	return sc.skiplist.IsEmpty()
}

// dumpCatalog logs every record with its context when catalog debugging is on
func (sc *scanCatalog) dumpCatalog() {
	if !IsDebugEnabled("catalog") {
		return
	}
	sc.ForEach(func(r *FileRecord, context string) bool {
		VerboseLog(3, "catalog: %s size=%d context=%s", r.Path, r.Size, context)
		return true
	})
}
