package dupescan

import "sort"

// SizeBucket holds all catalogued files of one exact byte length, in
// catalog path order. Only buckets that keep >=2 members after pruning can
// contain duplicates.
type SizeBucket struct {
	Size    int64
	Records []*FileRecord
}

// indexBySize walks the catalog and returns the size buckets that still
// have at least two members, in ascending size order. Singleton buckets
// are pruned since a file of unique size cannot have a duplicate.
//
// Zero-byte files get no special treatment here: they bucket together like
// any other size and flow through the hash path, where the digest of empty
// content is a constant per algorithm. That keeps failure semantics
// uniform for every file.
func indexBySize(catalog *scanCatalog, progress *ScanProgress) []*SizeBucket {
	defer VerboseEnter()()

	bySize := make(map[int64][]*FileRecord)
	catalog.ForEach(func(r *FileRecord, context string) bool {
		bySize[r.Size] = append(bySize[r.Size], r)
		return true
	})

	sizes := make([]int64, 0, len(bySize))
	for size, records := range bySize {
		if len(records) < 2 {
			continue
		}
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	buckets := make([]*SizeBucket, 0, len(sizes))
	for _, size := range sizes {
		records := bySize[size]
		for _, r := range records {
			catalog.MarkCandidate(r.Path)
			progress.CandidatesFound.Add(1)
		}
		buckets = append(buckets, &SizeBucket{Size: size, Records: records})

		if IsDebugEnabled("index") {
			VerboseLog(3, "index: size=%d members=%d", size, len(records))
		}
	}

	return buckets
}

// candidateCount sums the members across buckets
func candidateCount(buckets []*SizeBucket) int {
	n := 0
	for _, bucket := range buckets {
		n += len(bucket.Records)
	}
	return n
}
