package dupescan

import (
	"fmt"
	"sort"
	"strings"
)

// KeeperPolicy selects which member of a duplicate group is retained
type KeeperPolicy int

const (
	KeepOldest KeeperPolicy = iota // earliest mtime, tie-break smallest path (default)
	KeepNewest                     // latest mtime, tie-break smallest path
	KeepPath                       // lexicographically smallest path
)

// String returns the keeper policy name
func (kp KeeperPolicy) String() string {
	switch kp {
	case KeepOldest:
		return "oldest"
	case KeepNewest:
		return "newest"
	case KeepPath:
		return "path"
	default:
		return "unknown"
	}
}

// ParseKeeperPolicy resolves a policy name from configuration
func ParseKeeperPolicy(name string) (KeeperPolicy, error) {
	switch strings.ToLower(name) {
	case "", "oldest":
		return KeepOldest, nil
	case "newest":
		return KeepNewest, nil
	case "path":
		return KeepPath, nil
	default:
		return KeepOldest, fmt.Errorf("unsupported keeper policy: %s (supported: oldest, newest, path)", name)
	}
}

// DuplicateGroup represents a set of files with identical size and content
// digest. Exactly one member is the keeper; the rest are removable. Groups
// pass sequentially through the pipeline; no two stages mutate one at the
// same time.
type DuplicateGroup struct {
	ID        int           `json:"id"`
	Size      int64         `json:"size"`
	Digest    string        `json:"digest"` // hex of the full-content digest
	HashType  uint16        `json:"-"`
	Keeper    *FileRecord   `json:"keeper"`
	Removable []*FileRecord `json:"removable"`
}

// Members returns keeper plus removables in group order
func (g *DuplicateGroup) Members() []*FileRecord {
	members := make([]*FileRecord, 0, len(g.Removable)+1)
	members = append(members, g.Keeper)
	members = append(members, g.Removable...)
	return members
}

// Count returns the number of members in the group
func (g *DuplicateGroup) Count() int {
	return len(g.Removable) + 1
}

// Reclaimable returns the bytes freed by deleting every removable member
func (g *DuplicateGroup) Reclaimable() int64 {
	return g.Size * int64(len(g.Removable))
}

// groupKey identifies one potential duplicate set. Keying on size as well
// as digest means a (vanishingly unlikely) cross-size digest collision can
// never merge files of different lengths.
type groupKey struct {
	size   int64
	digest string
}

// duplicateGrouper accumulates hash results commutatively; arrival order
// across workers never affects the outcome. A single collector goroutine
// owns the map, so no locking is needed.
type duplicateGrouper struct {
	policy   KeeperPolicy
	hashType uint16
	byDigest map[groupKey][]*FileRecord
}

func newDuplicateGrouper(policy KeeperPolicy, hashType uint16) *duplicateGrouper {
	return &duplicateGrouper{
		policy:   policy,
		hashType: hashType,
		byDigest: make(map[groupKey][]*FileRecord),
	}
}

// Add accumulates one full-content hash result
func (dg *duplicateGrouper) Add(result *HashResult) {
	key := groupKey{size: result.Record.Size, digest: result.DigestString()}
	dg.byDigest[key] = append(dg.byDigest[key], result.Record)
}

// Groups assembles the final duplicate groups: only keys with >=2 members
// qualify, each gets a keeper per the configured policy, and groups are
// ordered by keeper path with ids assigned from 1. The same input always
// produces the same output.
func (dg *duplicateGrouper) Groups() []*DuplicateGroup {
	var groups []*DuplicateGroup

	for key, records := range dg.byDigest {
		if len(records) < 2 {
			continue
		}

		keeper := selectKeeper(records, dg.policy)
		removable := make([]*FileRecord, 0, len(records)-1)
		for _, r := range records {
			if r != keeper {
				removable = append(removable, r)
			}
		}
		sort.Slice(removable, func(i, j int) bool {
			return removable[i].Path < removable[j].Path
		})

		groups = append(groups, &DuplicateGroup{
			Size:      key.size,
			Digest:    key.digest,
			HashType:  dg.hashType,
			Keeper:    keeper,
			Removable: removable,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Keeper.Path < groups[j].Keeper.Path
	})
	for i, g := range groups {
		g.ID = i + 1
	}

	return groups
}

// selectKeeper picks the member to retain. Deterministic for identical
// input regardless of slice order.
func selectKeeper(records []*FileRecord, policy KeeperPolicy) *FileRecord {
	keeper := records[0]
	for _, r := range records[1:] {
		if keeperPreferred(r, keeper, policy) {
			keeper = r
		}
	}
	return keeper
}

// keeperPreferred reports whether a should be kept over b under the policy
func keeperPreferred(a, b *FileRecord, policy KeeperPolicy) bool {
	switch policy {
	case KeepNewest:
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
	case KeepPath:
		// fall through to path comparison
	default: // KeepOldest
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.Before(b.ModTime)
		}
	}
	return a.Path < b.Path
}
