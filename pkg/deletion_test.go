package dupescan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanTree builds a tree with two duplicate groups of 3 and 2 members and
// returns a fresh scan result over it.
func scanTree(t *testing.T, dryRun bool) (string, *Scanner, *ScanResult) {
	t.Helper()
	tempDir := t.TempDir()
	writeTestFile(t, filepath.Join(tempDir, "g1_keep.txt"), "group one data", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "g1_dup1.txt"), "group one data", baseTime.Add(time.Hour))
	writeTestFile(t, filepath.Join(tempDir, "g1_dup2.txt"), "group one data", baseTime.Add(2*time.Hour))
	writeTestFile(t, filepath.Join(tempDir, "g2_keep.txt"), "second group bytes", baseTime)
	writeTestFile(t, filepath.Join(tempDir, "g2_dup1.txt"), "second group bytes", baseTime.Add(time.Hour))

	scanner := newTestScanner(t, tempDir, func(c *ScanConfig) {
		c.DryRun = dryRun
	})
	result, err := scanner.Scan(nil)
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)
	return tempDir, scanner, result
}

func TestDelete_ConfirmedGroupRemovesOnlyRemovables(t *testing.T) {
	tempDir, scanner, result := scanTree(t, false)

	// Confirm only the 3-member group, skip the other
	var previewed []int
	decide := func(g *DuplicateGroup) Decision {
		if g.Count() == 3 {
			return DecisionConfirm
		}
		return DecisionSkip
	}
	preview := func(g *DuplicateGroup) {
		previewed = append(previewed, g.ID)
	}

	outcomes := scanner.Delete(result.Groups, preview, decide)
	require.Len(t, outcomes, 2)

	// Every group was previewed before any decision
	assert.Equal(t, []int{1, 2}, previewed)

	for _, outcome := range outcomes {
		if outcome.Group.Count() == 3 {
			assert.Equal(t, GroupDeleted, outcome.State)
			assert.Len(t, outcome.Files, 2)
			for _, f := range outcome.Files {
				assert.True(t, f.Deleted, "removable %s should be deleted", f.Path)
				_, err := os.Stat(f.Path)
				assert.True(t, os.IsNotExist(err), "%s should be gone", f.Path)
			}
		} else {
			assert.Equal(t, GroupSkipped, outcome.State)
			assert.Empty(t, outcome.Files)
		}
	}

	// Keepers and the skipped group's members all survive
	for _, name := range []string{"g1_keep.txt", "g2_keep.txt", "g2_dup1.txt"} {
		_, err := os.Stat(filepath.Join(tempDir, name))
		assert.NoError(t, err, "%s must be retained", name)
	}
}

func TestDelete_DryRunMatchesRealDecisions(t *testing.T) {
	_, dryScanner, dryResult := scanTree(t, true)
	dryOutcomes := dryScanner.Delete(dryResult.Groups, nil, ConfirmAll)

	_, realScanner, realResult := scanTree(t, false)
	realOutcomes := realScanner.Delete(realResult.Groups, nil, ConfirmAll)

	require.Len(t, dryOutcomes, len(realOutcomes))

	// Same groups, same keepers, same removable lists (paths compared
	// relative to each run's own root).
	for i := range dryOutcomes {
		dryGroup, realGroup := dryOutcomes[i].Group, realOutcomes[i].Group
		assert.Equal(t, dryGroup.Digest, realGroup.Digest)
		assert.Equal(t, filepath.Base(dryGroup.Keeper.Path), filepath.Base(realGroup.Keeper.Path))
		require.Len(t, dryGroup.Removable, len(realGroup.Removable))
		for j := range dryGroup.Removable {
			assert.Equal(t,
				filepath.Base(dryGroup.Removable[j].Path),
				filepath.Base(realGroup.Removable[j].Path))
		}

		// Dry-run stops at Confirmed and removes nothing
		assert.Equal(t, GroupConfirmed, dryOutcomes[i].State)
		assert.Equal(t, GroupDeleted, realOutcomes[i].State)
		for _, f := range dryOutcomes[i].Files {
			assert.False(t, f.Deleted)
			_, err := os.Stat(f.Path)
			assert.NoError(t, err, "dry run must not remove %s", f.Path)
		}
	}
}

func TestDelete_AbortLeavesLaterGroupsPending(t *testing.T) {
	_, scanner, result := scanTree(t, false)

	calls := 0
	decide := func(*DuplicateGroup) Decision {
		calls++
		return DecisionAbort
	}

	outcomes := scanner.Delete(result.Groups, nil, decide)
	require.Len(t, outcomes, 2)
	assert.Equal(t, 1, calls, "abort must stop further decisions")
	assert.Equal(t, GroupSkipped, outcomes[0].State)
	assert.Equal(t, GroupPending, outcomes[1].State)

	// Nothing was removed
	for _, g := range result.Groups {
		for _, m := range g.Members() {
			_, err := os.Stat(m.Path)
			assert.NoError(t, err)
		}
	}
}

func TestDelete_PerFileFailures(t *testing.T) {
	tempDir := t.TempDir()
	keep := filepath.Join(tempDir, "keep.txt")
	alive := filepath.Join(tempDir, "alive.txt")
	writeTestFile(t, keep, "deletable data", baseTime)
	writeTestFile(t, alive, "deletable data", baseTime.Add(time.Hour))

	scanner := newTestScanner(t, tempDir, nil)

	// One removable already vanished before the protocol ran
	group := &DuplicateGroup{
		ID:     1,
		Size:   14,
		Digest: "feed",
		Keeper: makeRecord(keep, 14, baseTime),
		Removable: []*FileRecord{
			makeRecord(filepath.Join(tempDir, "already_gone.txt"), 14, baseTime),
			makeRecord(alive, 14, baseTime),
		},
	}

	outcomes := scanner.Delete([]*DuplicateGroup{group}, nil, ConfirmAll)
	require.Len(t, outcomes, 1)

	outcome := outcomes[0]
	assert.Equal(t, GroupDeleteFailed, outcome.State)
	require.Len(t, outcome.Files, 2)

	// The missing file failed, the present one was still removed
	assert.False(t, outcome.Files[0].Deleted)
	assert.Error(t, outcome.Files[0].Err)
	assert.True(t, outcome.Files[1].Deleted)
	_, err := os.Stat(alive)
	assert.True(t, os.IsNotExist(err))

	// Failure recorded as a deletion warning
	warnings := scanner.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, DeletionFailure, warnings[0].Kind)
	assert.Contains(t, warnings[0].Path, "already_gone.txt")

	assert.Equal(t, int64(14), outcome.BytesFreed())
}

func TestApplyDeletion_SummaryAccounting(t *testing.T) {
	_, scanner, result := scanTree(t, false)

	outcomes := scanner.Delete(result.Groups, nil, ConfirmAll)
	result.ApplyDeletion(outcomes)

	// 2 + 1 removables, each group's size times its removed count
	expectedFreed := result.Groups[0].Reclaimable() + result.Groups[1].Reclaimable()
	assert.Equal(t, expectedFreed, result.Summary.BytesFreed)
	assert.Equal(t, 0, result.Summary.DeletionFailures)
}

func TestGroupState_String(t *testing.T) {
	states := map[GroupState]string{
		GroupPending:      "pending",
		GroupPreviewed:    "previewed",
		GroupConfirmed:    "confirmed",
		GroupSkipped:      "skipped",
		GroupDeleted:      "deleted",
		GroupDeleteFailed: "delete-failed",
	}
	for state, expected := range states {
		if !strings.EqualFold(state.String(), expected) {
			t.Errorf("GroupState(%d): expected %q, got %q", state, expected, state.String())
		}
	}
}
