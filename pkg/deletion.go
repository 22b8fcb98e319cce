package dupescan

import (
	"fmt"
	"os"
)

// GroupState tracks a duplicate group through the deletion protocol
type GroupState int

const (
	GroupPending GroupState = iota
	GroupPreviewed
	GroupConfirmed
	GroupSkipped
	GroupDeleted
	GroupDeleteFailed
)

// String returns the group state name
func (gs GroupState) String() string {
	switch gs {
	case GroupPending:
		return "pending"
	case GroupPreviewed:
		return "previewed"
	case GroupConfirmed:
		return "confirmed"
	case GroupSkipped:
		return "skipped"
	case GroupDeleted:
		return "deleted"
	case GroupDeleteFailed:
		return "delete-failed"
	default:
		return "unknown"
	}
}

// Decision is the answer a decider gives for one previewed group
type Decision int

const (
	DecisionSkip    Decision = iota // leave this group's files alone
	DecisionConfirm                 // delete every removable member of this group
	DecisionAbort                   // stop the protocol; later groups stay pending
)

// DecideFunc is called synchronously once per group, after preview. The
// interactive prompt, --yes, and dry-run all plug in here; the state
// machine is identical for each.
type DecideFunc func(group *DuplicateGroup) Decision

// PreviewFunc is called before the decision for every group, listing the
// keeper and removable members. Preview always happens, including dry-run.
type PreviewFunc func(group *DuplicateGroup)

// ConfirmAll is a decider that approves every group without prompting
func ConfirmAll(*DuplicateGroup) Decision { return DecisionConfirm }

// SkipAll is a decider that declines every group
func SkipAll(*DuplicateGroup) Decision { return DecisionSkip }

// FileResult records the outcome for one removable member. Deletion is
// never all-or-nothing within a group: each file succeeds or fails on its
// own.
type FileResult struct {
	Path    string
	Deleted bool
	Err     error
}

// GroupResult records the final state of one group after the protocol ran
type GroupResult struct {
	Group *DuplicateGroup
	State GroupState
	Files []FileResult
}

// BytesFreed sums the sizes of the members actually removed
func (gr *GroupResult) BytesFreed() int64 {
	var n int64
	for _, f := range gr.Files {
		if f.Deleted {
			n += gr.Group.Size
		}
	}
	return n
}

// deletionCoordinator walks every duplicate group through
// Pending -> Previewed -> {Confirmed, Skipped} -> {Deleted, DeleteFailed}.
// It runs strictly after hashing and grouping complete, so removing a file
// here can never race a hash of the same content elsewhere.
type deletionCoordinator struct {
	preview  PreviewFunc
	decide   DecideFunc
	dryRun   bool
	warnings *warningCollector
}

func newDeletionCoordinator(preview PreviewFunc, decide DecideFunc, dryRun bool, warnings *warningCollector) *deletionCoordinator {
	if preview == nil {
		preview = func(*DuplicateGroup) {}
	}
	if decide == nil {
		decide = SkipAll
	}
	return &deletionCoordinator{
		preview:  preview,
		decide:   decide,
		dryRun:   dryRun,
		warnings: warnings,
	}
}

// Run executes the protocol over the groups in order. Dry-run performs
// every transition through Confirmed but never unlinks, so its decision
// output matches a real run on the same tree exactly.
func (dc *deletionCoordinator) Run(groups []*DuplicateGroup) []GroupResult {
	defer VerboseEnter()()

	results := make([]GroupResult, 0, len(groups))
	aborted := false

	for _, group := range groups {
		if aborted {
			results = append(results, GroupResult{Group: group, State: GroupPending})
			continue
		}

		dc.preview(group)

		switch dc.decide(group) {
		case DecisionAbort:
			aborted = true
			results = append(results, GroupResult{Group: group, State: GroupSkipped})
			continue
		case DecisionSkip:
			results = append(results, GroupResult{Group: group, State: GroupSkipped})
			continue
		}

		results = append(results, dc.deleteGroup(group))
	}

	return results
}

// deleteGroup removes every removable member of a confirmed group. One
// failed unlink marks the group DeleteFailed but the remaining files are
// still attempted.
func (dc *deletionCoordinator) deleteGroup(group *DuplicateGroup) GroupResult {
	result := GroupResult{
		Group: group,
		State: GroupDeleted,
		Files: make([]FileResult, 0, len(group.Removable)),
	}

	for _, r := range group.Removable {
		if dc.dryRun {
			result.Files = append(result.Files, FileResult{Path: r.Path})
			continue
		}

		if IsDebugEnabled("delete") {
			VerboseLog(3, "delete: removing %s (group %d)", r.Path, group.ID)
		}

		if err := os.Remove(r.Path); err != nil {
			result.State = GroupDeleteFailed
			result.Files = append(result.Files, FileResult{
				Path: r.Path,
				Err:  fmt.Errorf("failed to delete %s: %w", r.Path, err),
			})
			dc.warnings.Add(DeletionFailure, r.Path, err)
			continue
		}

		result.Files = append(result.Files, FileResult{Path: r.Path, Deleted: true})
	}

	if dc.dryRun {
		// Decisions ran; nothing was removed.
		result.State = GroupConfirmed
	}

	return result
}
