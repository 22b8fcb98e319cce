package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	dupescan "github.com/mattkeenan/dupescan/pkg"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

// previewGroup lists a group's keeper and removable members. It runs for
// every group before its decision, in dry-run and real runs alike.
func previewGroup(group *dupescan.DuplicateGroup) {
	bold.Printf("\ngroup %d: %d files @ %s each\n",
		group.ID, group.Count(), dupescan.FormatBytes(group.Size))
	green.Printf("  keep   %s\n", group.Keeper.Path)
	for _, r := range group.Removable {
		red.Printf("  remove %s\n", r.Path)
	}
}

// newPromptDecider returns a decision function that asks once per group:
// y deletes the group's removable members, n skips the group, a aborts
// the rest of the protocol.
func newPromptDecider(r io.Reader, w io.Writer) dupescan.DecideFunc {
	reader := bufio.NewReader(r)

	return func(group *dupescan.DuplicateGroup) dupescan.Decision {
		for {
			fmt.Fprintf(w, "delete %d duplicates of group %d? [y/n/a] ",
				len(group.Removable), group.ID)

			line, err := reader.ReadString('\n')
			if err != nil {
				// EOF on stdin: stop asking, leave everything alone.
				return dupescan.DecisionAbort
			}

			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
				return dupescan.DecisionConfirm
			case "n", "no", "":
				return dupescan.DecisionSkip
			case "a", "abort":
				return dupescan.DecisionAbort
			default:
				fmt.Fprintln(w, "please answer y, n, or a")
			}
		}
	}
}

// printDeletionOutcomes reports what the protocol did with each group
func printDeletionOutcomes(outcomes []dupescan.GroupResult, dryRun bool) {
	for _, outcome := range outcomes {
		switch outcome.State {
		case dupescan.GroupConfirmed:
			if dryRun {
				for _, f := range outcome.Files {
					fmt.Printf("would delete %s\n", f.Path)
				}
			}
		case dupescan.GroupDeleted:
			green.Printf("group %d: deleted %d files\n",
				outcome.Group.ID, len(outcome.Files))
		case dupescan.GroupDeleteFailed:
			for _, f := range outcome.Files {
				if f.Err != nil {
					fmt.Fprintf(os.Stderr, "group %d: %v\n", outcome.Group.ID, f.Err)
				}
			}
		}
	}
}
