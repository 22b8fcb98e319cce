package main

import (
	"fmt"
	"io"
	"time"

	dupescan "github.com/mattkeenan/dupescan/pkg"
)

// progressInterval is how often the live counters are redrawn
const progressInterval = 500 * time.Millisecond

// progressReporter redraws one live counter line while a scan runs. It
// writes to stderr so a report on stdout stays clean.
type progressReporter struct {
	snapshot func() dupescan.ProgressSnapshot
	w        io.Writer
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

func newProgressReporter(snapshot func() dupescan.ProgressSnapshot, w io.Writer, interval time.Duration) *progressReporter {
	return &progressReporter{
		snapshot: snapshot,
		w:        w,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins periodic redraws. Stop must be called exactly once.
func (pr *progressReporter) Start() {
	go func() {
		defer close(pr.stopped)

		ticker := time.NewTicker(pr.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pr.draw()
			case <-pr.done:
				return
			}
		}
	}()
}

// Stop ends the redraws, waits for the reporting goroutine, and leaves
// the final counts on their own line.
func (pr *progressReporter) Stop() {
	close(pr.done)
	<-pr.stopped
	pr.draw()
	fmt.Fprintln(pr.w)
}

func (pr *progressReporter) draw() {
	fmt.Fprintf(pr.w, "\r%s", formatProgress(pr.snapshot()))
}

// formatProgress renders one counter line from a snapshot
func formatProgress(s dupescan.ProgressSnapshot) string {
	line := fmt.Sprintf("scanned %d files, %d candidates, hashed %d (%s)",
		s.FilesDiscovered, s.CandidatesFound, s.FullHashed,
		dupescan.FormatBytes(s.BytesHashed))
	if s.Warnings > 0 {
		line += fmt.Sprintf(", %d warnings", s.Warnings)
	}
	return line
}
