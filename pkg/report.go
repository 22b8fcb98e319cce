package dupescan

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// ReportEmitter serializes finalized duplicate groups. Emitters only ever
// see fully-populated groups in their final order; nothing pending or
// partially hashed reaches this interface.
type ReportEmitter interface {
	Emit(w io.Writer, groups []*DuplicateGroup) error
}

// NewReportEmitter returns the emitter for a format name
func NewReportEmitter(format string) (ReportEmitter, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return &csvEmitter{}, nil
	case "json":
		return &jsonEmitter{}, nil
	case "text":
		return &textEmitter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s (supported: csv, json, text)", format)
	}
}

// OpenReportDestination resolves a destination string to a writer. "-"
// means stdout; anything else is created as a file. The caller owns the
// returned closer.
func OpenReportDestination(destination string) (io.Writer, io.Closer, error) {
	if destination == "-" {
		return os.Stdout, nil, nil
	}

	f, err := os.Create(destination)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file %s: %w", destination, err)
	}
	return f, f, nil
}

// csvEmitter writes one row per removable member
type csvEmitter struct{}

func (e *csvEmitter) Emit(w io.Writer, groups []*DuplicateGroup) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"group", "digest", "keeper", "duplicate", "size"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, g := range groups {
		for _, r := range g.Removable {
			row := []string{
				strconv.Itoa(g.ID),
				g.Digest,
				g.Keeper.Path,
				r.Path,
				strconv.FormatInt(g.Size, 10),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// jsonReportGroup is the JSON shape for one duplicate group
type jsonReportGroup struct {
	ID          int      `json:"id"`
	Size        int64    `json:"size"`
	Digest      string   `json:"digest"`
	Algorithm   string   `json:"algorithm"`
	Keeper      string   `json:"keeper"`
	Files       []string `json:"files"`
	Reclaimable int64    `json:"reclaimable"`
}

type jsonEmitter struct{}

func (e *jsonEmitter) Emit(w io.Writer, groups []*DuplicateGroup) error {
	out := make([]jsonReportGroup, 0, len(groups))
	for _, g := range groups {
		files := make([]string, 0, g.Count())
		for _, m := range g.Members() {
			files = append(files, m.Path)
		}
		out = append(out, jsonReportGroup{
			ID:          g.ID,
			Size:        g.Size,
			Digest:      g.Digest,
			Algorithm:   HashTypeName(g.HashType),
			Keeper:      g.Keeper.Path,
			Files:       files,
			Reclaimable: g.Reclaimable(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode json report: %w", err)
	}
	return nil
}

// textEmitter writes a colourized human listing
type textEmitter struct{}

func (e *textEmitter) Emit(w io.Writer, groups []*DuplicateGroup) error {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	var reclaimable int64
	for _, g := range groups {
		if _, err := bold.Fprintf(w, "group %d: %d files @ %s each (%s)\n",
			g.ID, g.Count(), FormatBytes(g.Size), g.Digest); err != nil {
			return fmt.Errorf("failed to write text report: %w", err)
		}
		green.Fprintf(w, "  keep   %s\n", g.Keeper.Path)
		for _, r := range g.Removable {
			red.Fprintf(w, "  remove %s\n", r.Path)
		}
		reclaimable += g.Reclaimable()
	}

	if len(groups) == 0 {
		fmt.Fprintln(w, "no duplicate files found")
		return nil
	}

	fmt.Fprintf(w, "\n%d duplicate groups, %s reclaimable\n", len(groups), FormatBytes(reclaimable))
	return nil
}
