package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	dupescan "github.com/mattkeenan/dupescan/pkg"
)

// promptScanSetup fills in the configuration interactively when no PATH
// was given on the command line: scan root, whether to delete, and
// whether that deletion is a dry run.
func promptScanSetup(r io.Reader, w io.Writer, config *dupescan.ScanConfig) error {
	reader := bufio.NewReader(r)

	fmt.Fprint(w, "directory to scan: ")
	root, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read scan directory: %w", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return fmt.Errorf("no scan directory given")
	}
	config.Root = root

	del, err := promptYesNo(reader, w, "delete duplicates after the scan? [y/N] ")
	if err != nil {
		return err
	}
	config.Delete = del

	if config.Delete {
		dryRun, err := promptYesNo(reader, w, "dry run (preview only, remove nothing)? [y/N] ")
		if err != nil {
			return err
		}
		config.DryRun = dryRun
	}

	return nil
}

func promptYesNo(reader *bufio.Reader, w io.Writer, question string) (bool, error) {
	fmt.Fprint(w, question)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
