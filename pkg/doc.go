// Package dupescan finds duplicate files in a directory tree by content
// and optionally removes the redundant copies.
//
// Detection runs in two passes: files are first grouped by exact byte
// size, then only files that share a size are content-hashed across a
// worker pool. Files whose leading bytes already differ are pruned by an
// optional prefix digest before the full hash; the full digest stays
// authoritative for grouping.
//
// # Core API
//
// The main entry point is Scanner, configured once per run:
//
//	scanner, err := dupescan.NewScanner(dupescan.ScanConfig{
//		Root: "/path/to/tree",
//	})
//	if err != nil {
//		return err
//	}
//	result, err := scanner.Scan(nil)
//
// Each DuplicateGroup in the result has a keeper (retained) and removable
// members. The deletion protocol previews every group and asks a decision
// function before removing anything:
//
//	outcomes := scanner.Delete(result.Groups, preview, dupescan.ConfirmAll)
//
// Dry-run mode (ScanConfig.DryRun) walks the identical protocol without
// unlinking, so its decisions are a reliable preview of a real run.
//
// # Configuration
//
// Enable debug output:
//
//	dupescan.SetDebugFlags("walk,pool,hash")
//	dupescan.SetVerboseLevel(2)
//
// An optional INI config file supplies defaults; see LoadConfig.
package dupescan
