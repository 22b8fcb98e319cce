package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mordilloSan/go-logger/logger"
	"github.com/urfave/cli/v2"

	dupescan "github.com/mattkeenan/dupescan/pkg"
)

func newApp() *cli.App {
	return &cli.App{
		Name:      "dupescan",
		Usage:     "find duplicate files in a directory tree and optionally remove them",
		ArgsUsage: "[PATH]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "report destination (\"-\" for stdout)",
				Value:   dupescan.DefaultReportName,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "report format: csv, json, text",
			},
			&cli.BoolFlag{
				Name:    "delete",
				Aliases: []string{"d"},
				Usage:   "enable the deletion phase",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "preview deletion decisions without removing anything",
			},
			&cli.StringFlag{
				Name:  "hash-algo",
				Usage: "digest algorithm: fast, strong, md5, sha256, sha512",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "hash worker count (default: available parallelism)",
			},
			&cli.BoolFlag{
				Name:  "no-prefilter",
				Usage: "disable the prefix digest pre-filter",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "exclude pattern (regexp against root-relative path), repeatable",
			},
			&cli.StringFlag{
				Name:  "min-size",
				Usage: "ignore files smaller than SIZE (e.g. 4K)",
			},
			&cli.StringFlag{
				Name:  "keep",
				Usage: "keeper policy: oldest, newest, path",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "confirm every group without prompting",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file location",
			},
			&cli.IntFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbosity level (0-3)",
			},
			&cli.StringFlag{
				Name:  "debug",
				Usage: "comma-separated debug flags (e.g. walk,pool,hash)",
			},
		},
		Action: run,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "dupescan: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	config, verbose, debug, err := buildScanConfig(ctx)
	if err != nil {
		return err
	}
	initLogging(verbose)
	dupescan.SetVerboseLevel(verbose)
	dupescan.SetDebugFlags(debug)

	// No PATH on the command line starts the interactive session, matching
	// how the tool behaves when run bare.
	if config.Root == "" {
		if err := promptScanSetup(os.Stdin, os.Stdout, config); err != nil {
			return err
		}
	}

	scanner, err := dupescan.NewScanner(*config)
	if err != nil {
		return err
	}

	shutdownChan := setupSignalHandler()

	reporter := newProgressReporter(scanner.Progress, os.Stderr, progressInterval)
	reporter.Start()
	result, err := scanner.Scan(shutdownChan)
	reporter.Stop()
	if err != nil {
		if errors.Is(err, dupescan.ErrScanCancelled) {
			return fmt.Errorf("scan cancelled, no report written")
		}
		return err
	}

	if err := writeReport(scanner.Config(), result); err != nil {
		return err
	}

	if scanner.Config().Delete || scanner.Config().DryRun {
		decide := chooseDecider(ctx, scanner.Config())
		outcomes := scanner.Delete(result.Groups, previewGroup, decide)
		result.ApplyDeletion(outcomes)
		printDeletionOutcomes(outcomes, scanner.Config().DryRun)
	}

	printSummary(scanner.Config(), result)
	return nil
}

// initLogging wires the verbosity flag into the structured logger
func initLogging(verbose int) {
	var levels []logger.Level
	if verbose >= 2 {
		levels = logger.AllLevels() // includes DEBUG
	} else if verbose >= 1 {
		levels = []logger.Level{logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel}
	} else {
		levels = []logger.Level{logger.WarnLevel, logger.ErrorLevel}
	}

	logger.Init(logger.Config{
		Levels: levels,
	})
}

// buildScanConfig layers the config file under the command-line flags and
// resolves the verbosity settings the same way. Flags win whenever both
// are present.
func buildScanConfig(ctx *cli.Context) (*dupescan.ScanConfig, int, string, error) {
	configPath := ctx.String("config")
	if configPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".dupescan.ini")
		}
	}

	fileConfig, err := dupescan.LoadConfig(configPath)
	if err != nil {
		return nil, 0, "", err
	}
	config := fileConfig.ToScanConfig()

	verboseConfig := fileConfig.GetVerboseConfig()
	verbose := verboseConfig.Level
	if ctx.IsSet("verbose") {
		verbose = ctx.Int("verbose")
	}
	if err := dupescan.ValidateVerboseLevel(verbose); err != nil {
		return nil, 0, "", err
	}
	debug := verboseConfig.Debug
	if ctx.IsSet("debug") {
		debug = ctx.String("debug")
	}

	config.Root = ctx.Args().First()
	if ctx.IsSet("output") || config.ReportDestination == "" {
		config.ReportDestination = ctx.String("output")
	}
	if ctx.IsSet("format") {
		config.ReportFormat = ctx.String("format")
	}
	if err := dupescan.ValidateReportFormat(config.ReportFormat); err != nil {
		return nil, 0, "", err
	}
	config.Delete = ctx.Bool("delete")
	config.DryRun = ctx.Bool("dry-run")
	if ctx.IsSet("hash-algo") {
		config.HashAlgorithm = ctx.String("hash-algo")
	}
	if ctx.IsSet("workers") {
		config.Workers = ctx.Int("workers")
	}
	if err := dupescan.ValidateWorkers(config.Workers); err != nil {
		return nil, 0, "", err
	}
	if ctx.Bool("no-prefilter") {
		config.Prefilter = false
	}
	config.ExcludePatterns = append(config.ExcludePatterns, ctx.StringSlice("exclude")...)
	if ctx.IsSet("min-size") {
		minSize, err := dupescan.ParseHumanSize(ctx.String("min-size"))
		if err != nil {
			return nil, 0, "", fmt.Errorf("invalid --min-size: %w", err)
		}
		config.MinSize = int64(minSize)
	}
	if ctx.IsSet("keep") {
		config.KeepPolicy = ctx.String("keep")
	}

	return &config, verbose, debug, nil
}

// chooseDecider picks the per-group decision function. Dry-run and --yes
// confirm every group; a delete without either prompts per group. All
// three drive the identical state machine.
func chooseDecider(ctx *cli.Context, config dupescan.ScanConfig) dupescan.DecideFunc {
	if config.DryRun || ctx.Bool("yes") {
		return dupescan.ConfirmAll
	}
	return newPromptDecider(os.Stdin, os.Stdout)
}

// writeReport serializes the groups to the configured destination
func writeReport(config dupescan.ScanConfig, result *dupescan.ScanResult) error {
	emitter, err := dupescan.NewReportEmitter(config.ReportFormat)
	if err != nil {
		return err
	}

	w, closer, err := dupescan.OpenReportDestination(config.ReportDestination)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	if err := emitter.Emit(w, result.Groups); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if config.ReportDestination != "-" {
		fmt.Printf("report written to %s\n", config.ReportDestination)
	}
	return nil
}

// printSummary reports the run accounting regardless of outcome mix
func printSummary(config dupescan.ScanConfig, result *dupescan.ScanResult) {
	s := result.Summary

	fmt.Printf("\nscanned %d files (%s) in %s\n",
		s.FilesScanned, dupescan.FormatBytes(s.BytesScanned), s.Elapsed.Round(time.Millisecond))
	fmt.Printf("duplicate groups: %d, reclaimable: %s\n",
		s.GroupsFound, dupescan.FormatBytes(s.BytesReclaimable))
	if s.BytesFreed > 0 {
		fmt.Printf("freed: %s\n", dupescan.FormatBytes(s.BytesFreed))
	}
	if s.Warnings > 0 || s.DeletionFailures > 0 {
		fmt.Printf("warnings: %d, deletion failures: %d\n", s.Warnings, s.DeletionFailures)
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "  %s\n", w)
		}
	}
	if free, err := dupescan.FreeSpace(config.Root); err == nil {
		fmt.Printf("free space on volume: %s\n", dupescan.FormatBytes(free))
	}
}
