package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/finddupes/internal/config"
	"github.com/bamsammich/finddupes/internal/engine"
	"github.com/bamsammich/finddupes/internal/event"
	"github.com/bamsammich/finddupes/internal/filter"
	"github.com/bamsammich/finddupes/internal/stats"
	"github.com/bamsammich/finddupes/internal/ui"
)

var version = "dev"

var errInteractiveDelete = errors.New("--delete needs --noprompt; interactive deletion is not supported")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "string" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

// recurseFromFlag backs -R/--recurse:. It records how many paths had been
// parsed when the flag appeared; only paths after that point are recursed.
type recurseFromFlag struct {
	flags *pflag.FlagSet
	from  int // -1 until set
}

func (f *recurseFromFlag) String() string { return fmt.Sprint(f.from >= 0) }
func (*recurseFromFlag) Type() string     { return "bool" }

func (f *recurseFromFlag) Set(string) error {
	if f.from < 0 {
		f.from = f.flags.NArg()
	}
	return nil
}

// buildRoots pairs each path with its recursion setting.
func buildRoots(paths []string, recurseAll bool, recurseFrom int) []engine.Root {
	roots := make([]engine.Root, len(paths))
	for i, p := range paths {
		roots[i] = engine.Root{
			Path:    p,
			Recurse: recurseAll || (recurseFrom >= 0 && i >= recurseFrom),
		}
	}
	return roots
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: main CLI entry point orchestrates all flag parsing and mode selection
func run(args []string, stdout, stderr io.Writer) int {
	var (
		recurse       bool
		symlinks      bool
		hardlinks     bool
		noEmpty       bool
		omitFirst     bool
		sameLine      bool
		showSize      bool
		unique        bool
		summarize     bool
		quiet         bool
		verbose       bool
		deleteFlag    bool
		noPrompt      bool
		dryRun        bool
		verifyFlag    bool
		showVersion   bool
		benchmarkFlag bool
		workers       int
		separator     string
		setSeparator  string
		filterFile    string
		minSizeStr    string
		maxSizeStr    string
		bwLimitStr    string
		logFile       string
	)

	chain := filter.NewChain()

	rootCmd := &cobra.Command{
		Use:   "finddupes [flags] PATH...",
		Short: "Find duplicate files by size, partial hash, then full hash",
		Long: `finddupes lists sets of identical files under the given paths.

Files are grouped by size first; only files that share a size have their
first 4 KiB hashed, and only files that still match have their full
content hashed. Hardlinks to one inode count as a single file unless -H
is given.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	recurseFrom := &recurseFromFlag{flags: rootCmd.Flags(), from: -1}

	rootCmd.RunE = func(cmd *cobra.Command, paths []string) error {
		if showVersion {
			fmt.Fprintf(stdout, "finddupes %s\n", version)
			return nil
		}
		if deleteFlag && !noPrompt {
			return errInteractiveDelete
		}

		// Load optional config file.
		cfg, err := config.Load()
		if err != nil {
			slog.Warn("failed to load config", "error", err)
		}
		applyConfigDefaults(cmd, cfg.Defaults, configTargets{
			recurse:      &recurse,
			symlinks:     &symlinks,
			hardlinks:    &hardlinks,
			noEmpty:      &noEmpty,
			verify:       &verifyFlag,
			workers:      &workers,
			separator:    &separator,
			setSeparator: &setSeparator,
			minSize:      &minSizeStr,
			maxSize:      &maxSizeStr,
			bwLimit:      &bwLimitStr,
		})
		for _, pattern := range cfg.Defaults.Exclude {
			if err := chain.AddExclude(pattern); err != nil {
				return fmt.Errorf("config exclude: %w", err)
			}
		}

		// Configure logging.
		logLevel := slog.LevelWarn
		if verbose {
			logLevel = slog.LevelDebug
		} else if quiet {
			logLevel = slog.LevelError
		}
		textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{
			Level: logLevel,
		})
		var logHandler slog.Handler = textHandler
		if logFile != "" {
			lf, lfErr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if lfErr != nil {
				return fmt.Errorf("open log file: %w", lfErr)
			}
			defer lf.Close()
			// Runs append to the log; run_id tells them apart.
			jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}).WithAttrs([]slog.Attr{slog.String("run_id", uuid.NewString())})
			logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
		}
		slog.SetDefault(slog.New(logHandler))

		sep, err := ui.Unescape(separator)
		if err != nil {
			return fmt.Errorf("invalid --separator: %w", err)
		}
		setSep, err := ui.Unescape(setSeparator)
		if err != nil {
			return fmt.Errorf("invalid --setseparator: %w", err)
		}

		var bwLimit int64
		if bwLimitStr != "" {
			bwLimit, err = filter.ParseSize(bwLimitStr)
			if err != nil {
				return fmt.Errorf("invalid --bwlimit: %w", err)
			}
		}

		// Load filter file if specified.
		if filterFile != "" {
			if err := chain.LoadFile(filterFile); err != nil {
				return fmt.Errorf("load filter file: %w", err)
			}
		}

		// Parse size filters.
		if minSizeStr != "" {
			n, err := filter.ParseSize(minSizeStr)
			if err != nil {
				return fmt.Errorf("invalid --min-size: %w", err)
			}
			chain.SetMinSize(n)
		}
		if maxSizeStr != "" {
			n, err := filter.ParseSize(maxSizeStr)
			if err != nil {
				return fmt.Errorf("invalid --max-size: %w", err)
			}
			chain.SetMaxSize(n)
		}

		// Default workers.
		workersExplicit := cmd.Flags().Changed("workers")
		if workers <= 0 {
			workers = min(runtime.NumCPU()*2, 32)
		}

		// Set up context with signal handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		roots := buildRoots(paths, recurse, recurseFrom.from)

		// Benchmark mode: measure read throughput and auto-tune workers.
		if benchmarkFlag {
			benchResult, benchErr := engine.RunBenchmark(ctx, engine.ScannerConfig{
				Roots:          roots,
				Filter:         chain,
				FollowSymlinks: symlinks,
			})
			if benchErr != nil {
				slog.Warn("benchmark failed", "error", benchErr)
			} else {
				fmt.Fprintln(stderr, engine.FormatBenchmark(benchResult))
				if !workersExplicit {
					workers = benchResult.SuggestedWorkers
				}
			}
		}

		collector := stats.NewCollector()
		events := make(chan event.Event, 256)

		// When --log is set, tee events through a logging goroutine
		// that writes structured records before forwarding to the presenter.
		presenterEvents := (<-chan event.Event)(events)
		if logFile != "" {
			presenterEvents = teeEvents(events)
		}

		isTTY := false
		if f, ok := stderr.(*os.File); ok {
			isTTY = ui.IsTTY(f.Fd())
		}
		presenter := ui.NewPresenter(ui.Config{
			Writer:    stdout,
			ErrWriter: stderr,
			Stats:     collector,
			IsTTY:     isTTY,
			Quiet:     quiet,
			Verbose:   verbose,
		})

		engineCfg := engine.Config{
			Roots:             roots,
			Workers:           workers,
			BWLimit:           bwLimit,
			FollowSymlinks:    symlinks,
			ConsiderHardlinks: hardlinks,
			ExcludeEmpty:      noEmpty,
			Unique:            unique,
			Verify:            verifyFlag,
			Events:            events,
			Stats:             collector,
		}
		// Only set filter if it has rules/size constraints.
		if !chain.Empty() {
			engineCfg.Filter = chain
		}

		slog.Debug("starting search",
			"paths", paths,
			"workers", workers,
			"recurse", recurse,
			"symlinks", symlinks,
			"hardlinks", hardlinks,
		)

		var presenterErr error
		var presenterWg sync.WaitGroup
		presenterWg.Add(1)
		go func() {
			defer presenterWg.Done()
			presenterErr = presenter.Run(presenterEvents)
		}()

		result := engine.Run(ctx, engineCfg)

		var deleteErr error
		if deleteFlag && result.Err == nil {
			_, deleteErr = engine.DeleteDuplicates(ctx, engine.DeleteConfig{
				Groups: result.Groups,
				DryRun: dryRun,
				Events: events,
			})
		}

		stop()
		close(events)
		presenterWg.Wait()
		if presenterErr != nil {
			fmt.Fprintf(stderr, "presenter: %v\n", presenterErr)
		}

		if result.Err != nil {
			slog.Error("search failed", "error", result.Err)
			return &exitError{code: 2}
		}

		if !deleteFlag {
			emitter := ui.NewEmitter(stdout, ui.EmitConfig{
				Separator:    sep,
				SetSeparator: setSep,
				OmitFirst:    omitFirst,
				SameLine:     sameLine,
				ShowSize:     showSize,
				Summarize:    summarize,
			})
			if err := emitter.Write(result.Groups); err != nil {
				slog.Error("write results", "error", err)
				return &exitError{code: 2}
			}
		}

		if verbose {
			fmt.Fprintln(stderr, presenter.Summary())
		}

		if deleteErr != nil {
			slog.Error("delete incomplete", "error", deleteErr)
			return &exitError{code: 1}
		}
		if result.Stats.FilesFailed > 0 || result.Stats.FilesDropped > 0 {
			return &exitError{code: 1} // partial failure
		}
		return nil
	}

	// Version flag handled in RunE, but also register the flag.
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	rootCmd.Flags().
		BoolVarP(&recurse, "recurse", "r", false, "for every directory given follow subdirectories encountered within")
	rootCmd.Flags().
		VarP(recurseFrom, "recurse:", "R", "for each directory given after this option follow subdirectories encountered within")
	rootCmd.Flags().BoolVarP(&symlinks, "symlinks", "s", false, "follow symlinks")
	rootCmd.Flags().
		BoolVarP(&hardlinks, "hardlinks", "H", false, "treat files that share an inode as duplicates of each other")
	rootCmd.Flags().BoolVarP(&noEmpty, "noempty", "n", false, "exclude zero-length files from consideration")
	rootCmd.Flags().BoolVarP(&omitFirst, "omitfirst", "f", false, "omit the first file in each set of matches")
	rootCmd.Flags().BoolVarP(&sameLine, "sameline", "1", false, "list each set of matches on a single line")
	rootCmd.Flags().BoolVarP(&showSize, "size", "S", false, "show size of duplicate files")
	rootCmd.Flags().BoolVarP(&unique, "unique", "u", false, "list only files that don't have duplicates")
	rootCmd.Flags().BoolVarP(&summarize, "summarize", "m", false, "summarize duplicate information")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide progress indicator")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().
		BoolVarP(&deleteFlag, "delete", "d", false, "preserve the first file in each set and delete the rest (needs --noprompt)")
	rootCmd.Flags().
		BoolVarP(&noPrompt, "noprompt", "N", false, "together with --delete, delete without prompting")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "with --delete, list what would be deleted")
	rootCmd.Flags().
		StringVarP(&separator, "separator", "p", `\n`, "separate files with sep string (C escapes allowed)")
	rootCmd.Flags().
		StringVarP(&setSeparator, "setseparator", "P", `\n\n`, "separate sets with sep string (C escapes allowed)")
	rootCmd.Flags().BoolVar(&verifyFlag, "verify", false, "byte-compare every set before reporting it")
	rootCmd.Flags().
		IntVarP(&workers, "workers", "w", 0, "number of hashing workers (default: min(NumCPU*2, 32))")
	rootCmd.Flags().
		StringVar(&bwLimitStr, "bwlimit", "", "cap total read throughput (e.g. 100M, 1G)")
	rootCmd.Flags().
		BoolVar(&benchmarkFlag, "benchmark", false, "measure read throughput first and auto-tune workers")
	rootCmd.Flags().StringVar(&logFile, "log", "", "append structured JSON log to FILE")

	// Filter flags: custom pflag.Value to preserve CLI ordering.
	rootCmd.Flags().
		Var(&filterFlag{chain: chain, include: false}, "exclude", "exclude files matching PATTERN (repeatable)")
	rootCmd.Flags().
		Var(&filterFlag{chain: chain, include: true}, "include", "include files matching PATTERN (repeatable)")
	rootCmd.Flags().StringVar(&filterFile, "filter", "", "read filter rules from FILE")
	rootCmd.Flags().
		StringVar(&minSizeStr, "min-size", "", "skip files smaller than SIZE (e.g. 1M, 100K)")
	rootCmd.Flags().
		StringVar(&maxSizeStr, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")

	rootCmd.Flags().Lookup("recurse:").NoOptDefVal = "true"

	rootCmd.AddCommand(newDocsCmd())

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

// teeEvents logs every event at Info before forwarding it.
func teeEvents(events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, 256)
	go func() {
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int64("size", ev.Size),
			}
			if ev.Stage != "" {
				attrs = append(attrs, slog.String("stage", ev.Stage))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelInfo, "finddupes.event", attrs...)
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

// configTargets names the flag variables a config file may default.
type configTargets struct {
	recurse, symlinks, hardlinks, noEmpty, verify *bool
	workers                                      *int
	separator, setSeparator                      *string
	minSize, maxSize, bwLimit                    *string
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, t configTargets) {
	setBool := func(name string, dst, src *bool) {
		if !cmd.Flags().Changed(name) && src != nil {
			*dst = *src
		}
	}
	setString := func(name string, dst, src *string) {
		if !cmd.Flags().Changed(name) && src != nil {
			*dst = *src
		}
	}

	setBool("recurse", t.recurse, defaults.Recurse)
	setBool("symlinks", t.symlinks, defaults.Symlinks)
	setBool("hardlinks", t.hardlinks, defaults.Hardlinks)
	setBool("noempty", t.noEmpty, defaults.NoEmpty)
	setBool("verify", t.verify, defaults.Verify)
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		*t.workers = *defaults.Workers
	}
	setString("separator", t.separator, defaults.Separator)
	setString("setseparator", t.setSeparator, defaults.SetSeparator)
	setString("min-size", t.minSize, defaults.MinSize)
	setString("max-size", t.maxSize, defaults.MaxSize)
	setString("bwlimit", t.bwLimit, defaults.BWLimit)
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
