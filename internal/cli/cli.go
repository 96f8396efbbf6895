// Package cli wires the titanlint commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/renameio/v2"
	"github.com/jenian/titanlint/internal/config"
	"github.com/jenian/titanlint/internal/lint"
	xlog "github.com/jenian/titanlint/internal/log"
	"github.com/jenian/titanlint/internal/output"
	"github.com/jenian/titanlint/internal/titanconfig"
	"github.com/jenian/titanlint/internal/watch"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

// errProblems signals exit code 1 without printing an error
var errProblems = errors.New("undeclared environment variables found")

type checkFlags struct {
	titanConfig  string
	allow        []string
	jsonOutput   bool
	outputFile   string
	silent       bool
	includeGlobs []string
	excludeGlobs []string
	workers      int
	watch        bool
	noHeader     bool
}

// NewRootCommand builds the command tree writing to the given streams
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "titanlint",
		Short:         "Check that environment variable reads are declared in titan.json",
		Long:          "A CLI tool that scans JavaScript and TypeScript sources for process.env reads and reports variables that titan.json does not declare as cache dependencies.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logLevel
			if level == "" {
				if silent, _ := cmd.Flags().GetBool("silent"); silent {
					level = "error"
				}
			}
			xlog.Configure(xlog.Config{Level: level, Output: stderr})
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $TITANLINT_LOG_LEVEL or warn")

	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newDeclaredCommand())
	rootCmd.AddCommand(newInitConfigCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "Print the version number of titanlint",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	})
	return rootCmd
}

func newCheckCommand() *cobra.Command {
	var flags checkFlags

	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Report environment variable reads missing from titan.json",
		Long:  "Recursively scan a directory for process.env reads and report every variable that titan.json does not declare.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.titanConfig, "config", "", "Path to titan.json (default: searched from the scan root upwards)")
	f.StringArrayVar(&flags.allow, "allow", nil, "allowList pattern exempting matching variables (repeatable)")
	f.BoolVar(&flags.jsonOutput, "json", false, "Output results in JSON format")
	f.StringVarP(&flags.outputFile, "output", "o", "", "Write the report to a file instead of stdout")
	f.BoolVar(&flags.silent, "silent", false, "Silent mode (exit code only)")
	f.StringSliceVar(&flags.includeGlobs, "include", []string{}, "Glob patterns to include")
	f.StringSliceVar(&flags.excludeGlobs, "exclude", []string{}, "Glob patterns to exclude")
	f.IntVar(&flags.workers, "workers", 0, "Number of files parsed in parallel (default: number of CPUs)")
	f.BoolVarP(&flags.watch, "watch", "w", false, "Re-run the check when sources or configuration change")
	f.BoolVar(&flags.noHeader, "no-header", false, "Skip printing the header")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string, flags checkFlags) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	opts := lint.Options{
		Root:    path,
		Allow:   flags.allow,
		Include: flags.includeGlobs,
		Exclude: flags.excludeGlobs,
		Workers: flags.workers,
	}
	if flags.titanConfig != "" {
		abs, err := filepath.Abs(flags.titanConfig)
		if err != nil {
			return fmt.Errorf("invalid config path: %w", err)
		}
		opts.TitanConfig = abs
	}

	stdout := cmd.OutOrStdout()
	if !flags.noHeader && !flags.jsonOutput && !flags.silent && flags.outputFile == "" {
		printHeader(stdout)
	}

	if flags.watch {
		return runWatch(cmd.Context(), opts, flags, stdout)
	}

	outcome, err := lint.Check(cmd.Context(), opts, nil)
	if err != nil {
		return err
	}
	if err := report(stdout, outcome, flags); err != nil {
		return err
	}
	if output.HasIssues(outcome.Result) {
		return errProblems
	}
	return nil
}

func runWatch(ctx context.Context, opts lint.Options, flags checkFlags, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	finder := titanconfig.NewFinder()
	w, err := watch.New(watch.Options{
		Run: func(ctx context.Context) ([]string, error) {
			outcome, err := lint.Check(ctx, opts, finder)
			if err != nil {
				return nil, err
			}
			if err := report(stdout, outcome, flags); err != nil {
				return nil, err
			}
			dirs := outcome.Dirs
			if cfg := outcome.Result.ConfigPath; cfg != "" {
				// titan.json may live above the scan root
				dirs = append(dirs, filepath.Dir(cfg))
			}
			return dirs, nil
		},
		Reload: finder.Invalidate,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// report prints or writes the outcome according to the output flags
func report(stdout io.Writer, outcome *lint.Outcome, flags checkFlags) error {
	opts := output.Options{JSON: flags.jsonOutput}
	if flags.outputFile != "" {
		if err := output.WriteFile(flags.outputFile, outcome.Result, opts); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
	if flags.silent || (outcome.Disabled && !flags.jsonOutput) {
		return nil
	}
	if f, ok := stdout.(*os.File); ok {
		opts.Color = output.ColorEnabled(f)
	}
	if err := output.Write(stdout, outcome.Result, opts); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func newDeclaredCommand() *cobra.Command {
	var (
		titanConfig string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "declared [path]",
		Short: "Print the environment variables titan.json declares",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			if titanConfig != "" {
				abs, err := filepath.Abs(titanConfig)
				if err != nil {
					return fmt.Errorf("invalid config path: %w", err)
				}
				titanConfig = abs
			}

			names, _, err := lint.Declared(path, titanConfig)
			if err != nil {
				return err
			}
			return printDeclared(cmd.OutOrStdout(), names, jsonOutput)
		},
	}
	cmd.Flags().StringVar(&titanConfig, "config", "", "Path to titan.json (default: searched from path upwards)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the names as a JSON array")
	return cmd
}

func newInitConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a " + config.FileName + " file in the current directory",
		Long:  "Creates a " + config.FileName + " file with the default configuration in the current directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(config.FileName); err == nil {
				return fmt.Errorf("%s already exists in the current directory", config.FileName)
			}
			if err := renameio.WriteFile(config.FileName, []byte(config.Template), 0644); err != nil {
				return fmt.Errorf("failed to create %s: %w", config.FileName, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s in the current directory\n", config.FileName)
			return nil
		},
	}
}

func printDeclared(w io.Writer, names []string, jsonOutput bool) error {
	if jsonOutput {
		if names == nil {
			names = []string{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(names)
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

func printHeader(w io.Writer) {
	fmt.Fprintf(w, "titanlint %s\n\n", Version)
}

// Execute runs the CLI with the process arguments and returns the exit code
func Execute() int {
	return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the CLI with explicit arguments and streams
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand(stdout, stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errProblems) {
			fmt.Fprint(stderr, output.FormatError(err))
		}
		return 1
	}
	return 0
}
