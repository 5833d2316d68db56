package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/core/printer"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/host"
	"github.com/joshuapare/hookkit/plugins/charset"
)

var (
	// Global flags
	verbose  bool
	jsonOut  bool
	noColor  bool
	logLevel string
	autoload string
)

var rootCmd = &cobra.Command{
	Use:   "hookctl",
	Short: "Inspect and drive a hookkit host",
	Long: `hookctl starts an in-process hookkit host (core subsystems plus the
bundled plugins) and lets you inspect its hook and hdata registries, query
objects by path, run commands, or type them at an interactive prompt.`,
	Version:       host.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log runtime events to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level with --verbose (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&autoload, "autoload", "*", "Plugins loaded on startup (comma-separated masks)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// plugins lists the plugins built into hookctl.
func plugins() []host.Plugin {
	return []host.Plugin{charset.New()}
}

// startHost initializes a host printing its lines to out. The caller
// shuts it down.
func startHost(out io.Writer) (*host.Context, error) {
	opts := host.DefaultOptions()
	opts.Output = out
	opts.Plugins = plugins()
	opts.Autoload = autoload
	if verbose {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
		opts.Log = logger.Options{Enabled: true, Writer: os.Stderr, Level: level, JSON: jsonOut}
	}
	c := host.New(opts)
	if err := c.Init(); err != nil {
		return nil, err
	}
	return c, nil
}

// withHost runs fn against a fresh host and shuts it down afterwards.
func withHost(cmd *cobra.Command, fn func(c *host.Context) error) error {
	c, err := startHost(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if serr := c.Shutdown(); serr != nil {
			printVerbose(cmd, "shutdown: %v\n", serr)
		}
	}()
	return fn(c)
}

// printerOptions returns the dump options for the global flags.
func printerOptions() printer.Options {
	opts := printer.DefaultOptions()
	if jsonOut {
		opts.Format = printer.FormatJSON
	}
	if !noColor {
		opts.Header = func(s string) string { return headerStyle.Render(s) }
		opts.Dim = func(s string) string { return dimStyle.Render(s) }
	}
	return opts
}

// Helper functions for output

// printVerbose prints a message if verbose mode is enabled
func printVerbose(cmd *cobra.Command, format string, args ...any) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// joinArgs rebuilds a command line from shell words, adding the leading
// slash when missing.
func joinArgs(args []string) string {
	line := strings.Join(args, " ")
	if !strings.HasPrefix(line, "/") {
		line = "/" + line
	}
	return line
}
