package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/host"
	"github.com/joshuapare/hookkit/plugins/charset"
)

func main() {
	debugMode := false
	autoload := "*"

	for _, arg := range os.Args[1:] {
		switch {
		case arg == "--debug" || arg == "-d":
			debugMode = true
		case strings.HasPrefix(arg, "--autoload="):
			autoload = strings.TrimPrefix(arg, "--autoload=")
		case arg == "--help" || arg == "-h":
			printHelp()
			os.Exit(0)
		case arg == "--version" || arg == "-v":
			fmt.Printf("hookexplorer %s\n", host.Version)
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
			printUsage()
			os.Exit(1)
		}
	}

	// The logger writes to a file: the terminal belongs to the TUI.
	logOpts := logger.Options{Enabled: debugMode, Level: slog.LevelDebug}

	opts := host.DefaultOptions()
	opts.Output = io.Discard
	opts.Plugins = []host.Plugin{charset.New()}
	opts.Autoload = autoload
	opts.Log = logOpts
	c := host.New(opts)
	if err := c.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting hookexplorer", "autoload", autoload, "debug", debugMode)

	p := tea.NewProgram(
		NewModel(c),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		_ = c.Shutdown()
		os.Exit(1)
	}

	if err := c.Shutdown(); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	logger.Info("hookexplorer exited normally")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: hookexplorer [options]\n")
	fmt.Fprintf(os.Stderr, "Try 'hookexplorer --help' for more information.\n")
}

func printHelp() {
	fmt.Println("hookexplorer - Interactive TUI for the hdata of a hookkit host")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  hookexplorer [options]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Starts an in-process host (core plus bundled plugins) and browses its")
	fmt.Println("  hdata types, their lists and the objects they reach.")
	fmt.Println()
	fmt.Println("  Navigation:")
	fmt.Println("    ↑/k, ↓/j    Navigate up/down")
	fmt.Println("    →/l, Enter  Expand type, list or object")
	fmt.Println("    ←/h         Collapse / Go to parent")
	fmt.Println("    Tab         Switch between tree and field panes")
	fmt.Println("    :           Run a host command (/buffer, /set, ...)")
	fmt.Println("    e           Edit the selected writable field")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -d, --debug        Enable debug logging to ~/.hookkit/logs/")
	fmt.Println("  --autoload=MASKS   Plugins loaded on startup (default \"*\")")
	fmt.Println("  -h, --help         Show this help message")
	fmt.Println("  -v, --version      Show version information")
	fmt.Println()
	fmt.Println("For non-interactive operations, use the 'hookctl' command instead.")
}
