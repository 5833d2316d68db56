package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/host"
	"github.com/joshuapare/hookkit/pkg/types"
)

const historyFile = ".hookctl_history"

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "repl",
		Short: "Type commands at an interactive prompt",
		Long: `Start a host with its event loop running and read lines from the
terminal. Lines starting with "/" are commands, other text is input for
the current buffer. Tab completes command names and arguments. /quit or
Ctrl-D leaves.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd)
		},
	})
}

// session hands work from the prompt goroutine to the loop goroutine,
// which owns the host.
type session struct {
	c       *host.Context
	stopped chan struct{}
}

// call runs fn on the loop goroutine and waits for it. It reports false
// once the loop is gone.
func (s *session) call(fn func()) bool {
	done := make(chan struct{})
	if !s.c.Post(func() { fn(); close(done) }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-s.stopped:
		return false
	}
}

func (s *session) complete(line string) []string {
	var cands []string
	if !s.call(func() { cands = s.c.Complete(s.c.CurrentBuffer(), line) }) {
		return nil
	}
	head := line
	if i := strings.LastIndexByte(line, ' '); i >= 0 {
		head = line[:i+1]
	} else {
		head = ""
	}
	out := make([]string, len(cands))
	for i, cand := range cands {
		out[i] = head + cand
	}
	return out
}

func (s *session) prompt() string {
	name := "?"
	s.call(func() { name = s.c.CurrentBuffer().FullName })
	return "[" + name + "] "
}

func runRepl(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	c, err := startHost(out)
	if err != nil {
		return err
	}

	quitting := make(chan struct{})
	var once sync.Once
	_, err = c.Hooks().HookSignal("", hook.SignalSpec{
		Signal: "quit",
		Callback: func(string, string, any) types.RC {
			once.Do(func() { close(quitting) })
			return types.OK
		},
	})
	if err != nil {
		return errors.Join(err, c.Shutdown())
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	s := &session{c: c, stopped: make(chan struct{})}
	runErr := make(chan error, 1)
	go func() {
		defer close(s.stopped)
		runErr <- c.Run(ctx)
	}()

	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(s.complete)
	histPath := filepath.Join(os.Getenv("HOME"), historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	banner := "hookctl " + host.Version + ": /help lists commands, /quit leaves"
	if !noColor {
		banner = promptStyle.Render(banner)
	}
	fmt.Fprintln(out, banner)
loop:
	for {
		line, err := ln.Prompt(s.prompt())
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			break loop
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorText(err.Error()))
			break loop
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		if !s.call(func() { c.Input(c.CurrentBuffer(), line) }) {
			break loop
		}
		select {
		case <-quitting:
			break loop
		case <-s.stopped:
			break loop
		default:
		}
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	_ = ln.Close()

	cancel()
	<-s.stopped
	err = <-runErr
	return errors.Join(err, c.Shutdown())
}

func errorText(s string) string {
	if noColor {
		return s
	}
	return errorStyle.Render(s)
}
