package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/host"
)

var (
	cmdBuffer string
	cmdWait   time.Duration
)

func init() {
	cmd := newCmdCmd()
	cmd.Flags().StringVarP(&cmdBuffer, "buffer", "b", "", "Buffer the commands run in (number or name)")
	cmd.Flags().DurationVar(&cmdWait, "wait", 0, "Run the event loop this long afterwards (for /exec and timers)")
	rootCmd.AddCommand(cmd)
}

func newCmdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cmd <command> [args...]",
		Short: "Run one host command",
		Long: `Run a command in a fresh host and print the lines it displays. The
leading slash is optional. Several commands can be chained with ";".

Example:
  hookctl cmd help buffer
  hookctl cmd '/set weechat.look.*'
  hookctl cmd --wait 2s exec -timeout 1s uname -a`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHost(cmd, func(c *host.Context) error {
				b := c.CoreBuffer()
				if cmdBuffer != "" {
					if b = c.FindBuffer(cmdBuffer); b == nil {
						return fmt.Errorf("buffer %q not found", cmdBuffer)
					}
				}
				for _, line := range splitCommands(joinArgs(args)) {
					printVerbose(cmd, "running %s\n", line)
					if res := c.Exec(b, line); res != hook.ExecOK {
						return fmt.Errorf("%s: %s", line, res)
					}
				}
				if cmdWait <= 0 {
					return nil
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), cmdWait)
				defer cancel()
				if err := c.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return nil
			})
		},
	}
}

// splitCommands splits a line on ";" separators; each part gets the
// leading slash it may have lost.
func splitCommands(line string) []string {
	var out []string
	for _, part := range strings.Split(line, ";") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		out = append(out, joinArgs([]string{part}))
	}
	return out
}
