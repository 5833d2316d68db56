package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/internal/strmatch"
	"github.com/joshuapare/hookkit/pkg/host"
)

func init() {
	rootCmd.AddCommand(newQueryCmd())
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <path> [field,...]",
		Short: "Evaluate an hdata path",
		Long: `Evaluate an hdata path against a fresh host and print the objects it
reaches. The path is type:list(count)/field(count)/...; count "*" takes
every following object.

Example:
  hookctl query 'buffer:gui_buffers(*)' number,full_name
  hookctl query 'hook:weechat_hooks_command(*)' description,plugin --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys []string
			if len(args) > 1 {
				keys = strmatch.SplitMasks(args[1])
			}
			return withHost(cmd, func(c *host.Context) error {
				items, err := c.Query(args[0], keys)
				if err != nil {
					return err
				}
				return writeItems(cmd, c, items)
			})
		},
	}
}

type itemJSON struct {
	Path   []string          `json:"path"`
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`
}

func writeItems(cmd *cobra.Command, c *host.Context, items []hdata.Item) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		list := make([]itemJSON, 0, len(items))
		for _, it := range items {
			j := itemJSON{Path: handlePath(it.Path), Type: it.Type, Fields: make(map[string]string)}
			for _, f := range it.Fields {
				j.Fields[f.Name] = formatValue(c, f.Value)
			}
			list = append(list, j)
		}
		return printJSON(out, list)
	}
	for _, it := range items {
		fmt.Fprintln(out, headerStyleFor(fmt.Sprintf("%s [%s]", it.Type, strings.Join(handlePath(it.Path), "/"))))
		for _, f := range it.Fields {
			fmt.Fprintf(out, "  %s (%s): %s\n", f.Name, f.Type, formatValue(c, f.Value))
		}
	}
	fmt.Fprintf(out, "%d items\n", len(items))
	return nil
}

func handlePath(path []hdata.Handle) []string {
	out := make([]string, len(path))
	for i, h := range path {
		out[i] = h.String()
	}
	return out
}

func formatValue(c *host.Context, v hdata.Value) string {
	return c.FormatValue(v)
}

func headerStyleFor(s string) string {
	if noColor {
		return s
	}
	return headerStyle.Render(s)
}
