package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/core/infolist"
	"github.com/joshuapare/hookkit/pkg/host"
)

func init() {
	rootCmd.AddCommand(newInfoCmd(), newInfolistCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [name [args]]",
		Short: "Read an info, or list the infos",
		Long: `Ask the info hooks for a value. Without a name, list the infos,
info hashtables and infolists the host provides.

Example:
  hookctl info
  hookctl info version
  hookctl info hook_count command
  hookctl info hook_counts`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withHost(cmd, func(c *host.Context) error {
				reg := c.Hooks()
				if len(args) == 0 {
					for _, kind := range []hook.Kind{hook.KindInfo, hook.KindInfoHashtable, hook.KindInfolist} {
						fmt.Fprintln(out, headerStyleFor(kind.String()))
						for _, s := range reg.Infos(kind) {
							fmt.Fprintf(out, "  %-20s %s\n", s.Name, s.Description)
						}
					}
					return nil
				}
				var arg string
				if len(args) > 1 {
					arg = args[1]
				}
				if v, ok := reg.GetInfo(args[0], arg); ok {
					if jsonOut {
						return printJSON(out, map[string]string{args[0]: v})
					}
					fmt.Fprintln(out, v)
					return nil
				}
				m, ok := reg.GetInfoHashtable(args[0], nil)
				if !ok {
					return fmt.Errorf("info %q not found", args[0])
				}
				if jsonOut {
					return printJSON(out, m)
				}
				for _, k := range slices.Sorted(maps.Keys(m)) {
					fmt.Fprintf(out, "%s: %s\n", k, m[k])
				}
				return nil
			})
		},
	}
}

func newInfolistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "infolist <name> [args]",
		Short: "Print an infolist",
		Long: `Build an infolist and print its items.

Example:
  hookctl infolist hook command
  hookctl infolist option 'weechat.look.*' --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var arg string
			if len(args) > 1 {
				arg = args[1]
			}
			return withHost(cmd, func(c *host.Context) error {
				l, ok := c.Hooks().GetInfolist(args[0], nil, arg)
				if !ok {
					return fmt.Errorf("infolist %q not found", args[0])
				}
				if jsonOut {
					return printJSON(out, l)
				}
				for i, it := range l.Items() {
					fmt.Fprintln(out, headerStyleFor(fmt.Sprintf("[%d]", i)))
					for _, v := range it.Vars() {
						fmt.Fprintf(out, "  %-24s %s\n", v.Name+":", formatVar(v))
					}
				}
				fmt.Fprintf(out, "%d items\n", l.Len())
				return nil
			})
		},
	}
}

func formatVar(v infolist.Var) string {
	switch v.Type {
	case infolist.Integer:
		return strconv.Itoa(v.Int)
	case infolist.Buffer:
		return fmt.Sprintf("(%d bytes)", len(v.Buf))
	case infolist.Time:
		if v.Time.IsZero() {
			return "0"
		}
		return v.Time.UTC().Format(time.RFC3339)
	}
	return v.Str
}
