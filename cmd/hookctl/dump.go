package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/core/printer"
	"github.com/joshuapare/hookkit/pkg/host"
)

var (
	dumpAll     bool
	dumpDeleted bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the registries of a fresh host",
	}
	hdataCmd := newDumpHdataCmd()
	hdataCmd.Flags().BoolVar(&dumpAll, "all", false, "Materialize every hdata type before dumping")
	hooksCmd := newDumpHooksCmd()
	hooksCmd.Flags().BoolVar(&dumpDeleted, "deleted", false, "Include hooks waiting for a sweep")
	cmd.AddCommand(hdataCmd, hooksCmd)
	rootCmd.AddCommand(cmd)
}

func newDumpHdataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hdata",
		Short: "Dump hdata type descriptions",
		Long: `Dump the hdata types known to the host. Types provided by hooks are
described only once something looked them up; --all looks every one up.

Example:
  hookctl dump hdata --all
  hookctl dump hdata --all --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHost(cmd, func(c *host.Context) error {
				if dumpAll {
					materializeAll(c)
				}
				return printer.New(cmd.OutOrStdout(), printerOptions()).Hdata(c.Types())
			})
		},
	}
}

// materializeAll resolves every type an hdata hook provides.
func materializeAll(c *host.Context) {
	names := make([]string, 0)
	for name := range c.Hooks().HdataDescriptions() {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c.Types().Resolve(name)
	}
}

func newDumpHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hooks [kind...]",
		Short: "Dump registered hooks",
		Long: `Dump the hooks registered by the core and the autoloaded plugins,
grouped by kind and in dispatch order.

Example:
  hookctl dump hooks
  hookctl dump hooks command modifier
  hookctl dump hooks --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := printerOptions()
			opts.IncludeDeleted = dumpDeleted
			for _, name := range args {
				k, ok := hook.ParseKind(name)
				if !ok {
					return fmt.Errorf("unknown hook kind %q", name)
				}
				opts.Kinds = append(opts.Kinds, k)
			}
			return withHost(cmd, func(c *host.Context) error {
				return printer.New(cmd.OutOrStdout(), opts).Hooks(c.Hooks())
			})
		},
	}
}
