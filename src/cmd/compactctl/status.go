package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the tunables compactctl would run with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tunables, err := loadTunables()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file: %s\n", defaultConfigPath())
			fmt.Fprintf(out, "swap_cluster_max     = %d\n", tunables.SwapClusterMax)
			fmt.Fprintf(out, "compact_cluster_max  = %d\n", tunables.CompactClusterMax)
			fmt.Fprintf(out, "frag_threshold       = %d\n", tunables.FragThreshold)
			fmt.Fprintf(out, "pageblock_order      = %d\n", tunables.PageblockOrder)
			fmt.Fprintf(out, "compact_defer_limit  = %d\n", tunables.CompactDeferLimit)
			fmt.Fprintf(out, "compact_defer_shift  = %d\n", tunables.CompactDeferShift)
			return nil
		},
	}
}
