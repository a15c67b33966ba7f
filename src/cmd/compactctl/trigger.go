package main

import (
	"context"
	"fmt"

	"compact"
	"eventlog"
	"migrate"
	"pfn"
	"stats"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// outcome is one round's recorded result, the unit compactctl keeps in its
// in-memory eventlog.Log for the trigger subcommand's summary table.
type outcome struct {
	round  int
	node   string
	status string
	moved  int64
	failed int64
}

func newTriggerCmd() *cobra.Command {
	var (
		order   int
		sync    bool
		rounds  int
		zones   int
		spanned uint64
	)

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Run compaction against a synthetic node",
		Long:  "trigger calls compact.CompactNodes (greedy order) or compact.TryToCompactPages (a specific order) against a freshly seeded synthetic node, the manual-trigger path spec.md §5's sysctl_compaction_handler exposes as a contract.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rounds < 1 {
				rounds = 1
			}

			tunables, err := loadTunables()
			if err != nil {
				return err
			}

			fc := defaultFixtureConfig()
			if zones > 0 {
				fc.Zones = zones
			}
			if spanned > 0 {
				fc.Spanned = pfn.PFN(spanned)
			}

			log.WithFields(log.Fields{
				"zones":   fc.Zones,
				"spanned": uint64(fc.Spanned),
				"order":   order,
				"sync":    sync,
				"rounds":  rounds,
			}).Info("compactctl: starting trigger")

			history := eventlog.New[outcome](rounds)
			ctx := context.Background()
			engine := &migrate.Simulator{}

			for r := 1; r <= rounds; r++ {
				reg := buildFixtureRegistry("node0", fc)

				var rec outcome
				rec.round = r
				rec.node = "node0"

				if order <= 0 {
					err := compact.CompactNodes(ctx, reg, sync, tunables, engine)
					if err != nil {
						return fmt.Errorf("round %d: %w", r, err)
					}
					rec.status = "GREEDY"
				} else {
					var zs []compact.Zone
					reg.Iter(func(_ string, n compact.Node) bool {
						zs = append(zs, n.Zones...)
						return false
					})
					var events stats.Events
					ac := compact.AllocContext{
						Order:       pfn.Order(order),
						MigrateType: pfn.Movable,
						AllowFS:     true,
						AllowIO:     true,
						Sync:        sync,
						Tunables:    tunables,
					}
					status := compact.TryToCompactPages(ctx, zs, ac, engine, &events)
					rec.status = status.String()
					rec.moved = events.Pages.Get()
					rec.failed = events.PagesFailed.Get()
				}

				history.Push(rec)
			}

			printHistory(cmd, history)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&order, "order", 0, "compaction order (0 = greedy, compact every zone fully)")
	flags.BoolVar(&sync, "sync", false, "run sync-mode compaction instead of async")
	flags.IntVar(&rounds, "rounds", 1, "number of independent rounds to run, each against a freshly seeded node")
	flags.IntVar(&zones, "zones", 0, "override the fixture's zone count (default 1)")
	flags.Uint64Var(&spanned, "spanned", 0, "override each fixture zone's PFN span in pages (default 64 pageblocks)")

	return cmd
}

func printHistory(cmd *cobra.Command, history *eventlog.Log[outcome]) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-6s %-10s %-10s %8s %8s\n", "ROUND", "NODE", "STATUS", "MOVED", "FAILED")
	for _, rec := range history.Recent(history.Len()) {
		fmt.Fprintf(out, "%-6d %-10s %-10s %8d %8d\n", rec.round, rec.node, rec.status, rec.moved, rec.failed)
	}
}
