package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verboseFlag bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "compactctl",
		Short:         "Drive the memory compaction engine against a synthetic node",
		Long:          "compactctl — exercises compact.CompactNodes/TryToCompactPages against a synthetic node built in place of the real buddy allocator and page cache this module does not implement.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verboseFlag {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.InfoLevel)
			}
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			return nil
		},
	}

	pflags := root.PersistentFlags()
	pflags.StringVar(&configPathOverride, "config", "", fmt.Sprintf("path to compactor.toml (default %q)", "compactor.toml"))
	pflags.BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug-level logging")

	root.AddCommand(newTriggerCmd())
	root.AddCommand(newStatusCmd())
	return root
}
