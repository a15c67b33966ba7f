// Package main is the compactctl command: a CLI exercising
// compact.CompactNodes/TryToCompactPages against a synthetic node, in the
// style the teacher's own CLI teacher (dsmmcken-dh-cli) uses for its
// config-driven subcommand tree.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"compact"
	"pfn"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors compactor.toml: the tunables named in SPEC_FULL.md 2.2,
// loaded the way dh-cli loads ~/.dh/config.toml into a typed struct.
type fileConfig struct {
	SwapClusterMax    int64 `toml:"swap_cluster_max,omitempty"`
	CompactClusterMax int   `toml:"compact_cluster_max,omitempty"`
	FragThreshold     int   `toml:"frag_threshold,omitempty"`
	PageblockOrder    int   `toml:"pageblock_order,omitempty"`
	CompactDeferLimit uint  `toml:"compact_defer_limit,omitempty"`
	CompactDeferShift uint  `toml:"compact_defer_shift,omitempty"`
}

// configPathOverride is set by the --config flag.
var configPathOverride string

func defaultConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}
	if v := os.Getenv("COMPACTCTL_CONFIG"); v != "" {
		return v
	}
	return "compactor.toml"
}

// loadTunables reads compactor.toml if present and overlays any set fields
// onto compact.DefaultTunables(). A missing file is not an error, matching
// dh-cli's Load().
func loadTunables() (compact.Tunables, error) {
	t := compact.DefaultTunables()

	path := defaultConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, fmt.Errorf("reading %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return t, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	if fc.SwapClusterMax != 0 {
		t.SwapClusterMax = fc.SwapClusterMax
	}
	if fc.CompactClusterMax != 0 {
		t.CompactClusterMax = fc.CompactClusterMax
	}
	if fc.FragThreshold != 0 {
		t.FragThreshold = fc.FragThreshold
	}
	if fc.PageblockOrder != 0 {
		t.PageblockOrder = pfn.Order(fc.PageblockOrder)
		// pfn.PageblockOrder is the package var every alignment helper reads;
		// Tunables.PageblockOrder only records the configured value for
		// logging, so keep the two in sync.
		pfn.PageblockOrder = t.PageblockOrder
	}
	if fc.CompactDeferLimit != 0 {
		t.CompactDeferLimit = fc.CompactDeferLimit
	}
	if fc.CompactDeferShift != 0 {
		t.CompactDeferShift = fc.CompactDeferShift
	}
	return t, nil
}
