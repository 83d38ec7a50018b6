// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the research cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live entry counts per cache namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cacheStore(cmd)
		counts := store.Stats()
		for _, ns := range cache.Namespaces {
			fmt.Printf("%-10s %d\n", ns, counts[ns])
		}
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [namespace]",
	Short: "Remove cache entries, for one namespace or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cacheStore(cmd)

		targets := cache.Namespaces
		if len(args) == 1 {
			ns := cache.Namespace(args[0])
			valid := false
			for _, known := range cache.Namespaces {
				if ns == known {
					valid = true
					break
				}
			}
			if !valid {
				return fmt.Errorf("unknown namespace %q (want one of %v)", args[0], cache.Namespaces)
			}
			targets = []cache.Namespace{ns}
		}

		total := 0
		for _, ns := range targets {
			removed, err := store.Purge(ns)
			if err != nil {
				return err
			}
			total += removed
		}
		fmt.Printf("purged %d entries\n", total)
		return nil
	},
}

func cacheStore(cmd *cobra.Command) *cache.Store {
	cfg := types.Defaults().Cache
	if v := viper.GetString("cache.root_dir"); v != "" {
		cfg.RootDir = v
	}
	if v, _ := cmd.Flags().GetString("cache-dir"); v != "" {
		cfg.RootDir = v
	}
	return cache.NewStore(cfg)
}

func init() {
	cacheCmd.PersistentFlags().String("cache-dir", "", "cache root directory (default research_cache)")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)

	rootCmd.AddCommand(cacheCmd)
}
