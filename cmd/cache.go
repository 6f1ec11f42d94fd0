package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persisted offline cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached payload",
	Run:   runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics as JSON",
	Run:   runCacheStats,
}

func init() {
	cacheClearCmd.Flags().Bool("confirm", false, "required; without it nothing is removed")
	cacheCmd.AddCommand(cacheClearCmd, cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, _ []string) {
	confirm, _ := cmd.Flags().GetBool("confirm")
	ctx := context.Background()

	application := mustNewApp(ctx)
	result := application.Health.ClearCache(ctx, confirm)
	application.Stop(ctx)

	if !result.Success {
		logrus.Error(result.Message)
		os.Exit(1)
	}
	logrus.Info(result.Message)
}

func runCacheStats(_ *cobra.Command, _ []string) {
	ctx := context.Background()

	application := mustNewApp(ctx)
	stats := application.Cache.Stats()
	application.Stop(ctx)

	if err := writeJSON("", stats); err != nil {
		logrus.Fatalf("failed to write stats: %v", err)
	}
}
