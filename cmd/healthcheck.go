package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Run one refresh cycle and print the health report",
	Long:  `Fetch every data domain once (falling back to the persisted cache), score the integration and print the report as JSON. Exits 1 when the report status is error.`,
	Run:   runHealthcheck,
}

func init() {
	healthcheckCmd.Flags().Bool("detailed", false, "attach the diagnostics report")
	healthcheckCmd.Flags().StringP("output", "o", "", "write the report to this file instead of stdout")
	healthcheckCmd.Flags().Duration("timeout", 2*time.Minute, "upper bound for the refresh cycle")
	rootCmd.AddCommand(healthcheckCmd)
}

func runHealthcheck(cmd *cobra.Command, _ []string) {
	detailed, _ := cmd.Flags().GetBool("detailed")
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	application := mustNewApp(ctx)
	application.Pool.Start(ctx)
	application.Refresh.RefreshAll(ctx)
	report := application.Health.PerformHealthCheck(ctx, detailed)
	application.Stop(context.Background())

	if err := writeJSON(output, report); err != nil {
		logrus.Fatalf("failed to write report: %v", err)
	}
	if report.Status == domainHealth.StatusError {
		os.Exit(1)
	}
}

// writeJSON prints v indented to stdout, or to path when set.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	if path == "" {
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logrus.Infof("[HEALTH] Report written to %s", path)
	return nil
}
