package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/psops/sentry/internal/agent/assemble"
	"github.com/psops/sentry/internal/config"
	"github.com/psops/sentry/internal/models"
)

var (
	checkHoursBack int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a one-shot health check and print the analysis",
	Long: `Scan the PeopleSoft error tables, match errors against the SOP
library, run the agent loop once and print the resulting root-cause
analysis to stdout. Useful for cron jobs and scripting.

Examples:
  # Scan the default 24-hour window
  sentry check

  # Narrow the scan window
  sentry check --hours-back 4`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkHoursBack, "hours-back", 0,
		"Scan window in hours (overrides config lookback)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		cancel()
	}()

	c, err := buildCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.source.Close()
	defer c.Close()

	lookback := cfg.Database.Lookback()
	if checkHoursBack > 0 {
		lookback = time.Duration(checkHoursBack) * time.Hour
	}

	ibErrors, err := c.source.FetchIBErrors(ctx, lookback)
	if err != nil {
		return err
	}
	processErrors, err := c.source.FetchProcessErrors(ctx, lookback)
	if err != nil {
		return err
	}
	summary, err := c.source.FetchSummary(ctx)
	if err != nil {
		return err
	}

	records := make([]models.ErrorRecord, 0, len(ibErrors)+len(processErrors))
	records = append(records, ibErrors...)
	records = append(records, processErrors...)
	matched := c.matcher.Match(records)

	fmt.Printf("Overall status: %s\n", summary.OverallStatus)
	fmt.Printf("IB errors: %d/%d  Process errors: %d/%d  Running: %d\n\n",
		summary.IBErrorCount, summary.IBTotalMessages,
		summary.ProcessErrorCount, summary.ProcessTotal,
		summary.ProcessRunningCount)

	if len(matched) > 0 {
		fmt.Println("Matched procedures:")
		for _, hit := range assemble.SOPHits(matched) {
			marker := ""
			if hit.Fallback {
				marker = " (fallback)"
			}
			fmt.Printf("  [%s] %s -> %s%s, escalate to %s\n",
				hit.Source, hit.Identifier, hit.SOPTitle, marker, hit.EscalateTo)
		}
		fmt.Println()
	}

	outcome, err := c.loop.Run(ctx, assemble.RenderFindings(matched, summary), nil)
	if err != nil {
		return err
	}

	fmt.Println(outcome.Answer)
	return nil
}
