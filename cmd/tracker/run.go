package main

import (
	"fmt"
	"log"

	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"github.com/spf13/cobra"
)

var runFlags struct {
	asOf   string
	noAI   bool
	weekly bool
	model  string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one daily run and persist the result",
	RunE:  runDaily,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.asOf, "asof", "", "As-of date YYYY-MM-DD (default: yesterday, UTC)")
	runCmd.Flags().BoolVar(&runFlags.noAI, "no-ai", false, "Skip the decision provider; only stop-loss and valuation run")
	runCmd.Flags().BoolVar(&runFlags.weekly, "weekly", false, "Allow deep research in the decision prompt")
	runCmd.Flags().StringVar(&runFlags.model, "model", "", "Override the decision model")
}

func runDaily(cmd *cobra.Command, args []string) error {
	opts := dto.RunOptions{
		NoAI:    runFlags.noAI,
		Weekly:  runFlags.weekly,
		Model:   runFlags.model,
		Trigger: dto.TriggerCLI,
	}
	if runFlags.asOf != "" {
		asOf, err := utils.ParseDate(runFlags.asOf)
		if err != nil {
			return fmt.Errorf("invalid --asof %q, expected YYYY-MM-DD", runFlags.asOf)
		}
		opts.AsOf = asOf
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.runService.Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "[%s] Equity: %s  Cash: %s\n",
		utils.FormatDate(report.AsOf), report.Equity.StringFixed(2), report.Cash.StringFixed(2))
	return nil
}
