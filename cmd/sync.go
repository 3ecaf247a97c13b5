package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unitscout/unitscout/internal/fetch"
	"github.com/unitscout/unitscout/internal/id/uuid"
	"github.com/unitscout/unitscout/internal/identify"
	"github.com/unitscout/unitscout/internal/metrics"
	"github.com/unitscout/unitscout/internal/planner"
	"github.com/unitscout/unitscout/internal/scheduler"
	"github.com/unitscout/unitscout/internal/store"
)

// newSyncCmd creates and configures the 'sync' subcommand. It runs one full
// pass: discover codes, plan, fetch what is missing, persist the outcomes.
func newSyncCmd() *cobra.Command {
	var workbook string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the local corpus with the catalog",
		Long: `Reads candidate unit codes from the input spreadsheet, compares them
against the local corpus and outcome log, fetches only the codes that are
new or due for retry, and writes the extracted records plus a fresh
classification log.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSyncCommand(cmd, workbook)
		},
	}

	cmd.Flags().StringVar(&workbook, "workbook", "", "spreadsheet of candidate codes (overrides input.workbook)")
	return cmd
}

func runSyncCommand(cmd *cobra.Command, workbook string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config
	logger := appInstance.Logger

	if workbook == "" {
		workbook = cfg.Input.Workbook
	}
	if workbook == "" {
		return errors.New("no input workbook: set --workbook or input.workbook")
	}

	sheets, err := identify.ReadWorkbook(workbook)
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}
	codes := identify.NewExtractor(cfg.Input.Denylist).FromSheets(sheets)
	logger.Info("Identified candidate codes",
		zap.String("workbook", workbook),
		zap.Int("codes", len(codes)))

	st, err := store.Open(cfg.Store.Dir, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	plan := planner.Build(codes, st.Snapshot(), cfg.Sync.MaxRetries)
	logger.Info("Sync plan ready",
		zap.Int("skip", len(plan.Skip)),
		zap.Int("retry", len(plan.Retry)),
		zap.Int("new", len(plan.New)))

	metrics.Init()
	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if addr := cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(runCtx, addr); err != nil {
				logger.Warn("metrics listener failed", zap.String("addr", addr), zap.Error(err))
			}
		}()
	}

	started := time.Now().UTC()
	counters, runErr := executePlan(runCtx, appInstance, st, plan.Queue())
	finished := time.Now().UTC()
	metrics.ObserveRunDuration(finished.Sub(started))

	runID, err := uuid.New().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	summary := store.RunSummary{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Checked:    counters.Checked,
		Valid:      counters.Valid,
		Invalid:    counters.Invalid,
		Errors:     counters.Errors,
	}
	if err := st.WriteClassification(summary); err != nil {
		return fmt.Errorf("write classification: %w", err)
	}

	cmd.Printf("run %s: checked %d, valid %d, invalid %d, errors %d (skipped %d already present)\n",
		summary.RunID, summary.Checked, summary.Valid, summary.Invalid, summary.Errors, len(plan.Skip))

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("sync run: %w", runErr)
	}
	return nil
}

// executePlan spins up the fetch engine and scheduler for a non-empty queue.
// An empty queue still yields a summary, without launching a browser.
func executePlan(ctx context.Context, appInstance *App, st *store.Store, queue []string) (scheduler.Counters, error) {
	if len(queue) == 0 {
		appInstance.Logger.Info("Nothing to fetch; corpus is up to date")
		return scheduler.Counters{}, nil
	}

	engine := fetch.NewEngine(appInstance.Config.EngineConfig(), appInstance.Logger)
	cache := fetch.NewCache(engine)
	sched := scheduler.New(cache, engine, st, appInstance.Config.SchedulerConfig(), appInstance.Logger)
	return sched.Run(ctx, queue)
}
