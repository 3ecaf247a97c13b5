package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unitscout/unitscout/internal/report"
	"github.com/unitscout/unitscout/internal/store"
)

// newReportCmd creates the 'report' subcommand: a read-only export of the
// corpus and outcome log into a spreadsheet.
func newReportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the corpus and outcome log as a workbook",

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReportCommand(cmd, output)
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "destination xlsx path (overrides report.output)")
	return cmd
}

func runReportCommand(cmd *cobra.Command, output string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config

	if output == "" {
		output = cfg.Report.Output
	}

	st, err := store.Open(cfg.Store.Dir, appInstance.Logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	records := st.Records()
	outcomes := st.Snapshot()
	if err := report.Write(output, records, outcomes); err != nil {
		return err
	}

	appInstance.Logger.Info("Report written",
		zap.String("path", output),
		zap.Int("records", len(records)),
		zap.Int("outcomes", len(outcomes)))
	cmd.Printf("wrote %s: %d records, %d tracked codes\n", output, len(records), len(outcomes))
	return nil
}
