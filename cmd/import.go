package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/timetabler/core/factory"
	"github.com/kilianp07/timetabler/infra/feed"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load timetable data into the feed database",
}

var importGTFSCmd = &cobra.Command{
	Use:   "gtfs <zip>",
	Short: "Replace the scheduled network with a static GTFS feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, func(ctx context.Context, s *feed.Store) (feed.ImportStats, error) {
			return s.ImportGTFSFile(ctx, args[0])
		})
	},
}

var importHistoryCmd = &cobra.Command{
	Use:   "history <csv>",
	Short: "Append observed arrival and departure times",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, func(ctx context.Context, s *feed.Store) (feed.ImportStats, error) {
			return s.ImportHistoryFile(ctx, args[0])
		})
	},
}

func init() {
	importCmd.AddCommand(importGTFSCmd, importHistoryCmd)
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, fn func(context.Context, *feed.Store) (feed.ImportStats, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Provider.Type != "sqlite" {
		return fmt.Errorf("import needs the sqlite provider, configured %q", cfg.Provider.Type)
	}
	var fc feed.Config
	if err := factory.Decode(cfg.Provider.Conf, &fc); err != nil {
		return err
	}
	store, err := feed.OpenConfig(fc)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error while closing feed: %v\n", err)
		}
	}()
	st, err := fn(cmd.Context(), store)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "services %d, stops %d, trips %d, stop times %d, calendars %d, actuals %d, skipped %d\n",
		st.Services, st.Stops, st.Trips, st.StopTimes, st.Calendars, st.Actuals, st.Skipped)
	return nil
}
