package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/timetabler/app"
)

var (
	optService string
	optDate    string
	optSeed    int64
	optIters   int
)

var optimiseCmd = &cobra.Command{
	Use:   "optimise",
	Short: "Search for a better timetable for the configured service",
	RunE:  runOptimise,
}

func init() {
	optimiseCmd.Flags().StringVar(&optService, "service", "", "primary service, overrides session.primary_service")
	optimiseCmd.Flags().StringVar(&optDate, "date", "", "representative date, overrides session.date")
	optimiseCmd.Flags().Int64Var(&optSeed, "seed", 0, "random seed, overrides search.seed")
	optimiseCmd.Flags().IntVar(&optIters, "iterations", 0, "accepted move budget, overrides search.iterations")
	rootCmd.AddCommand(optimiseCmd)
}

func runOptimise(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if optService != "" {
		cfg.Session.PrimaryService = optService
	}
	if optDate != "" {
		cfg.Session.Date = optDate
	}
	if cmd.Flags().Changed("seed") {
		cfg.Search.Seed = optSeed
	}
	if optIters > 0 {
		cfg.Search.Iterations = optIters
	}
	return withService(cfg, func(svc *app.Service) error {
		rep, err := svc.Optimise(ctx)
		if err != nil {
			return err
		}
		res := rep.Result
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s stopped (%s) after %d iterations\n", res.RunID, res.Reason, res.Iterations)
		fmt.Fprintf(out, "objective %.2f -> %.2f, %d of %d visits changed\n",
			res.InitialObjective, res.BestObjective, rep.Changed, len(rep.Rows))
		for _, f := range rep.Files {
			fmt.Fprintln(out, f)
		}
		return nil
	})
}
