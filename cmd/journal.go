package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apijournal "github.com/kilianp07/timetabler/api/journal"
	"github.com/kilianp07/timetabler/core/search/journal"
	"github.com/kilianp07/timetabler/infra/logger"
)

var (
	journalAddr  string
	journalToken string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the accepted move journal",
}

var journalServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve accepted moves over HTTP",
	RunE:  runJournalServe,
}

func init() {
	journalServeCmd.Flags().StringVar(&journalAddr, "addr", ":8080", "listen address")
	journalServeCmd.Flags().StringVar(&journalToken, "token", os.Getenv("JOURNAL_TOKEN"), "bearer token required by clients")
	journalCmd.AddCommand(journalServeCmd)
	rootCmd.AddCommand(journalCmd)
}

func runJournalServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Backend == "" || cfg.Journal.Backend == "none" {
		return fmt.Errorf("no journal backend configured")
	}
	store, err := journal.New(cfg.Journal)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	log := logger.New("journal")
	mux := http.NewServeMux()
	mux.Handle("/api/journal/moves", apijournal.NewMoveHandler(store, journalToken))
	srv := &http.Server{Addr: journalAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("journal server shutdown: %v", err)
		}
	}()
	log.Infof("serving journal on %s", journalAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
