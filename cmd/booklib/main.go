package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarpowsky/booklib/internal/config"
	"github.com/sarpowsky/booklib/internal/library"
	"github.com/sarpowsky/booklib/internal/logger"
	"github.com/sarpowsky/booklib/internal/platform/httpclient"
	"github.com/sarpowsky/booklib/internal/platform/openlibrary"
)

type app struct {
	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "booklib",
		Short:         "Personal book catalog with Open Library ISBN lookup",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, err := logger.Init(cfg.LogLevel); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Close()
		},
	}

	root.AddCommand(
		newServeCmd(a),
		newAddCmd(a),
		newAddManualCmd(a),
		newRemoveCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newStatsCmd(a),
		newClearCmd(a),
	)
	return root
}

func (a *app) newLookupClient() *openlibrary.Client {
	return openlibrary.NewClient(
		httpclient.NewRestyClient(a.cfg.LookupTimeout),
		openlibrary.Options{
			BaseURL:       a.cfg.LookupBaseURL,
			UserAgent:     a.cfg.AppName + "/1.0",
			MaxRetries:    a.cfg.LookupMaxRetries,
			RPS:           a.cfg.LookupRPS,
			CacheTTL:      a.cfg.CacheTTL,
			CacheCapacity: a.cfg.CacheCapacity,
		},
	)
}

// withService opens the store for the duration of fn inside a scoped
// session, so the backing file reflects every mutation even when fn fails.
func (a *app) withService(fn func(*library.Service) error) error {
	store, err := library.NewStore(a.cfg.DataFile, logger.Sugar())
	if err != nil {
		return err
	}
	svc := library.NewService(store, a.newLookupClient())
	return store.Scoped(func(*library.Store) error {
		return fn(svc)
	})
}
