package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarpowsky/booklib/internal/httpx"
	"github.com/sarpowsky/booklib/internal/library"
	"github.com/sarpowsky/booklib/internal/logger"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := library.NewStore(a.cfg.DataFile, logger.Sugar())
			if err != nil {
				return err
			}
			lookup := a.newLookupClient()
			service := library.NewService(store, lookup)
			handler := library.NewHTTPHandler(service, lookup)

			router := http.NewServeMux()
			router.HandleFunc("GET /healthz", handler.Health)
			router.HandleFunc("GET /books", handler.List)
			router.HandleFunc("POST /books", handler.Create)
			router.HandleFunc("POST /books/manual", handler.CreateManual)
			router.HandleFunc("GET /books/{isbn}", handler.Get)
			router.HandleFunc("PUT /books/{isbn}", handler.Update)
			router.HandleFunc("DELETE /books/{isbn}", handler.Delete)
			router.HandleFunc("GET /search", handler.Search)
			router.HandleFunc("GET /stats", handler.Stats)

			var h http.Handler = router
			h = httpx.RecoveryMiddleware(h)
			h = httpx.AccessLogMiddleware(h)
			h = httpx.SecurityHeadersMiddleware(h)
			if len(a.cfg.CORSOrigins) > 0 {
				h = httpx.CORSMiddleware(a.cfg.CORSOrigins)(h)
			}
			h = httpx.RequestSizeLimitMiddleware(1 << 20)(h)
			h = httpx.RequestIDMiddleware(h)

			httpServer := &http.Server{
				Addr:         a.cfg.Addr,
				Handler:      h,
				ReadTimeout: 5 * time.Second,
				// Add-by-ISBN can block through three lookup attempts plus backoff.
				WriteTimeout: 45 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			logger.Sugar().Infow("starting server", "addr", a.cfg.Addr, "data_file", a.cfg.DataFile)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
