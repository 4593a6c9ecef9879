package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/api"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/config"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/db"
	"github.com/shunichi-ikebuchi/receipt-journal/pkg/pathutil"
)

var serveAddr string

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the receipt pipeline over HTTP",
	Long: `Serve parsing, journal proposals and vendor confirmations as a JSON API.

Endpoints:
  GET  /healthz
  POST /api/1/parse                     {"text": "..."} or {"texts": [...]}
  POST /api/1/journal                   {"text": "..."} or {"texts": [...]}
  POST /api/1/confirmations             {"vendor": "...", "account": "..."}
  GET  /api/1/vendors/{vendor}/accounts

Requests under /api/1 need "Authorization: Bearer <SERVER_API_TOKEN>" when
the token is set.

Example:
  receipt-journal serve --addr :8080`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default is SERVER_ADDR or :8080)")
	serveCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not consult or record the learned vendor history")
}

func runServe(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	var history *db.VendorHistory
	var store api.HistoryStore
	if !noHistory {
		dbPath := pathutil.New(pathutil.Config{
			LedgerRoot:   cfg.Journal.LedgerRoot,
			DatabasePath: cfg.History.DBPath,
		}).GetDatabasePath()
		conn, err := db.Open(ctx, dbPath)
		exitOnError(err, "failed to open database")
		defer conn.Close()
		history = db.NewVendorHistory(conn)
		store = history
	}

	p, err := newPipeline(cfg, history)
	exitOnError(err, "failed to initialize pipeline")

	srv := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(api.Config{
			Pipeline: p,
			History:  store,
			Token:    cfg.Server.Token,
			Logger:   slog.Default(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", addr, "auth", cfg.Server.Token != "", "history", store != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			exitOnError(err, "server failed")
		}
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		exitOnError(srv.Shutdown(shutdownCtx), "failed to shut down server")
	}

	slog.Info("Server stopped")
}
