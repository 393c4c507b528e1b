package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/spf13/cobra"
	"github.com/tokenbank/bank-contract/internal/api"
	"github.com/tokenbank/bank-contract/internal/journal"
	"github.com/tokenbank/bank-contract/internal/watcher"
	"github.com/tokenbank/bank-contract/rpc/bank"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Journal ledger events and serve read-only ledger API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	h, err := cfg.ContractHash()
	if err != nil {
		return err
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	endpoint, err := wsEndpoint(cfg.RPC.Endpoint)
	if err != nil {
		return err
	}

	c, err := rpcclient.NewWS(ctx, endpoint, rpcclient.WSOptions{
		Options: rpcclient.Options{
			DialTimeout:    cfg.RPC.DialTimeout,
			RequestTimeout: cfg.RPC.DialTimeout,
		},
	})
	if err != nil {
		return fmt.Errorf("WS RPC client dial: %w", err)
	}
	defer c.Close()

	if err := c.Init(); err != nil {
		return fmt.Errorf("WS RPC client init: %w", err)
	}

	w := watcher.New(watcher.Prm{
		Logger:     logger.Named("watcher"),
		Subscriber: c,
		Journal:    j,
		Contract:   h,
	})

	handler := api.NewHandler(bank.NewReader(invoker.New(c, nil), h), j, logger.Named("api"))

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.NewRouter(handler),
	}

	errCh := make(chan error, 2)

	go func() {
		errCh <- w.Run(ctx)
	}()

	go func() {
		logger.Info("serving ledger API", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve API: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		if err != nil {
			logger.Error("service failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("API server shutdown", zap.Error(shutdownErr))
	}

	return err
}

// wsEndpoint converts HTTP RPC endpoint of the Neo node into its WebSocket
// endpoint.
func wsEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid RPC endpoint: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported RPC endpoint scheme %q", u.Scheme)
	}

	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}

	return u.String(), nil
}
