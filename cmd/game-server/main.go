package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holdem-tables/internal/app/lobby"
	"holdem-tables/internal/config"
	"holdem-tables/internal/eventbus"
	"holdem-tables/internal/ledger"
	"holdem-tables/internal/logging"
	"holdem-tables/internal/mcpserver"
	"holdem-tables/internal/store"
	"holdem-tables/internal/table"
	httptransport "holdem-tables/internal/transport/http"
	"holdem-tables/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("game server exited")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadApp()
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Log); err != nil {
		return err
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return err
	}
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	// The dispatcher outlives ctx so reports from the final hands can drain.
	ledgerCtx, cancelLedger := context.WithCancel(context.Background())
	defer cancelLedger()
	disp := ledger.NewDispatcher(st, ledger.DispatcherConfig{
		RetryMax:  cfg.Table.SettleRetryMax,
		RetryBase: cfg.Table.SettleRetryBase,
	})
	disp.Start(ledgerCtx)

	opts := table.Options{Settler: disp}
	if cfg.Server.NATSURL != "" {
		bus, err := eventbus.Connect(cfg.Server.NATSURL, "holdem-tables")
		if err != nil {
			return err
		}
		defer bus.Close()
		opts.Publisher = bus
	}

	mgr := table.NewManager(cfg.Table, opts)
	mgr.Start(ctx)

	svc := lobby.NewService(st, mgr, cfg.Table.MaxBuyIn, cfg.Server.InitialWallet).WithPending(disp)
	wsSrv := ws.NewServer(svc, cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst)
	r := newRouter(cfg.Server, svc, st, wsSrv)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Int("tables", cfg.Table.Count).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Sockets go first so their drop is not taken as players leaving.
		wsSrv.Close()
		err := server.Shutdown(shutdownCtx)
		mgr.Close()

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
		defer cancelDrain()
		_ = disp.Drain(drainCtx)
		cancelLedger()
		return err
	})
	return g.Wait()
}

func newRouter(cfg config.ServerConfig, svc *lobby.Service, admin httptransport.AdminStore, wsSrv http.Handler) *chi.Mux {
	return httptransport.NewRouter(cfg, httptransport.Deps{
		Lobby: svc,
		Store: admin,
		MCP:   mcpserver.New(svc).Handler(),
		WS:    wsSrv,
	})
}
