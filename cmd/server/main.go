package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vibetorrent/internal/application/livesync"
	"vibetorrent/internal/application/torrent"
	"vibetorrent/internal/config"
	"vibetorrent/internal/infrastructure/rtorrent"
	"vibetorrent/internal/infrastructure/scgi"
	"vibetorrent/internal/logger"
	httptransport "vibetorrent/internal/transport/http"
)

func main() {
	log := logger.NewLogger("server")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	level := logger.SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpc := scgi.NewClient(cfg.RTorrent.Socket, cfg.RTorrent.Timeout.Std())
	daemon := rtorrent.NewClient(rpc, log)

	probeCtx, cancelProbe := context.WithTimeout(ctx, cfg.RTorrent.Timeout.Std())
	if err := daemon.TestConnection(probeCtx); err != nil {
		log.Warn().Err(err).Str("socket", rpc.Address()).Msg("rtorrent not reachable yet, continuing")
	}
	cancelProbe()

	live := livesync.New(daemon, syncOptions(cfg.Sync), log, nil)
	go live.Run(ctx)

	torrentService := torrent.NewService(daemon, live)
	handler := httptransport.NewHandler(torrentService, live, log, cfg.Server.EventBuffer)
	router := httptransport.NewRouter(handler)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           httptransport.WithCORS(router, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		// cancelling ctx ends open event streams so Shutdown can finish
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Address).
			Str("socket", rpc.Address()).
			Str("level", level.String()).
			Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func syncOptions(c config.Sync) livesync.Options {
	return livesync.Options{
		ActiveInterval: c.ActiveInterval.Std(),
		IdleInterval:   c.IdleInterval.Std(),
		BatchDelay:     c.BatchDelay.Std(),
		Heartbeat:      c.Heartbeat.Std(),
		Thresholds: livesync.Thresholds{
			Rate:     c.RateThreshold,
			Progress: c.ProgressThreshold,
			ETA:      c.ETAThreshold,
			Ratio:    c.RatioThreshold,
			DiskFree: c.DiskFreeThreshold,
		},
	}
}
