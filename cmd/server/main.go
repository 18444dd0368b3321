package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/campushub/relay/internal/adapters/http"
	wssignal "github.com/campushub/relay/internal/adapters/signal"
	"github.com/campushub/relay/internal/app"
	"github.com/campushub/relay/internal/app/orch"
	"github.com/campushub/relay/internal/app/presence"
	"github.com/campushub/relay/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	g, gctx := errgroup.WithContext(ctx)

	var mirror app.Presence
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable")
		}
		m := presence.NewMirror(presence.NewRedisStore(rdb, cfg.Redis.Prefix), cfg.Redis.Queue)
		g.Go(func() error { return m.Run(gctx) })
		mirror = m
	}

	o := orch.New(orch.Options{
		Policy:     app.SimplePolicy{},
		Presence:   mirror,
		ICEServers: cfg.WebRTCICEServers(),
	})

	opts := wssignal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	}
	if cfg.RateLimit.Attempts > 0 {
		opts.JoinLimiter = wssignal.NewRoomRateLimiter(cfg.RateLimit.Attempts, cfg.RateLimit.Interval)
		opts.StartLimiter = wssignal.NewRoomRateLimiter(cfg.RateLimit.Attempts, cfg.RateLimit.Interval)
	}

	r := router.SetupRouter(gctx, cfg, o, opts)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("signaling relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Mode == "release" {
		// JSON to stderr
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
