package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourname/contest-matchmaker/internal/api"
	"github.com/yourname/contest-matchmaker/internal/config"
	"github.com/yourname/contest-matchmaker/internal/leaderboard"
	"github.com/yourname/contest-matchmaker/internal/logger"
	"github.com/yourname/contest-matchmaker/internal/match"
	"github.com/yourname/contest-matchmaker/internal/metrics"
	"github.com/yourname/contest-matchmaker/internal/presence"
	"github.com/yourname/contest-matchmaker/internal/results"
	"github.com/yourname/contest-matchmaker/internal/store"
	"github.com/yourname/contest-matchmaker/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open profile store", zap.Error(err))
	}
	defer st.Close()

	metrics.Init()

	// Event hub pushing match notifications to WS clients
	hub := ws.NewHub(log.Named("ws"))
	go hub.Run()

	tracker := presence.NewTracker(st)
	mm := match.NewMatchmaker(st, tracker, hub, match.Options{
		Modes:         cfg.Modes,
		IdleTimeout:   cfg.QueueIdleTimeout,
		SweepInterval: cfg.QueueSweepInterval,
		Logger:        log.Named("match"),
	})
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		mm.Run(ctx)
	}()

	r := api.NewRouter(api.Deps{
		Matchmaker:  mm,
		Leaderboard: leaderboard.NewAggregator(st, log.Named("leaderboard")),
		Presence:    tracker,
		Results:     results.NewRecorder(st, cfg.Modes, log.Named("results")),
		Hub:         hub,
		Logger:      log,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = srv.Shutdown(ctxShut)
	cancel()
	<-sweepDone
	hub.Close()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.StoreBackend == "memory" {
		log.Warn("using in-memory profile store; profiles are lost on restart")
		return store.NewMemoryStore(), nil
	}
	rs := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		_ = rs.Close()
		return nil, err
	}
	return rs, nil
}
