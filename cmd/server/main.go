package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benassa-de-glassa/uno-backend/internal/auth"
	"github.com/benassa-de-glassa/uno-backend/internal/cache"
	"github.com/benassa-de-glassa/uno-backend/internal/config"
	"github.com/benassa-de-glassa/uno-backend/internal/database"
	"github.com/benassa-de-glassa/uno-backend/internal/game"
	"github.com/benassa-de-glassa/uno-backend/internal/handlers"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(ctx, cfg.RedisAddr); err != nil {
			logrus.WithError(err).Warn("action history disabled")
		} else {
			defer cache.Close()
			logrus.WithField("addr", cfg.RedisAddr).Info("action history enabled")
		}
	}
	if cfg.DatabaseURL != "" {
		if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
			logrus.WithError(err).Warn("results archive disabled")
		} else {
			defer database.Close()
			logrus.Info("results archive enabled")
		}
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logrus.WithError(err).Fatal("creating token signer")
	}
	if cfg.JWTSecret == "" {
		logrus.Warn("JWT_SECRET not set; tokens will not survive a restart")
	}

	g := game.NewGame(game.HouseRules{
		InitialHandSize:        cfg.InitialHandSize,
		MissedDeclarationDraws: cfg.MissedDeclarationDraws,
		TurnTimerSec:           int(cfg.TurnTimeout / time.Second),
	}, cfg.GameSeed)
	g.OnGameEnd = func(id uuid.UUID, standings []database.Standing) {
		for _, s := range standings {
			logrus.WithFields(logrus.Fields{"game": id, "rank": s.Rank, "name": s.Name, "points": s.Points}).Info("final standing")
		}
	}

	srv := handlers.NewServer(g, signer, cfg.OriginAllowlist)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.CORS(cfg.OriginAllowlist, srv.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logrus.WithFields(logrus.Fields{"port": cfg.Port, "game": g.SessionID()}).Info("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("server stopped")
	}
	logrus.Info("server shut down")
}
