package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/ai"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/auth"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/config"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/controller"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/localstore"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/profile"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/report"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/server"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/supabase"
	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	api, err := supabase.NewClient(supabase.Config{
		URL:     cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
	})
	if err != nil {
		log.Fatalf("failed to init supabase client: %v", err)
	}

	generator, err := ai.NewClient(cfg.GeneratorURL, cfg.GeneratorAPIKey)
	if err != nil {
		log.Fatalf("failed to init generator client: %v", err)
	}

	durable, err := localstore.NewRedisArea(cfg.RedisAddr, cfg.RedisPassword, "")
	if err != nil {
		log.Fatalf("failed to init local storage: %v", err)
	}
	local := localstore.New(durable, localstore.NewMemoryArea())

	authSvc, err := auth.New(auth.Config{API: api, Local: local})
	if err != nil {
		log.Fatalf("failed to init auth service: %v", err)
	}
	profileSvc, err := profile.New(profile.Config{API: api, Auth: authSvc})
	if err != nil {
		log.Fatalf("failed to init profile service: %v", err)
	}
	reportSvc, err := report.New(report.Config{API: api, Auth: authSvc})
	if err != nil {
		log.Fatalf("failed to init report service: %v", err)
	}

	ctrl, err := controller.New(controller.Config{
		Auth:      authSvc,
		Profiles:  profileSvc,
		Reports:   reportSvc,
		Generator: generator,
		Language:  cfg.Language,
	})
	if err != nil {
		log.Fatalf("failed to init controller: %v", err)
	}
	// An initialization failure is not fatal for the process: the server
	// keeps answering and reports the error phase to clients.
	if err := ctrl.Initialize(context.Background()); err != nil {
		slog.Error("startup initialization failed, serving error state", "err", err)
	}

	httpServer, err := server.New(server.Config{
		Controller:               ctrl,
		Auth:                     authSvc,
		Profiles:                 profileSvc,
		Reports:                  reportSvc,
		Local:                    local,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		SigninRateLimitPerMinute: cfg.SigninRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("flowforge server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
