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

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/arnavshah/precinct-staffing-go/pkg/config"
	"github.com/arnavshah/precinct-staffing-go/pkg/handlers"
	"github.com/arnavshah/precinct-staffing-go/pkg/logging"
	"github.com/arnavshah/precinct-staffing-go/pkg/pipeline"
	"github.com/arnavshah/precinct-staffing-go/pkg/store"
)

func main() {
	// Load .env if it exists
	config.LoadDotEnv()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Options{Verbose: cfg.Verbose, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.InitStore(cfg.ProjectRoot)
	if err != nil {
		log.Fatal("could not open project", zap.Error(err))
	}
	p := pipeline.New(st, pipeline.OptionsFrom(cfg), log)
	h := handlers.New(p, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WatchAliases {
		go func() {
			if err := p.Aliases.Watch(ctx, log); err != nil {
				log.Warn("alias watcher stopped", zap.Error(err))
			}
		}()
	}

	if cfg.ProcessSchedule != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.ProcessSchedule, func() {
			if _, err := h.RunProcess(ctx); err != nil {
				log.Error("scheduled process failed", zap.Error(err))
			}
		})
		if err != nil {
			log.Fatal("invalid process schedule", zap.String("schedule", cfg.ProcessSchedule), zap.Error(err))
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		log.Info("scheduled processing enabled", zap.String("schedule", cfg.ProcessSchedule))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("server starting", zap.String("port", cfg.Port), zap.String("root", st.Root))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("could not run server", zap.Error(err))
	}
}
