package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeexec/config"
	"codeexec/executor"
	"codeexec/lang"
	"codeexec/logger"
	"codeexec/natshandler"
	"codeexec/pkg"
	"codeexec/routes"
	"codeexec/service"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	execLog, err := logger.NewLogrus(cfg.LogLevel, cfg.ExecutorLogFile)
	if err != nil {
		log.Fatal("Failed to create executor logger", zap.Error(err))
	}

	registry := lang.Default()
	if cfg.LanguagesFile != "" {
		registry, err = lang.LoadFile(cfg.LanguagesFile)
		if err != nil {
			log.Fatal("Failed to load languages file",
				zap.String("path", cfg.LanguagesFile),
				zap.Error(err))
		}
	}
	log.Info("Languages loaded", zap.Strings("languages", registry.Supported()))

	streamer := logger.NewBetterStackLogStreamer(
		cfg.BetterStackSourceToken,
		cfg.Environment,
		cfg.BetterStackUploadURL,
		cfg.AppLogFile,
		log,
	)
	defer streamer.Flush()

	tracker := executor.NewTracker()
	pipeline := service.NewPipeline(service.PipelineOptions{
		Registry: registry,
		Runner:   executor.NewRunner(execLog),
		WorkDir:  cfg.WorkDir,
		Limits: executor.Limits{
			Timeout:        cfg.ExecTimeout,
			MaxOutputBytes: cfg.MaxOutputBytes,
		},
		Tracker: tracker,
		Logger:  execLog,
		Tracer:  streamer,
	})

	// Initialize worker pool
	workerPool := executor.NewWorkerPool(pipeline, tracker, execLog, cfg.MaxWorkers, cfg.JobQueueSize)
	defer workerPool.Shutdown()

	compilerService := service.NewCompilerService(workerPool, pipeline, service.Options{
		MaxCodeLength: cfg.MaxCodeLength,
		Sanitize:      cfg.SanitizeCode,
	}, execLog)

	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			log.Fatal("Failed to connect to NATS",
				zap.String("url", cfg.NatsURL),
				zap.Error(err))
		}
		defer nc.Drain()

		handler := natshandler.NewHandler(compilerService, log)
		if _, err := handler.Subscribe(nc, cfg.NatsSubject); err != nil {
			log.Fatal("Failed to subscribe",
				zap.String("subject", cfg.NatsSubject),
				zap.Error(err))
		}
		log.Info("Listening for execution requests", zap.String("subject", cfg.NatsSubject))
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	var limiter *pkg.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = pkg.NewRateLimiter(cfg.RateLimit, execLog)
	}
	router := routes.NewRouter(compilerService, routes.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		RateLimiter: limiter,
		Logger:      execLog,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gzhttp.GzipHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	// in-flight jobs finish within the execution timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ExecTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
