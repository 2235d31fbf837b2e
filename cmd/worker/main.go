package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sachintanwar1/College-Management-System/internal/attendance"
	"github.com/sachintanwar1/College-Management-System/internal/cloudinary"
	"github.com/sachintanwar1/College-Management-System/internal/config"
	"github.com/sachintanwar1/College-Management-System/internal/logger"
	"github.com/sachintanwar1/College-Management-System/internal/queue"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

// Worker consumes capture events from redis and archives the images.
func main() {
	cfg := config.Load()
	logger.Init(!cfg.IsProduction())
	if err := cfg.Validate(); err != nil {
		logger.LogError("config rejected", err)
		os.Exit(1)
	}
	if cfg.QueueBackend != "redis" {
		logger.LogError("worker needs a shared queue", errors.New("QUEUE_BACKEND must be redis"), "queue", cfg.QueueBackend)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.LogInfo("shutdown signal received")
		cancel()
	}()

	docs, err := store.NewDocuments(cfg.DataDir)
	if err != nil {
		logger.LogError("open data dir failed", err)
		os.Exit(1)
	}
	logger.LogInfo("documents ready", "dir", docs.Dir())

	var mirror attendance.Mirror
	if cfg.DatabaseURL != "" {
		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			logger.LogWarn("database not reachable, mirror disabled", "error", err)
		} else {
			defer db.Close()
			if m, err := store.NewMirror(ctx, db); err != nil {
				logger.LogWarn("mirror migration failed, mirror disabled", "error", err)
			} else {
				mirror = m
			}
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.LogWarn("redis not reachable yet, consumer will retry", "addr", cfg.RedisAddr)
	}
	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)

	var archiver attendance.Archiver
	if cfg.CloudinaryEnabled() {
		archiver = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	} else {
		logger.LogWarn("cloudinary not configured, capture events will be dropped")
	}

	// The worker only writes archive URLs back; it never captures.
	svc := attendance.NewService(docs, cfg.UploadsDir, nil, nil, mirror)
	if err := attendance.NewWorker(svc, archiver).Run(ctx, q); err != nil {
		logger.LogError("queue consume init failed", err)
		os.Exit(1)
	}
}
