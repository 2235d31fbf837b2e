package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sachintanwar1/College-Management-System/internal/attendance"
	"github.com/sachintanwar1/College-Management-System/internal/auth"
	"github.com/sachintanwar1/College-Management-System/internal/cloudinary"
	"github.com/sachintanwar1/College-Management-System/internal/config"
	"github.com/sachintanwar1/College-Management-System/internal/enrollment"
	"github.com/sachintanwar1/College-Management-System/internal/faceclient"
	"github.com/sachintanwar1/College-Management-System/internal/handler"
	"github.com/sachintanwar1/College-Management-System/internal/httpmiddleware"
	"github.com/sachintanwar1/College-Management-System/internal/logger"
	"github.com/sachintanwar1/College-Management-System/internal/metrics"
	"github.com/sachintanwar1/College-Management-System/internal/queue"
	"github.com/sachintanwar1/College-Management-System/internal/report"
	"github.com/sachintanwar1/College-Management-System/internal/results"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

const matchThreshold = 0.6

func main() {
	cfg := config.Load()
	logger.Init(!cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		logger.LogError("config rejected", err)
		os.Exit(1)
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		logger.LogError("http server failed", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs, err := store.NewDocuments(cfg.DataDir)
	if err != nil {
		return err
	}
	logger.LogInfo("documents ready", "dir", docs.Dir())

	var (
		resultsMirror    results.Mirror
		attendanceMirror attendance.Mirror
		enrollmentMirror enrollment.Mirror
	)
	checks := map[string]handler.HealthCheck{}
	if mirror := openMirror(ctx, cfg.DatabaseURL); mirror != nil {
		resultsMirror, attendanceMirror, enrollmentMirror = mirror, mirror, mirror
		checks["db"] = mirror.Healthy
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if redisClient != nil {
		checks["redis"] = redisClient.Healthy
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	// Face service (demo identity when skipped or unset)
	var (
		matcher attendance.Matcher = attendance.DemoMatcher{}
		gallery enrollment.Gallery
	)
	if !cfg.FaceSkip && cfg.FaceServiceURL != "" {
		face := faceclient.New(cfg.FaceServiceURL, false)
		if err := face.Health(ctx); err != nil {
			logger.LogWarn("face service not available", "url", cfg.FaceServiceURL, "error", err)
		}
		matcher = attendance.RemoteMatcher{Client: face, Threshold: matchThreshold}
		gallery = face
	}

	// Cloudinary client (nil when not configured)
	var (
		captureArchiver attendance.Archiver
		photoArchiver   enrollment.Archiver
	)
	if cfg.CloudinaryEnabled() {
		cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		captureArchiver, photoArchiver = cdn, cdn
		logger.LogInfo("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		logger.LogInfo("cloudinary not configured, images stay local")
	}

	att := attendance.NewService(docs, cfg.UploadsDir, matcher, q, attendanceMirror)
	if cfg.QueueBackend == "memory" {
		go func() {
			if err := attendance.NewWorker(att, captureArchiver).Run(ctx, q); err != nil {
				logger.LogError("capture worker stopped", err)
			}
		}()
	}

	renderer, err := report.NewRenderer(report.WKHTMLToPDF{Path: cfg.WKHTMLToPDFPath})
	if err != nil {
		return err
	}
	admin, err := auth.NewCredentials(cfg.AdminUser, cfg.AdminPass)
	if err != nil {
		return err
	}

	h := handler.New(handler.Deps{
		Results:    results.NewService(docs, resultsMirror),
		Attendance: att,
		Enrollment: enrollment.NewService(docs, cfg.UploadsDir, photoArchiver, gallery, enrollmentMirror),
		Reports:    renderer,
		Issuer:     auth.NewIssuer(cfg.SecretKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL),
		Admin:      admin,
		Checks:     checks,
	})

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20

	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(metrics.GinMiddleware())
	r.Use(httpmiddleware.NewClientLimiter(cfg.RateLimitPerMin, 0).Middleware("/healthz", "/metrics"))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	h.Register(r)

	r.Static("/uploads", cfg.UploadsDir)
	serveWeb(r, cfg.WebDir)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogInfo("starting server", "port", cfg.HTTPPort, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.LogInfo("shutting down server")
	cancel()

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.LogError("server forced shutdown", err)
	}
	logger.LogInfo("server exited")
	return nil
}

// openMirror connects the relational mirror, or returns nil when it is not
// configured or unreachable. The JSON documents stay authoritative either way.
func openMirror(ctx context.Context, url string) *store.Mirror {
	if url == "" {
		return nil
	}
	db, err := store.NewDB(url)
	if err != nil {
		logger.LogWarn("database not reachable, mirror disabled", "error", err)
		return nil
	}
	mirror, err := store.NewMirror(ctx, db)
	if err != nil {
		logger.LogWarn("mirror migration failed, mirror disabled", "error", err)
		_ = db.Close()
		return nil
	}
	logger.LogInfo("relational mirror enabled", "dialect", db.Dialect)
	return mirror
}

// serveWeb mounts the static pages that exist under dir.
func serveWeb(r *gin.Engine, dir string) {
	if dir == "" {
		return
	}
	pages := map[string]string{
		"/":          "index.html",
		"/dashboard": "dashboard.html",
	}
	for route, file := range pages {
		path := filepath.Join(dir, file)
		if _, err := os.Stat(path); err == nil {
			r.StaticFile(route, path)
		}
	}
	if info, err := os.Stat(filepath.Join(dir, "static")); err == nil && info.IsDir() {
		r.Static("/static", filepath.Join(dir, "static"))
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
