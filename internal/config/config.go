package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/sachintanwar1/College-Management-System/internal/logger"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string `validate:"required"`
	HTTPPort string `validate:"required,numeric"`

	DataDir    string `validate:"required"`
	UploadsDir string `validate:"required"`
	WebDir     string

	SecretKey  string        `validate:"required"`
	JWTIssuer  string        `validate:"required"`
	AccessTTL  time.Duration `validate:"gt=0"`
	RefreshTTL time.Duration `validate:"gtfield=AccessTTL"`
	AdminUser  string        `validate:"required"`
	AdminPass  string        `validate:"required"`

	WKHTMLToPDFPath string

	DatabaseURL  string
	RedisAddr    string
	QueueBackend string `validate:"oneof=memory redis"`

	FaceServiceURL string `validate:"omitempty,url"`
	FaceSkip       bool

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	RateLimitPerMin int `validate:"gt=0"`
	MaxUploadMB     int `validate:"gt=0"`
}

// Load returns application config populated from environment variables with development defaults.
// A .env file in the working directory is read first when present.
func Load() App {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			logger.LogWarn("could not load .env file", "error", err)
		}
	}

	dataDir := getEnv("DATA_DIR", "data")
	uploadsDir := getEnv("UPLOADS_DIR", filepath.Join("static", "uploads"))

	return App{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPPort:            getEnv("HTTP_PORT", "5000"),
		DataDir:             dataDir,
		UploadsDir:          uploadsDir,
		WebDir:              getEnv("WEB_DIR", "web"),
		SecretKey:           getEnv("SECRET_KEY", "dev-secret-key"),
		JWTIssuer:           getEnv("JWT_ISSUER", "college-records"),
		AccessTTL:           durationEnv("ACCESS_TTL", 8*time.Hour),
		RefreshTTL:          durationEnv("REFRESH_TTL", 7*24*time.Hour),
		AdminUser:           getEnv("ADMIN_USER", "admin"),
		AdminPass:           getEnv("ADMIN_PASS", "admin"),
		WKHTMLToPDFPath:     getEnv("WKHTMLTOPDF_PATH", "/usr/bin/wkhtmltopdf"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		QueueBackend:        getEnv("QUEUE_BACKEND", "memory"),
		FaceServiceURL:      getEnv("FACE_SERVICE_URL", ""),
		FaceSkip:            boolEnv("FACE_SKIP", true),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "college-records"),
		RateLimitPerMin:     intEnv("RATE_LIMIT_PER_MIN", 120),
		MaxUploadMB:         intEnv("MAX_UPLOAD_MB", 16),
	}
}

// Validate checks the loaded values and the cross-field rules the validator cannot express.
func (a App) Validate() error {
	if err := validator.New().Struct(a); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if a.QueueBackend == "redis" && a.RedisAddr == "" {
		return errors.New("invalid config: QUEUE_BACKEND=redis requires REDIS_ADDR")
	}
	return nil
}

// IsProduction reports whether gin should run in release mode.
func (a App) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// CloudinaryEnabled reports whether all Cloudinary credentials are present.
func (a App) CloudinaryEnabled() bool {
	return a.CloudinaryCloudName != "" && a.CloudinaryAPIKey != "" && a.CloudinaryAPISecret != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			logger.LogWarn("invalid duration, using fallback", "key", key, "error", err, "fallback", fallback.String())
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		logger.LogWarn("invalid bool, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		logger.LogWarn("invalid int, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}
