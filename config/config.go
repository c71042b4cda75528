package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server needs.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	PublicURL    string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
	UploadURLTTL      time.Duration

	AWSRegion         string
	JobQueueURL       string
	JobResultQueueURL string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	CORSAllowedOrigins  []string
	NotificationWorkers int
}

// Load reads the configuration from environment variables.
// A .env file is loaded first when present (handy for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		PublicURL:         getEnvOrDefault("PUBLIC_URL", "http://localhost:8080"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		AWSRegion:         getEnvOrDefault("AWS_REGION", "eu-central-1"),
		JobQueueURL:       os.Getenv("JOB_QUEUE_URL"),
		JobResultQueueURL: os.Getenv("JOB_RESULT_QUEUE_URL"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
	}

	required := map[string]*string{
		"DATABASE_URL":   &cfg.DatabaseURL,
		"JWT_SECRET_KEY": &cfg.JWTSecretKey,
	}
	for name, dst := range required {
		v := os.Getenv(name)
		if v == "" {
			return nil, fmt.Errorf("%s environment variable is not set", name)
		}
		*dst = v
	}
	if cfg.JobQueueURL == "" {
		return nil, fmt.Errorf("JOB_QUEUE_URL environment variable is not set")
	}

	port, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	smtpPort, err := getIntEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTPPort = smtpPort

	ttl, err := getIntEnv("UPLOAD_URL_TTL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("UPLOAD_URL_TTL_MINUTES must be positive, got %d", ttl)
	}
	cfg.UploadURLTTL = time.Duration(ttl) * time.Minute

	workers, err := getIntEnv("NOTIFICATION_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}
	cfg.NotificationWorkers = workers

	cfg.CORSAllowedOrigins = splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
