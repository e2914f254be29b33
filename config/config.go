package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis configuration
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT configuration
	JWTSecret string

	// Logging
	LogLevel  string
	LogFormat string

	AI     AIConfig
	Images ImageConfig
	SMTP   SMTPConfig
	Worker WorkerConfig

	// Storage
	S3Bucket  string
	AWSRegion string

	FrontendURL string

	// GenerationRateLimit is the number of generation requests a user may
	// make per hour. Zero disables the limiter.
	GenerationRateLimit int
}

// AIConfig selects the chat-completion provider.
type AIConfig struct {
	Provider    string
	OpenAIKey   string
	OpenAIModel string
	GroqKey     string
	GroqModel   string
	Timeout     time.Duration
}

// APIKey returns the credential of the selected provider.
func (c AIConfig) APIKey() string {
	if c.Provider == "groq" {
		return c.GroqKey
	}
	return c.OpenAIKey
}

// Model returns the model identifier of the selected provider.
func (c AIConfig) Model() string {
	if c.Provider == "groq" {
		return c.GroqModel
	}
	return c.OpenAIModel
}

// ImageConfig configures the image resolution chain.
type ImageConfig struct {
	Strategy         string
	UnsplashKey      string
	PexelsKey        string
	ReplicateToken   string
	ReplicateVersion string
	TaskDelay        time.Duration
	StaggerDelay     time.Duration
	CacheTTL         time.Duration
}

// SMTPConfig holds outbound mail settings. An empty host disables delivery.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// WorkerConfig sizes the background task pool.
type WorkerConfig struct {
	Concurrency int
	QueueSize   int
	TaskTimeout time.Duration
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := fromViper(v)
	cfg.Environment = env

	// CI injects secrets as plain environment variables
	if env != CI {
		applySecrets(cfg)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "mealplanner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("AI_PROVIDER", "openai")
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("GROQ_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("AI_TIMEOUT", "60s")
	v.SetDefault("IMAGE_STRATEGY", "stock")
	v.SetDefault("REPLICATE_MODEL_VERSION", "39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b")
	v.SetDefault("IMAGE_TASK_DELAY", "5s")
	v.SetDefault("IMAGE_STAGGER_DELAY", "0s")
	v.SetDefault("IMAGE_CACHE_TTL", "24h")
	v.SetDefault("WORKER_CONCURRENCY", 2)
	v.SetDefault("WORKER_QUEUE_SIZE", 100)
	v.SetDefault("WORKER_TASK_TIMEOUT", "10m")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("GENERATION_RATE_LIMIT", 20)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ServerPort:    v.GetString("SERVER_PORT"),
		ServerHost:    v.GetString("SERVER_HOST"),
		DBDriver:      strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBUser:        v.GetString("DB_USER"),
		DBPassword:    v.GetString("DB_PASSWORD"),
		DBName:        v.GetString("DB_NAME"),
		DBSSLMode:     v.GetString("DB_SSL_MODE"),
		RedisURL:      v.GetString("REDIS_URL"),
		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		AI: AIConfig{
			Provider:    strings.ToLower(v.GetString("AI_PROVIDER")),
			OpenAIKey:   v.GetString("OPENAI_API_KEY"),
			OpenAIModel: v.GetString("OPENAI_MODEL"),
			GroqKey:     v.GetString("GROQ_API_KEY"),
			GroqModel:   v.GetString("GROQ_MODEL"),
			Timeout:     v.GetDuration("AI_TIMEOUT"),
		},
		Images: ImageConfig{
			Strategy:         strings.ToLower(v.GetString("IMAGE_STRATEGY")),
			UnsplashKey:      v.GetString("UNSPLASH_ACCESS_KEY"),
			PexelsKey:        v.GetString("PEXELS_API_KEY"),
			ReplicateToken:   v.GetString("REPLICATE_API_TOKEN"),
			ReplicateVersion: v.GetString("REPLICATE_MODEL_VERSION"),
			TaskDelay:        v.GetDuration("IMAGE_TASK_DELAY"),
			StaggerDelay:     v.GetDuration("IMAGE_STAGGER_DELAY"),
			CacheTTL:         v.GetDuration("IMAGE_CACHE_TTL"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("EMAIL_FROM"),
			FromName: v.GetString("EMAIL_FROM_NAME"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
			QueueSize:   v.GetInt("WORKER_QUEUE_SIZE"),
			TaskTimeout: v.GetDuration("WORKER_TASK_TIMEOUT"),
		},
		S3Bucket:            v.GetString("S3_BUCKET_NAME"),
		AWSRegion:           v.GetString("AWS_REGION"),
		FrontendURL:         strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		GenerationRateLimit: v.GetInt("GENERATION_RATE_LIMIT"),
	}
}

// applySecrets overrides sensitive values with Docker secrets when present
func applySecrets(cfg *Config) {
	overrides := map[string]*string{
		"db_password":         &cfg.DBPassword,
		"jwt_secret":          &cfg.JWTSecret,
		"redis_password":      &cfg.RedisPassword,
		"redis_url":           &cfg.RedisURL,
		"database_url":        &cfg.DatabaseURL,
		"openai_api_key":      &cfg.AI.OpenAIKey,
		"groq_api_key":        &cfg.AI.GroqKey,
		"unsplash_access_key": &cfg.Images.UnsplashKey,
		"pexels_api_key":      &cfg.Images.PexelsKey,
		"replicate_api_token": &cfg.Images.ReplicateToken,
		"smtp_host":           &cfg.SMTP.Host,
		"smtp_port":           &cfg.SMTP.Port,
		"smtp_username":       &cfg.SMTP.Username,
		"smtp_password":       &cfg.SMTP.Password,
		"email_from":          &cfg.SMTP.From,
		"email_from_name":     &cfg.SMTP.FromName,
	}
	for name, target := range overrides {
		if value := readSecret(name); value != "" {
			*target = value
		}
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

// PostgresDSN builds the connection string used by the postgres driver
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
