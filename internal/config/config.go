package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Model services
	ClassifierURL string `yaml:"classifier_url"`
	RelevanceURL  string `yaml:"relevance_url"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Segmentation
	SegmentSentences bool `yaml:"segment_sentences"`

	// Run persistence
	DBPath string `yaml:"db_path"`
}

// Load builds the configuration from the environment. When
// DATASTET_CONFIG points at a YAML file, its values are read first and
// environment variables override them.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("DATASTET_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DATASTET_API_KEY", cfg.APIKey)
	cfg.ClassifierURL = envOr("CLASSIFIER_URL", cfg.ClassifierURL)
	cfg.RelevanceURL = envOr("RELEVANCE_URL", cfg.RelevanceURL)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.SegmentSentences = envBool("SEGMENT_SENTENCES", cfg.SegmentSentences)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		Port:             "8090",
		ClassifierURL:    "http://localhost:8080",
		RelevanceURL:     "http://localhost:8081",
		WorkerCount:      4,
		MaxQueueSize:     100,
		MaxUploadBytes:   52428800, // 50MB
		JobTTL:           1 * time.Hour,
		SegmentSentences: true,
		DBPath:           "datastet.db",
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DATASTET_API_KEY is required")
	}
	if c.ClassifierURL == "" {
		return fmt.Errorf("CLASSIFIER_URL is required")
	}
	if c.RelevanceURL == "" {
		return fmt.Errorf("RELEVANCE_URL is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
