package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment (and a .env file, if present).
type Config struct {
	Token       string        `envconfig:"BOX_TOKEN" required:"true"`
	UploadURL   string        `envconfig:"BOX_UPLOAD_URL" default:"https://upload.box.com/api/2.0"`
	Concurrency int           `envconfig:"CHUNKUP_CONCURRENCY" default:"4"`
	Timeout     time.Duration `envconfig:"CHUNKUP_TIMEOUT" default:"5m"`
	MaxAttempts int           `envconfig:"CHUNKUP_MAX_ATTEMPTS" default:"3"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`

	Minio MinioConfig
	AWS   AWSConfig
}

type MinioConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"true"`
}

type AWSConfig struct {
	Region string `envconfig:"AWS_REGION"`
}

// LoadConfig processes the environment into a Config.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level maps LOG_LEVEL onto a slog level.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Location is a parsed source argument.
type Location struct {
	Scheme string
	Bucket string
	Key    string
	Path   string
}

// ParseLocation accepts a local path, s3://bucket/key or minio://bucket/key.
func ParseLocation(arg string) (Location, error) {
	for _, scheme := range []string{"s3", "minio"} {
		prefix := scheme + "://"
		if !strings.HasPrefix(arg, prefix) {
			continue
		}
		bucket, key, ok := strings.Cut(strings.TrimPrefix(arg, prefix), "/")
		if !ok || bucket == "" || key == "" {
			return Location{}, fmt.Errorf("invalid %s location %q: want %sbucket/key", scheme, arg, prefix)
		}
		return Location{Scheme: scheme, Bucket: bucket, Key: key}, nil
	}
	if arg == "" {
		return Location{}, fmt.Errorf("empty source path")
	}
	return Location{Scheme: "file", Path: arg}, nil
}
