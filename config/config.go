package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageMount StorageBackend = "mount"
)

type Config struct {
	Port            int
	DataDir         string
	StorageBackend  StorageBackend
	StoragePath     string
	MountPoint      string
	IngestDir       string
	AuthSecret      string
	AdminUser       string
	AdminPassword   string
	MaxUploadSizeMB int

	Workers      int
	PollInterval time.Duration
	LeaseTTL     time.Duration
	MaxAttempts  int

	FFmpegBin  string
	VideoCodec string
}

func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "3001"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxUploadSizeMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_SIZE_MB", "4096"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB: %w", err)
	}

	workers, err := strconv.Atoi(getEnv("TRANSCODE_WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCODE_WORKERS: %w", err)
	}
	if workers < 1 {
		return nil, fmt.Errorf("TRANSCODE_WORKERS must be at least 1")
	}

	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}

	leaseTTL, err := time.ParseDuration(getEnv("LEASE_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEASE_TTL: %w", err)
	}

	maxAttempts, err := strconv.Atoi(getEnv("MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_ATTEMPTS: %w", err)
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be at least 1")
	}

	backend := StorageBackend(getEnv("STORAGE_BACKEND", string(StorageLocal)))
	if backend != StorageLocal && backend != StorageMount {
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %q", backend)
	}

	authSecret := os.Getenv("AUTH_SECRET")
	if authSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET is required")
	}

	return &Config{
		Port:            port,
		DataDir:         getEnv("DATA_DIR", "/data"),
		StorageBackend:  backend,
		StoragePath:     getEnv("STORAGE_PATH", "/data/storage"),
		MountPoint:      getEnv("NFS_MOUNT_POINT", "/mnt/nfs"),
		IngestDir:       os.Getenv("INGEST_DIR"),
		AuthSecret:      authSecret,
		AdminUser:       getEnv("ADMIN_USER", "admin"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		MaxUploadSizeMB: maxUploadSizeMB,
		Workers:         workers,
		PollInterval:    pollInterval,
		LeaseTTL:        leaseTTL,
		MaxAttempts:     maxAttempts,
		FFmpegBin:       getEnv("FFMPEG_BIN", "ffmpeg"),
		VideoCodec:      getEnv("VIDEO_CODEC", "libx264"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
