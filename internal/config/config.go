// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and ATTENDANCE_* env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreMinio    = "minio"
	StorePostgres = "postgres"
)

// Notification backends.
const (
	NotifyNone = "none"
	NotifyNATS = "nats"
	NotifyMQTT = "mqtt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// MaxRequestBytes caps JSON request bodies.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`

	// ConfidenceThreshold is the minimum 1-distance score accepted as a match.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
	// CooldownMS suppresses repeat triggers for the same identity.
	CooldownMS int `koanf:"cooldown_ms"`
	// PreventDuplicateAttendance keeps at most one event per identity per day.
	PreventDuplicateAttendance bool `koanf:"prevent_duplicate_attendance"`
	// MinCaptures is the minimum number of descriptors a registration needs.
	MinCaptures int `koanf:"min_captures"`
	// DescriptorLength is the expected embedding size; 0 disables the check.
	DescriptorLength int `koanf:"descriptor_length"`
	// Timezone names the location that defines the attendance day.
	Timezone string `koanf:"timezone"`

	// QueueSize bounds the notification queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of notification workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the remembered kiosk request ids.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreBackend selects snapshot persistence: memory, file, minio, postgres.
	StoreBackend string `koanf:"store_backend"`
	// StorePath is the directory used by the file backend.
	StorePath string `koanf:"store_path"`

	MinioEndpoint  string `koanf:"minio_endpoint"`
	MinioAccessKey string `koanf:"minio_access_key"`
	MinioSecretKey string `koanf:"minio_secret_key"`
	MinioBucket    string `koanf:"minio_bucket"`
	MinioUseSSL    bool   `koanf:"minio_use_ssl"`

	PostgresDSN string `koanf:"postgres_dsn"`

	// NotifyBackend selects where recorded events are published: none, nats, mqtt.
	NotifyBackend string `koanf:"notify_backend"`
	NATSURL       string `koanf:"nats_url"`
	NATSSubject   string `koanf:"nats_subject"`
	MQTTBroker    string `koanf:"mqtt_broker"`
	MQTTTopic     string `koanf:"mqtt_topic"`
	MQTTClientID  string `koanf:"mqtt_client_id"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "info",
		LogFormat:                  "text",
		Addr:                       ":9080",
		MaxRequestBytes:            1 << 20,
		ConfidenceThreshold:        0.6,
		CooldownMS:                 10_000,
		PreventDuplicateAttendance: true,
		MinCaptures:                1,
		DescriptorLength:           128,
		Timezone:                   "Local",
		QueueSize:                  1024,
		WorkerCount:                runtime.NumCPU(),
		DedupeSize:                 10_000,
		StoreBackend:               StoreMemory,
		StorePath:                  "data",
		MinioBucket:                "attendance",
		NotifyBackend:              NotifyNone,
		NATSURL:                    "nats://127.0.0.1:4222",
		NATSSubject:                "attendance.recorded",
		MQTTBroker:                 "tcp://127.0.0.1:1883",
		MQTTTopic:                  "attendance/recorded",
		MQTTClientID:               "attendance-kiosk",
	}
}

// Cooldown returns CooldownMS as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownMS) * time.Millisecond
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks value ranges and backend-specific requirements.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return fmt.Errorf("%w: confidence_threshold must be within [0,1]", ErrInvalidConfig)
	case c.CooldownMS < 0:
		return fmt.Errorf("%w: cooldown_ms must not be negative", ErrInvalidConfig)
	case c.MinCaptures < 1:
		return fmt.Errorf("%w: min_captures must be at least 1", ErrInvalidConfig)
	case c.DescriptorLength < 0:
		return fmt.Errorf("%w: descriptor_length must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StoreFile:
		if c.StorePath == "" {
			return fmt.Errorf("%w: store_path is required for the file backend", ErrInvalidConfig)
		}
	case StoreMinio:
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			return fmt.Errorf("%w: minio_endpoint and minio_bucket are required", ErrInvalidConfig)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	switch c.NotifyBackend {
	case NotifyNone, "":
	case NotifyNATS:
		if c.NATSURL == "" || c.NATSSubject == "" {
			return fmt.Errorf("%w: nats_url and nats_subject are required", ErrInvalidConfig)
		}
	case NotifyMQTT:
		if c.MQTTBroker == "" || c.MQTTTopic == "" {
			return fmt.Errorf("%w: mqtt_broker and mqtt_topic are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown notify_backend %q", ErrInvalidConfig, c.NotifyBackend)
	}
	return nil
}
