// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config holds the file, environment, and default
// configuration for the flex service and CLI.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use human-readable
// values like "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete configuration tree.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Build     BuildConfig     `yaml:"build"`
	Network   NetworkConfig   `yaml:"network"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr" validate:"required"`

	// ReadTimeout bounds request reads.
	ReadTimeout Duration `yaml:"read_timeout" validate:"gte=0"`

	// WriteTimeout bounds response writes.
	WriteTimeout Duration `yaml:"write_timeout" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// StorageConfig configures the embedded standard store.
type StorageConfig struct {
	// Dir is the BadgerDB directory. Required unless InMemory.
	Dir string `yaml:"dir"`

	// InMemory runs the store without persistence.
	InMemory bool `yaml:"in_memory"`

	// CacheDir is the CSV file cache used by CLI runs.
	CacheDir string `yaml:"cache_dir"`
}

// BuildConfig carries default build parameters.
type BuildConfig struct {
	// MinOverlap is the default shared-entity threshold.
	MinOverlap int `yaml:"min_overlap" validate:"gte=1"`

	// Workers is the default worker count. 0 selects the builder's
	// own default.
	Workers int `yaml:"workers" validate:"gte=0,lte=64"`
}

// NetworkConfig configures network imports.
type NetworkConfig struct {
	// URL is the default network source.
	URL string `yaml:"url" validate:"omitempty,url"`

	// TopK is the default binarization cutoff. 0 means unset.
	TopK int `yaml:"top_k" validate:"gte=0"`

	// RateLimit caps outbound fetches per second.
	RateLimit float64 `yaml:"rate_limit" validate:"gt=0"`

	// Retries is the fetch attempt budget per URL.
	Retries int `yaml:"retries" validate:"gte=1"`

	// CacheDir stores downloaded network payloads.
	CacheDir string `yaml:"cache_dir"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	// Enabled switches telemetry on.
	Enabled bool `yaml:"enabled"`

	// ServiceName labels exported telemetry.
	ServiceName string `yaml:"service_name" validate:"required"`

	// TraceExporter selects the span exporter.
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=stdout otlp none"`

	// MetricExporter selects the metric exporter.
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`

	// OTLPEndpoint is the collector address for the otlp exporters.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// SampleRatio is the trace sampling ratio.
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// JSON selects JSON output instead of text.
	JSON bool `yaml:"json"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			Dir:      "data/standards",
			CacheDir: "data/cache",
		},
		Build: BuildConfig{
			MinOverlap: 1,
		},
		Network: NetworkConfig{
			TopK:      0,
			RateLimit: 2,
			Retries:   3,
			CacheDir:  "data/networks",
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			ServiceName:    "flex",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
