// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is the shared validator instance for config trees.
var validate = validator.New()

// Load builds the effective configuration: defaults, then the YAML
// file at path (skipped when path is empty or the file is absent),
// then FLEX_* environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the tree against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.Storage.InMemory && c.Storage.Dir == "" {
		return fmt.Errorf("invalid configuration: storage.dir is required unless storage.in_memory is set")
	}
	return nil
}

// applyEnv overrides fields from FLEX_* environment variables.
func applyEnv(cfg *Config) error {
	envString("FLEX_ADDR", &cfg.Server.Addr)
	envString("FLEX_STORAGE_DIR", &cfg.Storage.Dir)
	envString("FLEX_STORAGE_CACHE_DIR", &cfg.Storage.CacheDir)
	envString("FLEX_NETWORK_URL", &cfg.Network.URL)
	envString("FLEX_NETWORK_CACHE_DIR", &cfg.Network.CacheDir)
	envString("FLEX_TELEMETRY_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	envString("FLEX_TELEMETRY_TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)
	envString("FLEX_TELEMETRY_METRIC_EXPORTER", &cfg.Telemetry.MetricExporter)
	envString("FLEX_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	envString("FLEX_LOG_LEVEL", &cfg.Logging.Level)

	if err := envBool("FLEX_STORAGE_IN_MEMORY", &cfg.Storage.InMemory); err != nil {
		return err
	}
	if err := envBool("FLEX_TELEMETRY_ENABLED", &cfg.Telemetry.Enabled); err != nil {
		return err
	}
	if err := envBool("FLEX_LOG_JSON", &cfg.Logging.JSON); err != nil {
		return err
	}
	if err := envInt("FLEX_BUILD_MIN_OVERLAP", &cfg.Build.MinOverlap); err != nil {
		return err
	}
	if err := envInt("FLEX_BUILD_WORKERS", &cfg.Build.Workers); err != nil {
		return err
	}
	if err := envInt("FLEX_NETWORK_TOP_K", &cfg.Network.TopK); err != nil {
		return err
	}
	if err := envDuration("FLEX_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

func envDuration(key string, dst *Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	*dst = Duration(parsed)
	return nil
}
