// Package config gathers every recognized option (spec §6) into one
// immutable, process-wide Config constructed at startup, mirroring the
// teacher's internal/application/config.go pattern of one struct per concern
// loaded from YAML via gopkg.in/yaml.v3, with defaults applied after
// unmarshal. Deep components receive Config explicitly; they never read
// environment variables themselves (design note §9).
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// ToleranceOverride is a per-metric cross-validation tolerance override.
type ToleranceOverride struct {
	Abs float64 `yaml:"abs"`
	Pct float64 `yaml:"pct"`
}

// ReconciliationConfig holds the Reconciler's composite tolerance (spec §4.E).
type ReconciliationConfig struct {
	AbsoluteMassT    float64 `yaml:"absolute_mass_t"`
	AbsoluteVolumeSm3 float64 `yaml:"absolute_volume_sm3"`
	RelativePct      float64 `yaml:"relative_pct"`
}

// CrossValidationConfig holds the cross-validation tolerance table and
// escalation threshold read from YAML (spec §4.F). Neither is passed to the
// Cross-validator, which uses its built-in per-metric tolerances and
// domain.EscalationDays.
type CrossValidationConfig struct {
	Tolerances     map[string]ToleranceOverride `yaml:"tolerances"`
	EscalationDays int                          `yaml:"escalation_days"`
}

// Config is the immutable, process-wide configuration (spec §6).
type Config struct {
	Workers             int    `yaml:"workers"`
	ParseTimeoutSeconds int    `yaml:"parse_timeout_seconds"`
	Reconciliation      ReconciliationConfig  `yaml:"reconciliation"`
	CrossValidation     CrossValidationConfig `yaml:"cross_validation"`
	DatabasePath        string `yaml:"database_path"`
	UploadFolder        string `yaml:"upload_folder"`
	ExportFolder        string `yaml:"export_folder"`
	ForceReparse        bool   `yaml:"force_reparse"`
	RedisAddr           string `yaml:"redis_addr"`
}

// ParseTimeout returns ParseTimeoutSeconds as a time.Duration.
func (c *Config) ParseTimeout() time.Duration {
	return time.Duration(c.ParseTimeoutSeconds) * time.Second
}

// Default returns the recognized defaults of spec §6.
func Default() Config {
	return Config{
		Workers:             runtime.NumCPU(),
		ParseTimeoutSeconds: 300,
		Reconciliation: ReconciliationConfig{
			AbsoluteMassT:     0.5,
			AbsoluteVolumeSm3: 1.0,
			RelativePct:       0.5,
		},
		CrossValidation: CrossValidationConfig{
			Tolerances:     map[string]ToleranceOverride{},
			EscalationDays: 10,
		},
		DatabasePath: "sgmfm.db",
		UploadFolder: "uploads",
		ExportFolder: "exports",
	}
}

// Load reads a YAML file at path and overlays it on Default(). A missing
// workers/escalation_days/timeout value keeps its default rather than
// zeroing out, matching the teacher's "set defaults if not provided" style
// (src/infrastructure/data/reconcile.go NewReconciler).
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.ParseTimeoutSeconds <= 0 {
		cfg.ParseTimeoutSeconds = 300
	}
	if cfg.Reconciliation.AbsoluteMassT <= 0 {
		cfg.Reconciliation.AbsoluteMassT = 0.5
	}
	if cfg.Reconciliation.AbsoluteVolumeSm3 <= 0 {
		cfg.Reconciliation.AbsoluteVolumeSm3 = 1.0
	}
	if cfg.Reconciliation.RelativePct <= 0 {
		cfg.Reconciliation.RelativePct = 0.5
	}
	if cfg.CrossValidation.EscalationDays <= 0 {
		cfg.CrossValidation.EscalationDays = 10
	}
	if cfg.CrossValidation.Tolerances == nil {
		cfg.CrossValidation.Tolerances = map[string]ToleranceOverride{}
	}
	return cfg, nil
}
