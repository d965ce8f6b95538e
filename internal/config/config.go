// Package config loads the dispatch-core's cache and classifier knobs
// from a YAML file, supplemented in SPEC_FULL.md because spec.md §4.D
// and §4.K name the knobs without saying how they are supplied.
//
// Grounded on the teacher's internal/manifest/schema.go, whose
// ailang.manifest/v1 gives every persisted document a named, versioned
// schema; this package carries the same schema-versioning convention
// but loads YAML (via gopkg.in/yaml.v3, the teacher's config-loading
// library of choice) rather than emitting a JSON schema document.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/janus-lang/janus-sub003/internal/buildcache"
	"github.com/janus-lang/janus-sub003/internal/classify"
)

// SchemaVersion tags the config document, mirroring the teacher's
// manifest.SchemaVersion convention.
const SchemaVersion = "janus.dispatch.config/v1"

// ClassifierConfig mirrors classify.Config in YAML-friendly form.
type ClassifierConfig struct {
	MaxStaticCost    int `yaml:"max_static_cost"`
	WarningThreshold int `yaml:"warning_threshold"`
	MaxDynamicCost   int `yaml:"max_dynamic_cost"`
}

// CacheConfig mirrors buildcache.Config in YAML-friendly form.
type CacheConfig struct {
	CacheDir                 string `yaml:"cache_dir"`
	MaxCacheSizeBytes        int64  `yaml:"max_cache_size_bytes"`
	MaxCacheAgeSeconds       int64  `yaml:"max_cache_age_seconds"`
	EnableCompression        bool   `yaml:"enable_compression"`
	EnableIncrementalUpdates bool   `yaml:"enable_incremental_updates"`
	CleanupIntervalSeconds   int64  `yaml:"cleanup_interval_seconds"`
}

// Config is the top-level document loaded from disk.
type Config struct {
	Schema     string           `yaml:"schema"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Cache      CacheConfig      `yaml:"cache"`
}

// Default returns a Config built from classify.DefaultConfig and
// buildcache.DefaultConfig.
func Default(cacheDir string) Config {
	cc := classify.DefaultConfig()
	bc := buildcache.DefaultConfig(cacheDir)
	return Config{
		Schema: SchemaVersion,
		Classifier: ClassifierConfig{
			MaxStaticCost:    cc.MaxStaticCost,
			WarningThreshold: cc.WarningThreshold,
			MaxDynamicCost:   cc.MaxDynamicCost,
		},
		Cache: CacheConfig{
			CacheDir:                 bc.CacheDir,
			MaxCacheSizeBytes:        bc.MaxCacheSizeBytes,
			MaxCacheAgeSeconds:       bc.MaxCacheAgeSeconds,
			EnableCompression:        bc.EnableCompression,
			EnableIncrementalUpdates: bc.EnableIncrementalUpdates,
			CleanupIntervalSeconds:   bc.CleanupIntervalSeconds,
		},
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Schema != "" && cfg.Schema != SchemaVersion {
		return Config{}, fmt.Errorf("unsupported config schema %q, expected %q", cfg.Schema, SchemaVersion)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ToClassifyConfig converts the loaded classifier knobs to classify.Config.
func (c Config) ToClassifyConfig() classify.Config {
	return classify.Config{
		MaxStaticCost:    c.Classifier.MaxStaticCost,
		WarningThreshold: c.Classifier.WarningThreshold,
		MaxDynamicCost:   c.Classifier.MaxDynamicCost,
	}
}

// ToBuildCacheConfig converts the loaded cache knobs to buildcache.Config.
func (c Config) ToBuildCacheConfig() buildcache.Config {
	return buildcache.Config{
		CacheDir:                 c.Cache.CacheDir,
		MaxCacheSizeBytes:        c.Cache.MaxCacheSizeBytes,
		MaxCacheAgeSeconds:       c.Cache.MaxCacheAgeSeconds,
		EnableCompression:        c.Cache.EnableCompression,
		EnableIncrementalUpdates: c.Cache.EnableIncrementalUpdates,
		CleanupIntervalSeconds:   c.Cache.CleanupIntervalSeconds,
	}
}
