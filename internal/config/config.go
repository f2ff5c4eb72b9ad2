// Package config provides configuration loading and structs for the miwake server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Extract  ExtractConfig  `yaml:"extract"`
	Classify ClassifyConfig `yaml:"classify"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig holds paths for the embedding store and the classification
// history database. HistoryPath empty disables the history log.
type StoreConfig struct {
	Path        string `yaml:"path"`
	HistoryPath string `yaml:"history_path"`
}

// ExtractConfig holds the extraction methods and the method used when a
// request does not name one.
type ExtractConfig struct {
	DefaultMethod string         `yaml:"default_method"`
	Methods       []MethodConfig `yaml:"methods"`
}

// MethodConfig describes one extraction method: the ONNX model file, its
// output dimensionality, and the square input side it expects.
type MethodConfig struct {
	Name       string `yaml:"name"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	ImageSize  int    `yaml:"image_size"`
}

// ClassifyConfig holds classification policy settings. The recommended
// threshold is reported to callers via /status, never enforced by the
// engine.
type ClassifyConfig struct {
	RecommendedThreshold float64 `yaml:"recommended_threshold"`
}

// IngestConfig holds offline ingestion settings.
type IngestConfig struct {
	ImageRoot  string   `yaml:"image_root"`
	Extensions []string `yaml:"extensions"`
	Strict     bool     `yaml:"strict"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Store.Path = expandPath(cfg.Store.Path, configDir)
	if cfg.Store.HistoryPath != "" {
		cfg.Store.HistoryPath = expandPath(cfg.Store.HistoryPath, configDir)
	}
	if cfg.Ingest.ImageRoot != "" {
		cfg.Ingest.ImageRoot = expandPath(cfg.Ingest.ImageRoot, configDir)
	}
	for i := range cfg.Extract.Methods {
		cfg.Extract.Methods[i].ModelPath = expandPath(cfg.Extract.Methods[i].ModelPath, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
