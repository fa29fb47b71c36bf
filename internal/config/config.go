// Package config loads application configuration from an optional YAML
// file with environment overrides for connection settings.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// StorageConfig locates local state: the document database and the
// directory backing the file store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	FilesDir     string `yaml:"files_dir"`
}

// QdrantConfig contains connection details for the vector store.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ExtractConfig configures text extraction.
type ExtractConfig struct {
	MinTextLength int `yaml:"min_text_length"`
}

// ChunkerConfig configures passage splitting.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbedderConfig configures embedding batch sizing.
type EmbedderConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// QueryConfig configures retrieval.
type QueryConfig struct {
	TopK int `yaml:"top_k"`
}

// IngestConfig configures ingestion housekeeping.
type IngestConfig struct {
	// StaleAfterMinutes is how long a document may sit in processing
	// before the reaper fails it.
	StaleAfterMinutes int `yaml:"stale_after_minutes"`

	// SweepIntervalMinutes is how often the reaper runs.
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Extract  ExtractConfig  `yaml:"extract"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Query    QueryConfig    `yaml:"query"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// Load reads the config at path. A missing file yields defaults; env vars
// QDRANT_HOST, QDRANT_PORT and PORT override the file in any case.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		// Unmarshal over the defaults struct: fields absent from the file
		// keep their defaults, fields present are taken as-is, so an
		// explicit zero (overlap: 0) is honored rather than stomped.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Storage:  StorageConfig{DatabasePath: "data/guardian.db", FilesDir: "data/files"},
		Qdrant:   QdrantConfig{Host: "localhost", Port: 6334},
		Extract:  ExtractConfig{MinTextLength: 100},
		Chunker:  ChunkerConfig{Size: 1000, Overlap: 150},
		Embedder: EmbedderConfig{BatchSize: 128},
		Query:    QueryConfig{TopK: 5},
		Ingest:   IngestConfig{StaleAfterMinutes: 15, SweepIntervalMinutes: 5},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		cfg.Qdrant.Host = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Qdrant.Port = port
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
}
