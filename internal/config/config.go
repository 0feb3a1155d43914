package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"sugarcube-l10n/internal/chunker"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
	BackendNone     = "none"
)

type Config struct {
	DatabaseURL    string   `yaml:"database_url" toml:"database_url"`
	StoreBackend   string   `yaml:"store_backend" toml:"store_backend"`
	BoltPath       string   `yaml:"bolt_path" toml:"bolt_path"`
	Neo4jURI       string   `yaml:"neo4j_uri" toml:"neo4j_uri"`
	Neo4jUser      string   `yaml:"neo4j_user" toml:"neo4j_user"`
	Neo4jPassword  string   `yaml:"neo4j_password" toml:"neo4j_password"`
	WorkerCount    int      `yaml:"worker_count" toml:"worker_count"`
	SourceSuffix   string   `yaml:"source_suffix" toml:"source_suffix"`
	Excludes       []string `yaml:"excludes" toml:"excludes"`
	ChunkMaxLength int      `yaml:"chunk_max_length" toml:"chunk_max_length"`
	ChunkMaxLines  int      `yaml:"chunk_max_lines" toml:"chunk_max_lines"`
	LogLevel       string   `yaml:"log_level" toml:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	chunks := chunker.DefaultConfig()
	return &Config{
		DatabaseURL:    "postgres://localhost:5432/sugarcube_l10n?sslmode=disable",
		StoreBackend:   BackendBolt,
		BoltPath:       "sugarcube-l10n.db",
		Neo4jURI:       "bolt://localhost:7687",
		Neo4jUser:      "neo4j",
		Neo4jPassword:  "password",
		WorkerCount:    8,
		SourceSuffix:   ".twee",
		ChunkMaxLength: chunks.MaxLength,
		ChunkMaxLines:  chunks.MaxLines,
		LogLevel:       "info",
	}
}

// Load builds the configuration from defaults, then the optional YAML or TOML
// file at path, then .env and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, c); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.BoltPath = getEnv("BOLT_PATH", c.BoltPath)
	c.Neo4jURI = getEnv("NEO4J_URI", c.Neo4jURI)
	c.Neo4jUser = getEnv("NEO4J_USER", c.Neo4jUser)
	c.Neo4jPassword = getEnv("NEO4J_PASSWORD", c.Neo4jPassword)
	c.WorkerCount = getEnvInt("WORKER_COUNT", c.WorkerCount)
	c.SourceSuffix = getEnv("SOURCE_SUFFIX", c.SourceSuffix)
	c.Excludes = getEnvList("EXCLUDES", c.Excludes)
	c.ChunkMaxLength = getEnvInt("CHUNK_MAX_LENGTH", c.ChunkMaxLength)
	c.ChunkMaxLines = getEnvInt("CHUNK_MAX_LINES", c.ChunkMaxLines)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate rejects settings the commands cannot work with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres, BackendBolt, BackendNone:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	if c.ChunkMaxLength < 0 || c.ChunkMaxLines < 0 {
		return fmt.Errorf("chunk budgets must not be negative")
	}
	return nil
}

// Chunker returns the chunk budgets.
func (c *Config) Chunker() chunker.Config {
	return chunker.Config{MaxLength: c.ChunkMaxLength, MaxLines: c.ChunkMaxLines}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-numeric setting")
		return fallback
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var list []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
