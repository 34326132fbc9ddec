package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all runtime configuration for askdb.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Ollama    OllamaConfig    `koanf:"ollama"`
	Storage   StorageConfig   `koanf:"storage"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// Token, when non-empty, enables bearer auth on the question endpoint.
	Token string `koanf:"token"`
}

type OllamaConfig struct {
	BaseURL    string `koanf:"base_url"`
	ChatModel  string `koanf:"chat_model"`
	EmbedModel string `koanf:"embed_model"`
}

type StorageConfig struct {
	DataDir   string `koanf:"data_dir"`
	MemoryDir string `koanf:"memory_dir"`
}

type RetrievalConfig struct {
	TopK int `koanf:"top_k"`
	// HistoryLimit caps how many past interactions are loaded into the
	// pipeline context at the start of each request.
	HistoryLimit int `koanf:"history_limit"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 8181,
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			ChatModel:  "mistral-nemo",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir:   dataDir,
			MemoryDir: filepath.Join(dataDir, "memory"),
		},
		Retrieval: RetrievalConfig{
			TopK:         3,
			HistoryLimit: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "askdb")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".askdb"
	}
	return filepath.Join(home, ".askdb")
}

// Load reads configuration from an optional YAML file and ASKDB_* environment
// variables, layered over built-in defaults. Environment variables win over
// the file: ASKDB_SERVER_PORT maps to server.port, ASKDB_OLLAMA_BASE__URL to
// ollama.base_url (double underscore escapes a literal underscore in a key).
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("ASKDB_", ".", envToKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.HistoryLimit <= 0 {
		cfg.Retrieval.HistoryLimit = 5
	}
	if cfg.Storage.MemoryDir == "" {
		cfg.Storage.MemoryDir = filepath.Join(cfg.Storage.DataDir, "memory")
	}

	return cfg, nil
}

// envToKey turns ASKDB_SERVER_PORT into "server.port". A double underscore
// keeps a literal underscore: ASKDB_OLLAMA_BASE__URL -> "ollama.base_url".
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "ASKDB_"))
	const placeholder = "\x00"
	s = strings.ReplaceAll(s, "__", placeholder)
	s = strings.ReplaceAll(s, "_", ".")
	return strings.ReplaceAll(s, placeholder, "_")
}
