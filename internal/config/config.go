package config

import "fmt"

// Config holds all aether configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Data      DataConfig      `toml:"data"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type RetrievalConfig struct {
	OllamaURL      string `toml:"ollama_url"`
	EmbeddingModel string `toml:"embedding_model"` // e.g. "nomic-embed-text"
	Disabled       bool   `toml:"disabled"`        // force keyword retrieval
}

// DataConfig points at the JSON seed files imported on startup.
type DataConfig struct {
	IngredientsPath string `toml:"ingredients_path"`
	RulesPath       string `toml:"rules_path"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8713,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Retrieval: RetrievalConfig{
			OllamaURL:      "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
