package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SearchConfig holds connection details for the hosted search index.
type SearchConfig struct {
	// Kind selects the index implementation: "azure" or "memory".
	Kind       string `yaml:"kind"`
	Endpoint   string `yaml:"endpoint"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Index      string `yaml:"index"`
	APIVersion string `yaml:"api_version"`
	// PageSize is the id page size used when clearing the index.
	PageSize int `yaml:"page_size"`
}

// OpenAIConfig holds connection details for the Azure OpenAI resource
// serving both embeddings and chat completions.
type OpenAIConfig struct {
	Endpoint            string  `yaml:"endpoint"`
	APIKeyEnv           string  `yaml:"api_key_env"`
	APIVersion          string  `yaml:"api_version"`
	ChatDeployment      string  `yaml:"chat_deployment"`
	EmbeddingDeployment string  `yaml:"embedding_deployment"`
	Dimensions          int     `yaml:"dimensions"`
	TimeoutSecs         int     `yaml:"timeout_secs"`
	RequestsPerSec      float64 `yaml:"requests_per_sec"`
}

// ChunkingConfig configures the word-window chunker.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig configures query-time retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ServerConfig configures the web surface and local document staging.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	DocsDir string `yaml:"docs_dir"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Search    SearchConfig    `yaml:"search"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Server    ServerConfig    `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyConfigDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docubot/config.yaml.
// If neither exists, it writes defaults to ~/.config/docubot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyConfigDefaults(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SearchAPIKey resolves the search service key from the environment.
func (c *AppConfig) SearchAPIKey() string {
	return os.Getenv(c.Search.APIKeyEnv)
}

// OpenAIAPIKey resolves the Azure OpenAI key from the environment.
func (c *AppConfig) OpenAIAPIKey() string {
	return os.Getenv(c.OpenAI.APIKeyEnv)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docubot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Search:    SearchConfig{Kind: "azure", Index: "docubot-index"},
		Chunking:  ChunkingConfig{Size: 800, Overlap: 100},
		Retrieval: RetrievalConfig{TopK: 3},
		Server:    ServerConfig{Addr: ":8080", DocsDir: "docs"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Search.Kind == "" {
		cfg.Search.Kind = "azure"
	}
	if cfg.Search.Endpoint == "" {
		cfg.Search.Endpoint = os.Getenv("AZURE_SEARCH_ENDPOINT")
	}
	if cfg.Search.APIKeyEnv == "" {
		cfg.Search.APIKeyEnv = "AZURE_SEARCH_KEY"
	}
	if cfg.Search.Index == "" {
		cfg.Search.Index = "docubot-index"
	}
	if cfg.Search.APIVersion == "" {
		cfg.Search.APIVersion = "2023-11-01"
	}
	if cfg.Search.PageSize == 0 {
		cfg.Search.PageSize = 1000
	}
	if cfg.OpenAI.Endpoint == "" {
		cfg.OpenAI.Endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "AZURE_OPENAI_KEY"
	}
	if cfg.OpenAI.APIVersion == "" {
		cfg.OpenAI.APIVersion = "2024-02-01"
	}
	if cfg.OpenAI.ChatDeployment == "" {
		cfg.OpenAI.ChatDeployment = "gpt-4o-mini"
	}
	if cfg.OpenAI.EmbeddingDeployment == "" {
		cfg.OpenAI.EmbeddingDeployment = "text-embedding-ada-002"
	}
	if cfg.OpenAI.Dimensions == 0 {
		cfg.OpenAI.Dimensions = 1536
	}
	if cfg.OpenAI.TimeoutSecs == 0 {
		cfg.OpenAI.TimeoutSecs = 60
	}
	if cfg.Chunking.Size == 0 {
		// An explicit overlap of 0 with a custom size must survive, so
		// the overlap default only applies when size was also unset.
		cfg.Chunking.Size = 800
		if cfg.Chunking.Overlap == 0 {
			cfg.Chunking.Overlap = 100
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.DocsDir == "" {
		cfg.Server.DocsDir = "docs"
	}
}
