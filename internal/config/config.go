// Package config loads and persists the house-market client configuration,
// including the session credential.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerURL = "http://localhost:8080"
	dotEnvFile       = ".env"
)

// Config holds client configuration persisted to disk.
type Config struct {
	ServerURL      string `yaml:"server_url,omitempty"`
	SocketURL      string `yaml:"socket_url,omitempty"`
	RecommendURL   string `yaml:"recommend_url,omitempty"`
	Token          string `yaml:"token,omitempty"`
	AssetCloud     string `yaml:"asset_cloud,omitempty"`
	AssetPreset    string `yaml:"asset_preset,omitempty"`
	AssetAPIKey    string `yaml:"asset_api_key,omitempty"`
	AssetAPISecret string `yaml:"asset_api_secret,omitempty"`
}

// DefaultPath returns the path to the config file.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hm", "config.yaml"), nil
}

// File is a config file on disk.
type File struct {
	Path string
}

// DefaultFile returns the config file at DefaultPath.
func DefaultFile() (*File, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return &File{Path: path}, nil
}

// Load reads the config from disk.
// Returns a zero-value config if the file doesn't exist.
func (f *File) Load() (Config, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func (f *File) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// LoadToken returns the persisted credential, or "" if none.
func (f *File) LoadToken() (string, error) {
	cfg, err := f.Load()
	if err != nil {
		return "", err
	}
	return cfg.Token, nil
}

// SaveToken persists the credential, preserving the other fields.
func (f *File) SaveToken(token string) error {
	cfg, err := f.Load()
	if err != nil {
		cfg = Config{}
	}
	cfg.Token = token
	return f.Save(cfg)
}

// ClearToken removes the persisted credential.
func (f *File) ClearToken() error {
	cfg, err := f.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Token == "" {
		return nil
	}
	cfg.Token = ""
	return f.Save(cfg)
}

// Resolve returns the effective configuration: the file, overridden by
// environment variables (a .env file in the working directory is loaded
// first), with defaults filled in.
func (f *File) Resolve() Config {
	// A missing .env is normal; variables already set win over it.
	_ = godotenv.Load(dotEnvFile)

	cfg, err := f.Load()
	if err != nil {
		cfg = Config{}
	}

	override(&cfg.ServerURL, "HM_SERVER_URL")
	override(&cfg.SocketURL, "HM_SOCKET_URL")
	override(&cfg.RecommendURL, "HM_RECOMMEND_URL")
	override(&cfg.AssetCloud, "HM_ASSET_CLOUD")
	override(&cfg.AssetPreset, "HM_ASSET_PRESET")
	override(&cfg.AssetAPIKey, "HM_ASSET_API_KEY")
	override(&cfg.AssetAPISecret, "HM_ASSET_API_SECRET")

	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.SocketURL == "" {
		cfg.SocketURL = SocketURLFor(cfg.ServerURL)
	}
	return cfg
}

// SocketURLFor derives the push-channel URL from the REST server URL.
func SocketURLFor(serverURL string) string {
	base := strings.TrimRight(serverURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/socket"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/socket"
	}
	return base + "/socket"
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
