package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration
type Config struct {
	API     APIConfig     `toml:"api"`
	CEP     CEPConfig     `toml:"cep"`
	Backups BackupsConfig `toml:"backups"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
}

// APIConfig points the client at the contacts service
type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// CEPConfig selects the postal code lookup provider
type CEPConfig struct {
	Provider string   `toml:"provider"`
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
}

// BackupsConfig holds export/import settings
type BackupsConfig struct {
	Dir string `toml:"dir"`
}

// LogConfig holds logging settings. An empty File logs to stderr.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ServerConfig holds settings of the companion service
type ServerConfig struct {
	Addr     string `toml:"addr"`
	Database string `toml:"database"`
}

// Duration is a time.Duration written as "10s" in the config file
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText formats the duration as a Go duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api/contatos",
			Timeout: Duration{10 * time.Second},
		},
		CEP: CEPConfig{
			Provider: "viacep",
			Endpoint: "https://viacep.com.br/ws",
			Timeout:  Duration{10 * time.Second},
		},
		Backups: BackupsConfig{
			Dir: filepath.Join(homeDir, "Documents", "AgendaContatos", "backups"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".config", "agenda-contatos", "agenda.log"),
		},
		Server: ServerConfig{
			Addr:     ":8080",
			Database: filepath.Join(homeDir, ".config", "agenda-contatos", "agenda.db"),
		},
	}
}

// Dir returns the standard configuration directory
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(homeDir, ".config", "agenda-contatos"), nil
}

// Path returns the standard configuration file path
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads configuration from the standard location
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads configuration from a specific path
func LoadFrom(configPath string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Backups.Dir = expandPath(cfg.Backups.Dir)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Server.Database = expandPath(cfg.Server.Database)

	return cfg, nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves the configuration to the standard location
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}
