/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/sasinspect/pkg/codec"
)

// EnvPrefix is prepended to environment overrides, e.g. SASINSPECT_RPC_ENDPOINT
const EnvPrefix = "SASINSPECT"

// Config represents the sasinspect configuration
type Config struct {
	DataDir string  `yaml:"data_dir"`
	RPC     RPC     `yaml:"rpc"`
	Program Program `yaml:"program"`
	Server  Server  `yaml:"server"`
	AMQP    AMQP    `yaml:"amqp"`
	Decoder Decoder `yaml:"decoder"`
	Logging Logging `yaml:"logging"`
}

// RPC configures the ledger client
type RPC struct {
	Endpoint   string        `yaml:"endpoint"`
	Commitment string        `yaml:"commitment"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`

	// CacheTTL is how long a cached account is trusted; 0 never expires
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Program identifies the attestation program whose accounts are inspected
type Program struct {
	ID string `yaml:"id"`
}

// Server contains HTTP API configuration
type Server struct {
	Port   int    `yaml:"port"`
	Bind   string `yaml:"bind"`
	APIKey string `yaml:"api_key"`
}

// AMQP configures report publishing. An empty URL disables it.
type AMQP struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// Decoder contains record decoding options
type Decoder struct {
	StrictUTF8  bool `yaml:"strict_utf8"`
	Concurrency int  `yaml:"concurrency"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`

	// Format is json for production output or console for development
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		RPC: RPC{
			Endpoint:   "https://api.mainnet-beta.solana.com",
			Commitment: "confirmed",
			Timeout:    30 * time.Second,
			MaxElapsed: 2 * time.Minute,
			CacheTTL:   5 * time.Minute,
		},
		Program: Program{
			ID: "22zoJMtdu4tQc2PzL74ZUT7FrwgB1Udec8DdW4yw4BdG",
		},
		Server: Server{
			Port:   8080,
			Bind:   "127.0.0.1",
			APIKey: "auto",
		},
		AMQP: AMQP{
			Queue: "sas.reports",
		},
		Decoder: Decoder{
			Concurrency: 4,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Missing keys keep their defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./sasinspect.yaml"
	}

	// For Linux/macOS, use ~/.config/sasinspect/config.yaml
	configDir := filepath.Join(homeDir, ".config", "sasinspect")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// ApplyEnv overlays SASINSPECT_* environment variables onto config. Keys
// follow the yaml layout with dots replaced by underscores, so rpc.endpoint
// is read from SASINSPECT_RPC_ENDPOINT.
func ApplyEnv(config *Config) error {
	vp := viper.New()
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	str := func(key string, dst *string) {
		if vp.IsSet(key) {
			*dst = vp.GetString(key)
		}
	}
	str("data_dir", &config.DataDir)
	str("rpc.endpoint", &config.RPC.Endpoint)
	str("rpc.commitment", &config.RPC.Commitment)
	str("program.id", &config.Program.ID)
	str("server.bind", &config.Server.Bind)
	str("server.api_key", &config.Server.APIKey)
	str("amqp.url", &config.AMQP.URL)
	str("amqp.queue", &config.AMQP.Queue)
	str("logging.level", &config.Logging.Level)
	str("logging.format", &config.Logging.Format)

	for key, dst := range map[string]*time.Duration{
		"rpc.timeout":     &config.RPC.Timeout,
		"rpc.max_elapsed": &config.RPC.MaxElapsed,
		"rpc.cache_ttl":   &config.RPC.CacheTTL,
	} {
		if !vp.IsSet(key) {
			continue
		}
		d, err := time.ParseDuration(vp.GetString(key))
		if err != nil {
			return fmt.Errorf("invalid %s_%s: %w", EnvPrefix, envKey(key), err)
		}
		*dst = d
	}

	for key, dst := range map[string]*int{
		"server.port":         &config.Server.Port,
		"decoder.concurrency": &config.Decoder.Concurrency,
	} {
		if vp.IsSet(key) {
			*dst = vp.GetInt(key)
		}
	}

	if vp.IsSet("decoder.strict_utf8") {
		config.Decoder.StrictUTF8 = vp.GetBool("decoder.strict_utf8")
	}

	return nil
}

func envKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks the configuration for values the tool cannot run with
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	u, err := url.Parse(c.RPC.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("rpc.endpoint must be an http(s) URL: %q", c.RPC.Endpoint)
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment must be processed, confirmed or finalized: %q", c.RPC.Commitment)
	}
	if c.RPC.Timeout < 0 || c.RPC.MaxElapsed < 0 || c.RPC.CacheTTL < 0 {
		return fmt.Errorf("rpc durations must not be negative")
	}

	if _, err := codec.ParseIdentifier(c.Program.ID); err != nil {
		return fmt.Errorf("program.id: %w", err)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	if c.AMQP.URL != "" && c.AMQP.Queue == "" {
		return fmt.Errorf("amqp.queue is required when amqp.url is set")
	}

	if c.Decoder.Concurrency < 1 {
		return fmt.Errorf("decoder.concurrency must be at least 1")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}

	return nil
}
