package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"rcheck/internal/recognition"
	"rcheck/internal/segment"
)

// MaxWorkers bounds the worker pool.
const MaxWorkers = 16

// Config contains the program configuration
type Config struct {
	Providers   []string `yaml:"providers" toml:"providers"`
	Time        string   `yaml:"time" toml:"time"`
	OutputFile  string   `yaml:"output_file" toml:"output_file"`
	Stat        bool     `yaml:"stat" toml:"stat"`
	Color       bool     `yaml:"color" toml:"color"`
	FullInfo    bool     `yaml:"fullinfo" toml:"fullinfo"`
	Verbose     bool     `yaml:"verbose" toml:"verbose"`
	Workers     int      `yaml:"threads" toml:"threads"`
	Directory   string   `yaml:"directory" toml:"directory"`
	Extensions  []string `yaml:"extensions" toml:"extensions"`
	Recursive   bool     `yaml:"recursive" toml:"recursive"`
	TempDir     string   `yaml:"temp_dir" toml:"temp_dir"`
	HTTPTimeout int      `yaml:"http_timeout" toml:"http_timeout"` // seconds

	AcoustID AcoustIDConfig `yaml:"acoustid" toml:"acoustid"`
	ACRCloud ACRCloudConfig `yaml:"acrcloud" toml:"acrcloud"`
	AudioTag AudioTagConfig `yaml:"audiotag" toml:"audiotag"`
	AudD     AudDConfig     `yaml:"audd" toml:"audd"`
	Tools    ToolsConfig    `yaml:"tools" toml:"tools"`
}

type AcoustIDConfig struct {
	APIKey string `yaml:"api_key" toml:"api_key"`
	// MusicBrainz resolves titles for matches returned without metadata.
	MusicBrainz bool `yaml:"musicbrainz" toml:"musicbrainz"`
}

type ACRCloudConfig struct {
	Host         string `yaml:"host" toml:"host"`
	AccessKey    string `yaml:"access_key" toml:"access_key"`
	AccessSecret string `yaml:"access_secret" toml:"access_secret"`
	Timeout      int    `yaml:"timeout" toml:"timeout"` // seconds
}

type AudioTagConfig struct {
	APIKey       string `yaml:"api_key" toml:"api_key"`
	PollAttempts int    `yaml:"poll_attempts" toml:"poll_attempts"`
	PollInterval int    `yaml:"poll_interval" toml:"poll_interval"` // seconds
}

type AudDConfig struct {
	APIToken  string   `yaml:"api_token" toml:"api_token"`
	Platforms []string `yaml:"platforms" toml:"platforms"`
}

// ToolsConfig names the external binaries. Bare names are looked up in PATH.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg" toml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe" toml:"ffprobe"`
	FPCalc  string `yaml:"fpcalc" toml:"fpcalc"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Workers:     1,
		Directory:   ".",
		Extensions:  []string{".mp3"},
		HTTPTimeout: 120,
		AcoustID:    AcoustIDConfig{MusicBrainz: true},
		ACRCloud: ACRCloudConfig{
			Host:    "identify-eu-west-1.acrcloud.com",
			Timeout: 10,
		},
		AudioTag: AudioTagConfig{
			PollAttempts: 30,
			PollInterval: 2,
		},
		AudD: AudDConfig{
			Platforms: []string{"spotify", "apple_music", "youtube"},
		},
		Tools: ToolsConfig{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			FPCalc:  "fpcalc",
		},
	}
}

// LoadConfigFile loads configuration from a YAML or TOML file, chosen by
// extension. If path is empty, searches standard locations. Returns defaults
// if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.Directory = ExpandHome(cfg.Directory)
	cfg.TempDir = ExpandHome(cfg.TempDir)
	cfg.OutputFile = ExpandHome(cfg.OutputFile)

	return cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./rcheck.yaml",
		"./rcheck.yml",
		"./rcheck.toml",
		filepath.Join(home, ".config", "rcheck", "config.yaml"),
		filepath.Join(home, ".config", "rcheck", "config.toml"),
		filepath.Join(home, ".rcheck.yaml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the configuration as YAML, or TOML when path ends in .toml.
func SaveConfigFile(cfg Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "rcheck", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "rcheck", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Kinds resolves the configured provider names in order, dropping duplicates.
func (c *Config) Kinds() ([]recognition.Kind, error) {
	seen := make(map[recognition.Kind]bool)
	var kinds []recognition.Kind
	for _, name := range c.Providers {
		k, err := recognition.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Trim returns the parsed trim option. ok is false when no trimming applies.
func (c *Config) Trim() (segment.TrimSpec, bool) {
	return segment.ParseTrim(c.Time)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("you must specify at least one service: --audd, --audiotag, --acoustid, --acr")
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}

	if c.Workers < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Workers)
	}
	if c.Workers > MaxWorkers {
		return fmt.Errorf("threads cannot exceed %d (to avoid rate limiting), got %d", MaxWorkers, c.Workers)
	}

	// A time that was given but cannot be parsed is a usage error. Only a
	// trim that fails at run time falls back to the original file.
	if strings.TrimSpace(c.Time) != "" {
		if _, ok := c.Trim(); !ok {
			return fmt.Errorf("invalid time %q, use seconds (20) or a percentage (10%%)", c.Time)
		}
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions cannot be empty")
	}

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative, got %d", c.HTTPTimeout)
	}
	if c.AudioTag.PollAttempts < 0 || c.AudioTag.PollInterval < 0 {
		return fmt.Errorf("audiotag poll settings cannot be negative")
	}

	return nil
}

// HasProvider reports whether kind is among the configured providers.
func (c *Config) HasProvider(kind recognition.Kind) bool {
	kinds, err := c.Kinds()
	if err != nil {
		return false
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
