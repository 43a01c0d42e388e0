package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/hupe1980/bcache"
)

// Config holds the settings shared by all commands.
type Config struct {
	// BlockSectors is the block size in 512-byte sectors.
	BlockSectors uint32 `json:"block_sectors,omitempty"`
	// CacheMemory is the slot pool budget in bytes.
	CacheMemory int64 `json:"cache_memory,omitempty"`
	// Direct opens devices with O_DIRECT.
	Direct *bool `json:"direct,omitempty"`
	// IOWorkers is the number of transfer goroutines.
	IOWorkers int `json:"io_workers,omitempty"`
	// IORate limits device writes and image output in bytes per second.
	IORate int64 `json:"io_rate,omitempty"`
	// Store is where images are read and written (directory or URL).
	Store string `json:"store,omitempty"`
	// Codec compresses dumped images.
	Codec string `json:"codec,omitempty"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"log_level,omitempty"`
	// LogFormat is text or json.
	LogFormat string `json:"log_format,omitempty"`

	// Source is the config file that was loaded, if any.
	Source string `json:"-"`
}

// ConfigFileEnv names an explicit config file.
const ConfigFileEnv = "BCACHETOOL_CONFIG"

var (
	errConfigInvalid  = errors.New("invalid config")
	errConfigNotFound = errors.New("config file not found")
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	direct := true
	return Config{
		BlockSectors: 8,
		CacheMemory:  16 << 20,
		Direct:       &direct,
		IOWorkers:    4,
		Store:        ".",
		Codec:        "lz4",
		LogLevel:     "warn",
		LogFormat:    "text",
	}
}

// UseDirect reports whether devices are opened with O_DIRECT.
func (c Config) UseDirect() bool {
	return c.Direct == nil || *c.Direct
}

// LoadConfig merges, in increasing precedence: defaults, the user config
// ($XDG_CONFIG_HOME/bcachetool/config.json or ~/.config/bcachetool/config.json),
// and the file named by path or $BCACHETOOL_CONFIG. Both files accept
// JSON with comments and trailing commas.
func LoadConfig(path string, env map[string]string) (Config, error) {
	cfg := DefaultConfig()

	if user := userConfigPath(env); user != "" {
		fileCfg, loaded, err := loadConfigFile(user, false)
		if err != nil {
			return Config{}, err
		}
		if loaded {
			cfg = mergeConfig(cfg, fileCfg)
			cfg.Source = user
		}
	}

	if path == "" {
		path = env[ConfigFileEnv]
	}
	if path != "" {
		fileCfg, _, err := loadConfigFile(path, true)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeConfig(cfg, fileCfg)
		cfg.Source = path
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func userConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "bcachetool", "config.json")
	}
	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "bcachetool", "config.json")
	}
	return ""
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", errConfigNotFound, path)
			}
			return Config{}, false, nil
		}
		return Config{}, false, err
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.BlockSectors != 0 {
		base.BlockSectors = overlay.BlockSectors
	}
	if overlay.CacheMemory != 0 {
		base.CacheMemory = overlay.CacheMemory
	}
	if overlay.Direct != nil {
		base.Direct = overlay.Direct
	}
	if overlay.IOWorkers != 0 {
		base.IOWorkers = overlay.IOWorkers
	}
	if overlay.IORate != 0 {
		base.IORate = overlay.IORate
	}
	if overlay.Store != "" {
		base.Store = overlay.Store
	}
	if overlay.Codec != "" {
		base.Codec = overlay.Codec
	}
	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}
	if overlay.LogFormat != "" {
		base.LogFormat = overlay.LogFormat
	}
	return base
}

func (c Config) validate() error {
	switch {
	case c.BlockSectors == 0:
		return fmt.Errorf("%w: block_sectors must be positive", errConfigInvalid)
	case c.BlockSectors > bcache.MaxBlockSectors:
		return fmt.Errorf("%w: block_sectors must not exceed %d", errConfigInvalid, bcache.MaxBlockSectors)
	case c.CacheMemory < 0:
		return fmt.Errorf("%w: cache_memory must not be negative", errConfigInvalid)
	case c.IOWorkers < 0:
		return fmt.Errorf("%w: io_workers must not be negative", errConfigInvalid)
	case c.IORate < 0:
		return fmt.Errorf("%w: io_rate must not be negative", errConfigInvalid)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", errConfigInvalid)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", errConfigInvalid, c.LogLevel)
	}
	return lvl, nil
}
