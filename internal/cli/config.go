package cli

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/chemlayout/internal/server"
	"github.com/matzehuels/chemlayout/pkg/templates"
)

// Cache backends accepted in [cache] backend.
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendNone  = "none"
)

// Config is the TOML config file. Every section is optional; command-line
// flags override the values read here.
//
//	catalog = "/etc/chemlayout/cages.toml"
//
//	[pipeline]
//	bond_length = 1.5
//	formats = ["svg", "png"]
//	scale = 30
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	scope = "staging:"
//
//	[server]
//	addr = ":9000"
type Config struct {
	// Catalog replaces the built-in cage template catalog.
	Catalog string `toml:"catalog"`

	Pipeline PipelineConfig `toml:"pipeline"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
}

// PipelineConfig holds the layout and render defaults.
type PipelineConfig struct {
	InputFormat         string   `toml:"input_format"`
	BondLength          float64  `toml:"bond_length"`
	MaxCollisionPasses  int      `toml:"max_collision_passes"`
	MaxRefineIterations int      `toml:"max_refine_iterations"`
	Formats             []string `toml:"formats"`
	Scale               float64  `toml:"scale"`
	ShowCarbons         bool     `toml:"show_carbons"`
	ShowIndices         bool     `toml:"show_indices"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	// Backend is "file" (default), "redis" or "none".
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	// Scope prefixes every cache key.
	Scope string `toml:"scope"`
}

// ServerConfig configures `chemlayout serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		Cache:  CacheConfig{Backend: backendFile},
		Server: ServerConfig{Addr: server.DefaultAddr},
	}
}

// LoadConfig reads the config file at path on top of DefaultConfig. A
// missing file is only an error when explicit is set. Unknown keys are
// rejected so typos do not go unnoticed.
func LoadConfig(path string, explicit bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) && !explicit {
			return DefaultConfig(), nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case backendFile, backendNone:
	case backendRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache: redis backend needs redis_url")
		}
	default:
		return fmt.Errorf("cache: unknown backend %q (want file, redis or none)", c.Cache.Backend)
	}
	return nil
}

// Templates loads the configured catalog, or returns nil for the built-in
// one. A corrupt catalog is fatal.
func (c Config) Templates() (*templates.Library, error) {
	if c.Catalog == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Catalog)
	if err != nil {
		return nil, fmt.Errorf("read template catalog: %w", err)
	}
	return templates.Load(data)
}
