// Package config loads flatsql settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables, e.g. FLATSQL_DATA_DIR -> data_dir
const EnvPrefix = "FLATSQL_"

// Defaults
const (
	DefaultDataDir   = "data"
	DefaultDelimiter = "-_-"
	DefaultCaptcha   = "cJa3Ar4ERa"
	DefaultAddr      = "127.0.0.1:4444"
	DefaultIssuer    = "flatsql"
	DefaultTokenTTL  = time.Hour
)

// configFiles are searched in the working directory when no file is given
var configFiles = []string{"flatsql.yaml", "flatsql.yml"}

type Config struct {
	DataDir   string       `koanf:"data_dir"`
	Delimiter string       `koanf:"delimiter"`
	Captcha   string       `koanf:"captcha"`
	Log       LogConfig    `koanf:"log"`
	Server    ServerConfig `koanf:"server"`

	// File is the config file that was read, empty when none was found
	File string `koanf:"-"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text or json
	SeqURL string `koanf:"seq_url"`
	Source bool   `koanf:"source"`
}

type ServerConfig struct {
	Addr      string        `koanf:"addr"`
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Issuer    string        `koanf:"issuer"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"data_dir":          DefaultDataDir,
		"delimiter":         DefaultDelimiter,
		"captcha":           DefaultCaptcha,
		"log.level":         "info",
		"log.format":        "text",
		"log.seq_url":       "",
		"log.source":        false,
		"server.addr":       DefaultAddr,
		"server.jwt_secret": "",
		"server.token_ttl":  DefaultTokenTTL.String(),
		"server.issuer":     DefaultIssuer,
	}
}

// Load reads configuration. cfgFile may be empty, in which case flatsql.yaml
// or flatsql.yml in the working directory is used if present. Only flags the
// user actually set override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: FLATSQL_SERVER_JWT_SECRET -> server.jwt_secret
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return keyFor(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags: --log-level -> log.level
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return keyFor(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// keyFor maps an environment variable suffix or flag name onto a config key
func keyFor(name string) string {
	key := strings.ToLower(strings.ReplaceAll(name, "-", "_"))
	for _, section := range []string{"log", "server"} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Validate checks values that would otherwise fail later and less clearly
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Delimiter == "" {
		return fmt.Errorf("delimiter must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q (want text or json)", c.Log.Format)
	}
	if c.Server.TokenTTL < 0 {
		return fmt.Errorf("server.token_ttl must not be negative")
	}
	return nil
}
