// Package config loads CLI configuration from defaults, an optional YAML file,
// PROMPTCATALOG_* environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/skosovsky/promptcatalog/internal/logging"
)

// Source kinds.
const (
	SourceDir  = "dir"
	SourceGit  = "git"
	SourceHTTP = "http"
)

// EnvPrefix is the prefix of environment overrides, e.g. PROMPTCATALOG_PROMPTS_DIR.
const EnvPrefix = "PROMPTCATALOG"

// Config is the resolved configuration.
type Config struct {
	PromptsDir string       `mapstructure:"prompts_dir"`
	Source     SourceConfig `mapstructure:"source"`
	Log        LogConfig    `mapstructure:"log"`
}

// SourceConfig selects where prompts are loaded from.
type SourceConfig struct {
	Kind string     `mapstructure:"kind"`
	Git  GitConfig  `mapstructure:"git"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GitConfig configures the git source.
type GitConfig struct {
	URL      string `mapstructure:"url"`
	Branch   string `mapstructure:"branch"`
	Dir      string `mapstructure:"dir"`
	Token    string `mapstructure:"token"`
	CloneDir string `mapstructure:"clone_dir"`
}

// HTTPConfig configures the HTTP source.
type HTTPConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Retries uint          `mapstructure:"retries"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"prompts-dir": "prompts_dir",
	"source":      "source.kind",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prompts_dir", "prompts")
	v.SetDefault("source.kind", SourceDir)
	v.SetDefault("source.git.url", "")
	v.SetDefault("source.git.branch", "main")
	v.SetDefault("source.git.dir", "")
	v.SetDefault("source.git.token", "")
	v.SetDefault("source.git.clone_dir", "")
	v.SetDefault("source.http.base_url", "")
	v.SetDefault("source.http.token", "")
	v.SetDefault("source.http.retries", 3)
	v.SetDefault("source.http.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load resolves the configuration. cfgFile may be empty, in which case promptcatalog.yaml is
// looked up in the working directory and $HOME/.promptcatalog; a missing file is not an error.
// Only flags the user actually set override file and environment values.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("promptcatalog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.promptcatalog")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Source.Git.Token = ResolveEnvVars(cfg.Source.Git.Token)
	cfg.Source.HTTP.Token = ResolveEnvVars(cfg.Source.HTTP.Token)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceDir:
		if strings.TrimSpace(c.PromptsDir) == "" {
			return errors.New("config: prompts_dir must not be empty")
		}
	case SourceGit:
		if strings.TrimSpace(c.Source.Git.URL) == "" {
			return errors.New("config: source.git.url is required for the git source")
		}
	case SourceHTTP:
		if strings.TrimSpace(c.Source.HTTP.BaseURL) == "" {
			return errors.New("config: source.http.base_url is required for the http source")
		}
	default:
		return fmt.Errorf("config: unknown source kind %q (want %s, %s or %s)", c.Source.Kind, SourceDir, SourceGit, SourceHTTP)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string. Unset variables expand to "".
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}
