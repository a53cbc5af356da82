// Package config loads wif configuration from defaults, an optional YAML
// file, a .env file and the environment, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = ".env"

type Config struct {
	Log       LogConfig       `mapstructure:"log" json:"log"`
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Slack     SlackConfig     `mapstructure:"slack" json:"slack"`
	GitHub    GitHubConfig    `mapstructure:"github" json:"github"`
	Provider  ProviderConfig  `mapstructure:"provider" json:"provider"`
	Store     StoreConfig     `mapstructure:"store" json:"store"`
	SDK       SDKConfig       `mapstructure:"sdk" json:"sdk"`
	Redaction RedactionConfig `mapstructure:"redaction" json:"redaction"`
	Trace     TraceConfig     `mapstructure:"trace" json:"trace"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" json:"analysis"`
	Mock      MockConfig      `mapstructure:"mock" json:"mock"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" json:"host"`
	Port            int           `mapstructure:"port" json:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	QueueSize       int           `mapstructure:"queue_size" json:"queue_size"`
}

type SlackConfig struct {
	BotToken      string `mapstructure:"bot_token" json:"bot_token"`
	SigningSecret string `mapstructure:"signing_secret" json:"signing_secret"`
}

type GitHubConfig struct {
	Command string `mapstructure:"command" json:"command"`
}

type ProviderConfig struct {
	Command string        `mapstructure:"command" json:"command"`
	Args    []string      `mapstructure:"args" json:"args"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

type SDKConfig struct {
	TablePath string `mapstructure:"table_path" json:"table_path"`
}

type RedactionConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

type TraceConfig struct {
	URLBase string `mapstructure:"url_base" json:"url_base"`
}

type AnalysisConfig struct {
	BatchSize     int `mapstructure:"batch_size" json:"batch_size"`
	MaxReleases   int `mapstructure:"max_releases" json:"max_releases"`
	MaxHigh       int `mapstructure:"max_high" json:"max_high"`
	MaxMedium     int `mapstructure:"max_medium" json:"max_medium"`
	DisplayMedium int `mapstructure:"display_medium" json:"display_medium"`
}

// MockConfig swaps the gh CLI and the provider for fixture runners.
type MockConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	GitHubDir   string `mapstructure:"gh_dir" json:"gh_dir"`
	ProviderDir string `mapstructure:"provider_dir" json:"provider_dir"`
}

// Load builds the configuration. configPath overrides ~/.wif/config.yaml;
// a missing default file is not an error.
func Load(configPath string) (Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)
	if err := readConfigFile(v, configPath); err != nil {
		return Config{}, err
	}
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.SDK.TablePath = expandHome(cfg.SDK.TablePath)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadEnvFile copies .env entries into the environment without overriding
// variables that are already set.
func loadEnvFile() {
	path := os.Getenv("WIF_ENV_FILE")
	if path == "" {
		path = envFile
	}
	envMap, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for k, val := range envMap {
		if _, exists := os.LookupEnv(k); !exists {
			_ = os.Setenv(k, val)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.queue_size", 32)

	v.SetDefault("slack.bot_token", "")
	v.SetDefault("slack.signing_secret", "")

	v.SetDefault("github.command", "gh")

	v.SetDefault("provider.command", "claude")
	v.SetDefault("provider.args", []string{})
	v.SetDefault("provider.timeout", 2*time.Minute)

	v.SetDefault("store.path", filepath.Join("~", ".wif", "wif.db"))
	v.SetDefault("sdk.table_path", "")
	v.SetDefault("redaction.enabled", true)
	v.SetDefault("trace.url_base", "")

	v.SetDefault("analysis.batch_size", 5)
	v.SetDefault("analysis.max_releases", 100)
	v.SetDefault("analysis.max_high", 3)
	v.SetDefault("analysis.max_medium", 5)
	v.SetDefault("analysis.display_medium", 3)

	v.SetDefault("mock.enabled", false)
	v.SetDefault("mock.gh_dir", filepath.Join("testdata", "gh"))
	v.SetDefault("mock.provider_dir", filepath.Join("testdata", "provider"))
}

// envAliases are accepted in addition to the WIF_ prefixed name.
var envAliases = map[string][]string{
	"slack.bot_token":      {"SLACK_BOT_TOKEN"},
	"slack.signing_secret": {"SLACK_SIGNING_SECRET"},
	"server.port":          {"PORT"},
	"mock.enabled":         {"WIF_MOCK"},
	"mock.gh_dir":          {"WIF_MOCK_DIR"},
	"mock.provider_dir":    {"WIF_PROVIDER_FIXTURES"},
}

func bindEnvs(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		names := []string{"WIF_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		names = append(names, envAliases[key]...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

func readConfigFile(v *viper.Viper, configPath string) error {
	path := configPath
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".wif", "config.yaml")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && configPath == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), strings.TrimPrefix(path, "~"))
	}
	return path
}
