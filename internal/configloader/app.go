// SPDX-License-Identifier: AGPL-3.0-or-later

package configloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowd-org/ask/internal/types"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfigFileName is looked up in the working directory when no explicit
// config path is given.
const AppConfigFileName = "ask.yaml"

const (
	defaultNamespace   = "app"
	defaultSchemaDir   = "actions"
	defaultEnvFile     = ".ask.env"
	defaultLogLevel    = "warn"
	defaultSelfName    = "ask"
	defaultJournalSize = 16 << 20
)

// LoadOptions controls how the application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// Contributor is one link of the ordered schema-root chain, child before parent.
type Contributor struct {
	Name string `mapstructure:"name"`
	Root string `mapstructure:"root"`
}

// JournalConfig toggles and bounds the dispatch journal.
type JournalConfig struct {
	Enabled  bool  `mapstructure:"enabled"`
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// AppConfig is the resolved ask.yaml (plus ASK_* environment overrides).
type AppConfig struct {
	Contributors     []Contributor       `mapstructure:"contributors"`
	DefaultNamespace string              `mapstructure:"default_namespace"`
	DefaultMethod    string              `mapstructure:"default_method"`
	SelfNamespace    string              `mapstructure:"self_namespace"`
	SchemaDir        string              `mapstructure:"schema_dir"`
	LogLevel         string              `mapstructure:"log_level"`
	DataDir          string              `mapstructure:"data_dir"`
	EnvFile          string              `mapstructure:"env_file"`
	Journal          JournalConfig       `mapstructure:"journal"`
	Aliases          []types.ActionAlias `mapstructure:"aliases"`
	FallbackEvents   []string            `mapstructure:"fallback_events"`

	// BaseDir is the directory relative paths in the file are resolved against.
	BaseDir string `mapstructure:"-"`
	// File is the config file that was read, empty when defaults were used.
	File string `mapstructure:"-"`
}

// LoadAppConfig reads ask.yaml from the working directory (or the explicit
// path) and applies ASK_* environment overrides. A missing implicit file is
// not an error; a missing explicit file is.
func LoadAppConfig(options LoadOptions) (AppConfig, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		wd, err := os.Getwd()
		if err != nil {
			return AppConfig{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = wd
	}

	reader := viper.New()
	reader.SetDefault("default_namespace", defaultNamespace)
	reader.SetDefault("self_namespace", defaultSelfName)
	reader.SetDefault("schema_dir", defaultSchemaDir)
	reader.SetDefault("env_file", defaultEnvFile)
	reader.SetDefault("log_level", defaultLogLevel)
	reader.SetDefault("journal.enabled", true)
	reader.SetDefault("journal.max_bytes", defaultJournalSize)
	reader.SetEnvPrefix("ASK")
	reader.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	reader.AutomaticEnv()

	configPath := options.ExplicitFilePath
	if configPath != "" && !filepath.IsAbs(configPath) {
		configPath = filepath.Join(workingDirectory, configPath)
	}
	if configPath == "" {
		candidate := filepath.Join(workingDirectory, AppConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			configPath = candidate
		}
	}

	cfg := AppConfig{BaseDir: workingDirectory}
	if configPath != "" {
		reader.SetConfigFile(configPath)
		reader.SetConfigType("yaml")
		if err := reader.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read configuration from %s: %w", configPath, err)
		}
		cfg.File = configPath
		cfg.BaseDir = filepath.Dir(configPath)
	}
	if err := reader.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode configuration: %w", err)
	}

	aliases, err := NormaliseAliases(cfg.Aliases)
	if err != nil {
		return AppConfig{}, err
	}
	cfg.Aliases = aliases

	for i, c := range cfg.Contributors {
		name := strings.TrimSpace(c.Name)
		root := strings.TrimSpace(c.Root)
		if root == "" {
			return AppConfig{}, fmt.Errorf("contributor %q: root is required", name)
		}
		if name == "" {
			name = filepath.Base(root)
		}
		cfg.Contributors[i] = Contributor{Name: name, Root: cfg.Resolve(root)}
	}
	return cfg, nil
}

// Resolve makes p absolute relative to the config base directory.
func (c AppConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// IsFallbackEvent reports whether action may dispatch without a schema.
func (c AppConfig) IsFallbackEvent(action string) bool {
	for _, ev := range c.FallbackEvents {
		if strings.TrimSpace(ev) == action {
			return true
		}
	}
	return false
}

// LoadEnvDefaults reads the dotenv file of extra default options. A missing
// file yields no defaults.
func LoadEnvDefaults(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env defaults %s: %w", path, err)
	}
	values, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse env defaults %s: %w", path, err)
	}
	return values, nil
}
