package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

type Config struct {
	config *viper.Viper
}

// IndexDefinition is the configuration form of an index spec.
type IndexDefinition struct {
	Name     string `mapstructure:"name" json:"name" validate:"required"`
	Builder  string `mapstructure:"builder" json:"builder" validate:"required,valid_builder"`
	Field    string `mapstructure:"field" json:"field"`
	Property string `mapstructure:"property" json:"property"`
	Sort     string `mapstructure:"sort" json:"sort" validate:"omitempty,valid_sort"`
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	setDefaults(viperConfig)
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

// LoadFile reads a single config file, bypassing the per-environment lookup.
func LoadFile(path string) (*Config, error) {
	viperConfig := viper.New()
	setDefaults(viperConfig)
	viperConfig.SetConfigFile(path)
	if err := viperConfig.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	viperConfig.AutomaticEnv()

	return &Config{config: viperConfig}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.delete_field", "__deleted__")
	v.SetDefault("store.reindex_on_write", true)
	v.SetDefault("store.report_retention", 32)
	v.SetDefault("search.cache_size", 256)
	v.SetDefault("search.concurrency", 8)
	v.SetDefault("log.level", "info")
}

// Set overrides a config key, mostly for flags and tests.
func (c *Config) Set(key string, value any) {
	c.config.Set(key, value)
}

func (c *Config) GetKeyField() string {
	keyField := c.config.GetString("KEY_FIELD")
	if len(keyField) == 0 {
		keyField = c.config.GetString("store.key_field")
	}

	return keyField
}

func (c *Config) GetDeleteField() string {
	deleteField := c.config.GetString("DELETE_FIELD")
	if len(deleteField) == 0 {
		deleteField = c.config.GetString("store.delete_field")
	}

	return deleteField
}

func (c *Config) GetLogPath() string {
	logPath := c.config.GetString("LOG_PATH")
	if len(logPath) == 0 {
		logPath = c.config.GetString("store.log_path")
	}

	return logPath
}

func (c *Config) GetReindexOnWrite() bool {
	return c.config.GetBool("store.reindex_on_write")
}

func (c *Config) GetReportRetention() int {
	return c.config.GetInt("store.report_retention")
}

func (c *Config) GetKVDBPath() string {
	kvdbPath := c.config.GetString("KVDB_PATH")
	if len(kvdbPath) == 0 {
		kvdbPath = c.config.GetString("database.kvdb_path")
	}

	return kvdbPath
}

func (c *Config) GetSearchCacheSize() int {
	return c.config.GetInt("search.cache_size")
}

func (c *Config) GetSearchConcurrency() int {
	return c.config.GetInt("search.concurrency")
}

func (c *Config) GetLogLevel() string {
	level := c.config.GetString("LOG_LEVEL")
	if len(level) == 0 {
		level = c.config.GetString("log.level")
	}

	return level
}

func (c *Config) GetIndexes() ([]IndexDefinition, error) {
	var definitions []IndexDefinition
	if err := c.config.UnmarshalKey("indexes", &definitions); err != nil {
		return nil, fmt.Errorf("failed to decode index definitions: %w", err)
	}

	return definitions, nil
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
