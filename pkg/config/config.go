// Package config loads the esque multi-context configuration: named cluster
// contexts carrying broker addresses and the schema registry URL.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvConfigPath overrides the default config file location when set.
const EnvConfigPath = "ESQUE_CONFIG"

// ErrContextNotFound is returned when the requested context name is not
// present in the config file.
var ErrContextNotFound = errors.New("context not found in config")

// Config is the full esque configuration file.
type Config struct {
	CurrentContext string           `mapstructure:"current-context"`
	Contexts       []ClusterContext `mapstructure:"contexts"`
}

// ClusterContext is one named Kafka environment.
type ClusterContext struct {
	Name           string   `mapstructure:"name"`
	Brokers        []string `mapstructure:"brokers"`
	SchemaRegistry string   `mapstructure:"schema-registry"`
}

// BootstrapServers renders the broker list the way librdkafka expects it.
func (c ClusterContext) BootstrapServers() string {
	return strings.Join(c.Brokers, ",")
}

// DefaultPath returns the config file location: $ESQUE_CONFIG if set,
// otherwise <user config dir>/esque/esque_config.yaml.
func DefaultPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(base, "esque", "esque_config.yaml"), nil
}

// Load reads the configuration from path. A .env file in the working
// directory is applied first so local overrides reach viper's env binding.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ESQUE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return conf, nil
}

// Context resolves a context by name, falling back to the configured
// current-context when name is empty.
func (c Config) Context(name string) (ClusterContext, error) {
	if name == "" {
		name = c.CurrentContext
	}
	for _, ctx := range c.Contexts {
		if ctx.Name == name {
			return ctx, nil
		}
	}
	return ClusterContext{}, fmt.Errorf("%w: %q", ErrContextNotFound, name)
}

const sampleConfig = `current-context: local
contexts:
  - name: local
    brokers:
      - localhost:9092
    schema-registry: http://localhost:8081
`

// WriteSample writes the sample configuration to path, creating parent
// directories as needed. Refuses to overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	return nil
}
