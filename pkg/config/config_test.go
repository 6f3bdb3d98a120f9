package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "esque_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	// Arrange
	path := writeConfigFile(t, `current-context: staging
contexts:
  - name: local
    brokers:
      - localhost:9092
    schema-registry: http://localhost:8081
  - name: staging
    brokers:
      - kafka-1.staging:9092
      - kafka-2.staging:9092
    schema-registry: http://registry.staging:8081
`)

	// Act
	conf, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "staging", conf.CurrentContext)
	require.Len(t, conf.Contexts, 2)
	assert.Equal(t, "http://localhost:8081", conf.Contexts[0].SchemaRegistry)
}

func TestLoad_MissingFile(t *testing.T) {
	// Act
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	// Assert
	assert.Error(t, err)
}

func TestConfig_Context(t *testing.T) {
	conf := Config{
		CurrentContext: "local",
		Contexts: []ClusterContext{
			{Name: "local", Brokers: []string{"localhost:9092"}},
			{Name: "staging", Brokers: []string{"kafka-1:9092", "kafka-2:9092"}},
		},
	}

	t.Run("falls back to current context", func(t *testing.T) {
		ctx, err := conf.Context("")
		require.NoError(t, err)
		assert.Equal(t, "local", ctx.Name)
	})

	t.Run("resolves by name", func(t *testing.T) {
		ctx, err := conf.Context("staging")
		require.NoError(t, err)
		assert.Equal(t, "kafka-1:9092,kafka-2:9092", ctx.BootstrapServers())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := conf.Context("prod")
		assert.ErrorIs(t, err, ErrContextNotFound)
	})
}

func TestWriteSample(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "esque", "esque_config.yaml")

	// Act
	require.NoError(t, WriteSample(path))

	// Assert: the sample loads and resolves its default context.
	conf, err := Load(path)
	require.NoError(t, err)
	ctx, err := conf.Context("")
	require.NoError(t, err)
	assert.Equal(t, "local", ctx.Name)

	// A second write must not clobber the existing file.
	assert.Error(t, WriteSample(path))
}

func TestDefaultPath_EnvOverride(t *testing.T) {
	// Arrange
	t.Setenv(EnvConfigPath, "/tmp/custom/esque.yaml")

	// Act
	path, err := DefaultPath()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom/esque.yaml", path)
}
