package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadConfigFromYAML writes yaml to a temp file and loads it through Load.
func loadConfigFromYAML(t *testing.T, yaml string) (Config, error) {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(yaml), 0644)
	require.NoError(t, err)

	return Load(viper.New(), configPath)
}

// isolate points every implicit config location at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Chdir(dir)
	return dir
}

func TestDefaults_AreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_FromYAML(t *testing.T) {
	cfg, err := loadConfigFromYAML(t, `
rods: 7
overflow: saturate
transient_changes: false
output:
  format: yaml
  color: false
  steps: true
log:
  level: debug
  format: json
tracing:
  exporter: otlp
  endpoint: collector:4317
  insecure: true
watch:
  debounce: 1s
`)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Rods)
	assert.Equal(t, "saturate", cfg.Overflow)
	assert.False(t, cfg.TransientChanges)
	assert.Equal(t, OutputConfig{Format: "yaml", Color: false, Steps: true}, cfg.Output)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, TracingConfig{Exporter: "otlp", Endpoint: "collector:4317", Insecure: true}, cfg.Tracing)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := loadConfigFromYAML(t, `
rods: 5
`)
	require.NoError(t, err)

	want := Defaults()
	want.Rods = 5
	assert.Equal(t, want, cfg)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SUANPAN_RODS", "4")
	t.Setenv("SUANPAN_OUTPUT_FORMAT", "json")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Rods)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoad_LocalFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, LocalConfigName), []byte("rods: 3\n"), 0644))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Rods)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "no rods", yaml: "rods: 0", wantErr: "rods: 0 not in [1, 18]"},
		{name: "too many rods", yaml: "rods: 19", wantErr: "rods: 19"},
		{name: "overflow", yaml: "overflow: wrap", wantErr: "overflow: unknown overflow policy"},
		{name: "output format", yaml: "output:\n  format: xml", wantErr: "output.format"},
		{name: "log level", yaml: "log:\n  level: loud", wantErr: "log.level"},
		{name: "log format", yaml: "log:\n  format: xml", wantErr: "log.format"},
		{name: "exporter", yaml: "tracing:\n  exporter: zipkin", wantErr: "unknown exporter"},
		{name: "otlp without endpoint", yaml: "tracing:\n  exporter: otlp\n  endpoint: \"\"", wantErr: "tracing.endpoint"},
		{name: "negative debounce", yaml: "watch:\n  debounce: -1s", wantErr: "watch.debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfigFromYAML(t, tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultConfigTemplate_LoadsAsDefaults(t *testing.T) {
	cfg, err := loadConfigFromYAML(t, DefaultConfigTemplate())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "suanpan", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	assert.True(t, strings.HasSuffix(DefaultConfigPath(), filepath.Join("suanpan", "config.yaml")))
}
