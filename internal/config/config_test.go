package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sequencer/internal/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sequencer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, engine.DefaultTick, cfg.Player.Tick)
	assert.Equal(t, "as-is", cfg.Player.Ordering)
	assert.False(t, cfg.Player.RunOnLoad)
	assert.Zero(t, cfg.Recorder.MaxElements)
	assert.Empty(t, cfg.Archive)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
recorder:
  max_elements: 100
  max_duration: 30s
  start_immediately: true
player:
  run_on_load: true
  tick: 5ms
  ordering: sort
archive: /var/lib/sequencer.db
inbox: /var/spool/sequences
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Recorder.MaxElements)
	assert.Equal(t, 30*time.Second, cfg.Recorder.MaxDuration)
	assert.True(t, cfg.Recorder.StartImmediately)
	assert.True(t, cfg.Player.RunOnLoad)
	assert.Equal(t, 5*time.Millisecond, cfg.Player.Tick)
	assert.Equal(t, "sort", cfg.Player.Ordering)
	assert.Equal(t, "/var/lib/sequencer.db", cfg.Archive)
	assert.Equal(t, "/var/spool/sequences", cfg.Inbox)
}

func TestLoad_PartialYAMLKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "recorder:\n  max_elements: 3\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Recorder.MaxElements)
	assert.Equal(t, engine.DefaultTick, cfg.Player.Tick)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultTick, cfg.Player.Tick)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "recorder:\n  max_elements: 3\narchive: from-file.db\n")
	t.Setenv("SEQUENCER_MAX_ELEMENTS", "7")
	t.Setenv("SEQUENCER_DB", "from-env.db")
	t.Setenv("SEQUENCER_MAX_DURATION", "1500ms")
	t.Setenv("SEQUENCER_RUN_ON_LOAD", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Recorder.MaxElements)
	assert.Equal(t, "from-env.db", cfg.Archive)
	assert.Equal(t, 1500*time.Millisecond, cfg.Recorder.MaxDuration)
	assert.True(t, cfg.Player.RunOnLoad)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{"unknown key", "player:\n  speed: 2\n", nil, "field speed not found"},
		{"bad duration", "player:\n  tick: soon\n", nil, "parse config"},
		{"negative elements", "recorder:\n  max_elements: -1\n", nil, "recorder.max_elements"},
		{"zero tick", "player:\n  tick: 0s\n", nil, "player.tick"},
		{"unknown ordering", "player:\n  ordering: shuffle\n", nil, "player.ordering"},
		{"bad env value", "", map[string]string{"SEQUENCER_MAX_ELEMENTS": "many"}, "parse env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestConfig_EngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Recorder = RecorderConfig{MaxElements: 4, MaxDuration: time.Second, StartImmediately: true}

	assert.Equal(t, engine.RecordOptions{
		MaxElements:      4,
		MaxDuration:      time.Second,
		StartImmediately: true,
	}, cfg.RecordDefaults())

	assert.Len(t, cfg.PlayerOptions(), 3)
}
