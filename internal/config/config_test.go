package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parle/internal/apps"
	"parle/internal/nlu"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIKeyEnv, cfg.Classifier.APIKeyEnv)
	assert.Equal(t, nlu.DefaultModel, cfg.Classifier.Model)
	assert.Equal(t, 500*time.Millisecond, cfg.Speech.Pause.Duration)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Setenv("PARLE_TEST_HOME", "/home/moi")

	cfg, err := Load(writeConfig(t, `
classifier:
  model: llama-3.3-70b-versatile
  timeout: 5s
apps:
  dirs: [${PARLE_TEST_HOME}/apps]
  overrides:
    musique: rhythmbox
speech:
  enabled: false
  pause: 0s
bus:
  url: ws://localhost:8092/ws
`))
	require.NoError(t, err)

	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Classifier.Model)
	assert.Equal(t, 5*time.Second, cfg.Classifier.Timeout.Duration)
	assert.Equal(t, nlu.DefaultBaseURL, cfg.Classifier.BaseURL)
	assert.Equal(t, []string{"/home/moi/apps"}, cfg.Apps.Dirs)
	assert.Equal(t, "rhythmbox", cfg.Apps.Overrides["musique"])
	assert.Equal(t, apps.Defaults["firefox"], cfg.Apps.Overrides["firefox"], "built-in aliases are kept")
	assert.False(t, cfg.Speech.Enabled)
	assert.Zero(t, cfg.Speech.Pause.Duration)
	assert.Equal(t, 175, cfg.Speech.Rate)
	assert.Equal(t, "ws://localhost:8092/ws", cfg.Bus.URL)
}

func TestLoad_DefaultsAreNotShared(t *testing.T) {
	cfg, err := Load(writeConfig(t, "apps:\n  overrides:\n    firefox: firefox-esr\n"))
	require.NoError(t, err)
	assert.Equal(t, "firefox-esr", cfg.Apps.Overrides["firefox"])
	assert.Equal(t, "firefox", apps.Defaults["firefox"])
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "media:\n  timeout: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid duration "soon"`)
}

func TestLoad_Validation(t *testing.T) {
	_, err := Load(writeConfig(t, `
classifier:
  api_key_env: ""
speech:
  rate: 0
ipc:
  socket: ""
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifier.api_key_env")
	assert.Contains(t, err.Error(), "speech.rate")
	assert.Contains(t, err.Error(), "ipc.socket")
}
