package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetENVDefaults(t *testing.T) {
	settings := GetENV()

	assert.Equal(t, ":8080", settings.ListenAddr)
	assert.Equal(t, 30, settings.WatchInterval)
	assert.Equal(t, 300, settings.RecoveryTimeout)
	assert.Equal(t, 5, settings.RecoveryDelay)
	assert.Equal(t, "default", settings.WatchNamespace)
	assert.Equal(t, "web", settings.WatchDeployment)
	assert.Equal(t, 1, settings.WatchMinReplicas)
	assert.False(t, settings.DisableAutoRecovery)
	assert.Nil(t, settings.WatchSelector)
}

func TestGetENVOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("WATCH_INTERVAL", "10")
	t.Setenv("WATCH_SELECTOR", "payments")
	t.Setenv("DISABLE_AUTO_RECOVERY", "true")

	settings := GetENV()

	assert.Equal(t, ":9090", settings.ListenAddr)
	assert.Equal(t, 10, settings.WatchInterval)
	assert.Equal(t, map[string]string{"app": "payments"}, settings.WatchSelector)
	assert.True(t, settings.DisableAutoRecovery)
}

func TestLoadFileOverlaysSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
listen_addr: ":7070"
watch_namespace: staging
watch_selector:
  app: web
  tier: frontend
recovery_timeout: 120
disable_auto_recovery: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	settings := GetENV()
	require.NoError(t, settings.LoadFile(path))

	assert.Equal(t, ":7070", settings.ListenAddr)
	assert.Equal(t, "staging", settings.WatchNamespace)
	assert.Equal(t, map[string]string{"app": "web", "tier": "frontend"}, settings.WatchSelector)
	assert.Equal(t, 120, settings.RecoveryTimeout)
	assert.True(t, settings.DisableAutoRecovery)

	// fields absent from the file keep their env defaults
	assert.Equal(t, 30, settings.WatchInterval)
}

func TestLoadFileMissing(t *testing.T) {
	settings := GetENV()
	assert.Error(t, settings.LoadFile("/does/not/exist.yaml"))
}

func TestWatchTarget(t *testing.T) {
	settings := &Settings{
		WatchNamespace: "staging",
		WatchSelector:  map[string]string{"app": "web"},
	}
	target := settings.WatchTarget()
	assert.Equal(t, "staging", target.Namespace)
	assert.Equal(t, 100, target.Percentage)
	assert.Equal(t, "app=web", target.LabelSelector())
}
