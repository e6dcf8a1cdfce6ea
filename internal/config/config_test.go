package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "guild:\n  id: \"123\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123", cfg.Guild.ID)
	assert.Equal(t, "0.0.0.0:8443", cfg.Gateway.ListenAddr)
	assert.Equal(t, "/events", cfg.Gateway.EventPath)
	assert.Equal(t, 5*time.Minute, cfg.Moderation.BanCacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Moderation.LockTimeout)
	assert.Equal(t, 200, cfg.Rotation.MessageCountThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Rotation.Interval)
	assert.Equal(t, "精華", cfg.Guild.FeaturedTagName)
	assert.Equal(t, "banned_users.json", cfg.Storage.BannedUsersFile)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
guild:
  id: "123"
  allowed_channels: ["1", "2"]
  role_channel_permissions:
    "role1": ["1"]
moderation:
  ban_cache_ttl: 90s
rotation:
  interval: 12h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, cfg.Guild.AllowedChannels)
	assert.Equal(t, []string{"1"}, cfg.Guild.RoleChannelPermissions["role1"])
	assert.Equal(t, 90*time.Second, cfg.Moderation.BanCacheTTL)
	assert.Equal(t, 12*time.Hour, cfg.Rotation.Interval)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRequiresPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
