package server

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEnv(t *testing.T) {
	tests := map[string]string{
		"production":  "production",
		"prod":        "production",
		"release":     "production",
		"test":        "test",
		"testing":     "test",
		"development": "development",
		"dev":         "development",
		"":            "development",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeEnv(in), "env %q", in)
	}
}

func TestMapModeToGinMode(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, mapModeToGinMode("production"))
	assert.Equal(t, gin.TestMode, mapModeToGinMode("test"))
	assert.Equal(t, gin.DebugMode, mapModeToGinMode("development"))
}

func TestLoadConfig_ConfiguredModeIsKept(t *testing.T) {
	t.Setenv("OBSERVATORY_ENV", "")
	t.Setenv("OBSERVATORY_SERVER_MODE", "production")

	cmd := NewCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Server.Mode)
	assert.False(t, cfg.Server.IsDevelopment())
}

func TestLoadConfig_DefaultsToProduction(t *testing.T) {
	t.Setenv("OBSERVATORY_ENV", "")

	cmd := NewCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.False(t, cfg.Server.IsDevelopment())
}

func TestLoadConfig_EnvFlagOverridesMode(t *testing.T) {
	t.Setenv("OBSERVATORY_ENV", "")
	t.Setenv("OBSERVATORY_SERVER_MODE", "production")
	t.Setenv("OBSERVATORY_DEBUG_TOKEN", "local-debug-token")

	cmd := NewCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--env", "dev"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.True(t, cfg.Server.IsDevelopment())
}

func TestLoadConfig_EnvVariableOverridesMode(t *testing.T) {
	t.Setenv("OBSERVATORY_ENV", "testing")
	t.Setenv("OBSERVATORY_SERVER_MODE", "production")

	cmd := NewCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Server.Mode)
}

func TestLoadConfig_DevelopmentWithoutDebugToken(t *testing.T) {
	t.Setenv("OBSERVATORY_ENV", "development")

	cmd := NewCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "debug.token")
}
