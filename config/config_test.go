package config

import (
	"testing"

	"github.com/CairnApp/shellsync/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, "8170", cfg.Server.Port)
	assert.Equal(t, "/api/User/FcmToken", cfg.Delivery.TokenPath)
	assert.Equal(t, "fcmToken", cfg.Delivery.TokenFieldName)
	assert.Equal(t, 3, cfg.Delivery.MaxAttempts)
	assert.Equal(t, 10, cfg.Delivery.TimeoutSeconds)
	assert.True(t, cfg.Bridge.AllowLegacyMessages)
	assert.Equal(t, "/login", cfg.Bridge.LoginRoute)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DELIVERY_BASE_URL", "https://api.cairn.app")
	t.Setenv("DELIVERY_TOKEN_FIELD_NAME", "FcmToken")
	t.Setenv("DELIVERY_MAX_ATTEMPTS", "5")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.cairn.app", cfg.Delivery.BaseURL)
	assert.Equal(t, "FcmToken", cfg.Delivery.TokenFieldName)
	assert.Equal(t, 5, cfg.Delivery.MaxAttempts)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "invalid environment",
			env:  map[string]string{"SERVER_ENVIRONMENT": "staging"},
		},
		{
			name: "malformed base URL",
			env:  map[string]string{"DELIVERY_BASE_URL": "not a url"},
		},
		{
			name: "production requires base URL",
			env:  map[string]string{"SERVER_ENVIRONMENT": "production"},
		},
		{
			name: "zero max attempts",
			env:  map[string]string{"DELIVERY_MAX_ATTEMPTS": "0"},
		},
		{
			name: "token path without leading slash",
			env:  map[string]string{"DELIVERY_TOKEN_PATH": "api/tokens"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
