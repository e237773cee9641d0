package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000", cfg.Meeting.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Meeting.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.Meeting.LockTTL)
	assert.Equal(t, "recordings", cfg.MinIO.Bucket)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("MEETING_BASE_URL", "https://meet.example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://meet.example.com, https://admin.example.com")
	t.Setenv("DESK_LOCK_TTL", "10s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://meet.example.com", cfg.Meeting.BaseURL)
	assert.Equal(t, []string{"https://meet.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Meeting.LockTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }},
		{"short production secret", func(c *Config) { c.Server.Environment = "production" }},
		{"relative base url", func(c *Config) { c.Meeting.BaseURL = "/app" }},
		{"trailing slash", func(c *Config) { c.Meeting.BaseURL = "https://meet.example.com/" }},
		{"zero lock ttl", func(c *Config) { c.Meeting.LockTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Meeting: MeetingConfig{BaseURL: "https://meet.example.com", LockTTL: time.Second},
				JWT:     JWTConfig{Secret: "short"},
			}
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
