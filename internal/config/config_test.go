package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENV", "HOST", "PORT", "MONGODB_URI", "MONGO_URI", "ALLOWED_ORIGINS", "FRONTEND_URL", "FRONTEND_URL_2"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "mongodb://localhost:27017/skillconnect", cfg.MongoURI)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.AllowedHost)
	assert.False(t, cfg.IsProduction())
}

func TestLoadProduction(t *testing.T) {
	t.Setenv("ENV", "Production")
	t.Setenv("HOST", "https://api.skillconnect.dev:443/v1")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "api.skillconnect.dev", cfg.AllowedHost)
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://skillconnect.dev, https://www.skillconnect.dev ,")

	cfg := Load()

	assert.Equal(t, []string{"https://skillconnect.dev", "https://www.skillconnect.dev"}, cfg.AllowedOrigins)
}

func TestLoadOriginsFallBackToFrontendURLs(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://app.skillconnect.dev")
	t.Setenv("FRONTEND_URL_2", "https://staging.skillconnect.dev")

	cfg := Load()

	assert.Equal(t, []string{"https://app.skillconnect.dev", "https://staging.skillconnect.dev"}, cfg.AllowedOrigins)
}

func TestStripToHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.skillconnect.dev", "api.skillconnect.dev"},
		{"http://api.skillconnect.dev:8080", "api.skillconnect.dev"},
		{"api.skillconnect.dev/path", "api.skillconnect.dev"},
		{"localhost:8080", "localhost"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripToHostname(tt.in))
	}
}
