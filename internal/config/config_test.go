package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9500", cfg.Port)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 25.0, cfg.NearbyRadiusKm)
	assert.Equal(t, 5, cfg.NearbyLimit)
	assert.Equal(t, 10*time.Second, cfg.AssignLockTTL)
	assert.True(t, cfg.CSRFEnabled)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.FrontendOrigins)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "8081")
	t.Setenv("CSRF_ENABLED", "false")
	t.Setenv("FRONTEND_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("NEARBY_LIMIT", "3")
	t.Setenv("BASE_URL", "http://api.test/")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_S3_BUCKET", "bucket")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.False(t, cfg.CSRFEnabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.FrontendOrigins)
	assert.Equal(t, 3, cfg.NearbyLimit)
	assert.Equal(t, "http://api.test", cfg.BaseURL)
	assert.True(t, cfg.S3.Enabled())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "bcrypt cost too low", env: map[string]string{"JWT_SECRET": "s", "BCRYPT_COST": "2"}},
		{name: "zero nearby limit", env: map[string]string{"JWT_SECRET": "s", "NEARBY_LIMIT": "0"}},
		{name: "zero radius", env: map[string]string{"JWT_SECRET": "s", "NEARBY_RADIUS_KM": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable", d.DSN())
}
