package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-portal/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Logout.Delay)
	assert.Equal(t, "/dashboard-pages/", cfg.Guard.DevBypassPrefix)
	assert.Equal(t, defaultDemoEmail, cfg.Demo.Email)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())

	rules := cfg.AccessConfig()
	assert.True(t, rules.Match("/login").Public)
	assert.True(t, rules.Match("/admin/users").AdminOnly)
	assert.Equal(t, []string{"secure_neat"}, rules.Match("/SecureNeat/dashboard").RequiredCapabilities)
}

func TestLoadConfig_File(t *testing.T) {
	dir := writeConfig(t, `
env: staging
server:
  port: 9090
upstream:
  base_url: https://api.example.test
  timeout: 3s
logout:
  delay: 250ms
guard:
  dev_bypass_prefix: /preview/
  routes:
    - prefix: /reports
      required_plans: [Enterprise]
      on_network_error: closed
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://api.example.test", cfg.Upstream.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Logout.Delay)
	assert.Equal(t, "/preview/", cfg.Guard.DevBypassPrefix)

	rule := cfg.AccessConfig().Match("/reports/monthly")
	assert.Equal(t, "/reports", rule.Prefix)
	assert.Equal(t, []string{"Enterprise"}, rule.RequiredPlans)
	assert.Equal(t, model.FallbackClosed, rule.OnNetworkError)
	assert.Equal(t, model.FallbackOpen, rule.OnNotFound.OrOpen())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORTAL_JWT_SECRET", "from-env")
	t.Setenv("PORTAL_DEMO_EMAIL", "demo@example.test")
	t.Setenv("PORTAL_UPSTREAM_URL", "http://upstream.test")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "demo@example.test", cfg.Demo.Email)
	assert.Equal(t, "http://upstream.test", cfg.Upstream.BaseURL)
}

func TestLoadConfig_RejectsDefaultSecretsInProduction(t *testing.T) {
	t.Setenv("PORTAL_ENV", "production")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default secrets")
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := writeConfig(t, "server: [unterminated")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "upstream.base_url")
}
