package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, ":9091", cfg.GRPCAddr)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.SSOTokenTTL)
	assert.Equal(t, "srialkhairiah.my", cfg.EmailDomain)
	assert.Equal(t, "@every 1h", cfg.SessionPurgeSchedule)
	assert.Equal(t, []string{"jadual.srialkhairiah.my", "portal.srialkhairiah.my", "localhost"}, cfg.SSOCallbackHosts)
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCESS_TOKEN_TTL_SECONDS", "900")
	t.Setenv("SSO_TOKEN_TTL", "2h")
	t.Setenv("EMAIL_DOMAIN", "Example.MY")
	t.Setenv("SERVICE_AUTH_TOKEN", "svc")
	t.Setenv("SSO_ALLOWED_CALLBACK_HOSTS", " Jadual.Example.MY , ,staff.example.my")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 2*time.Hour, cfg.SSOTokenTTL)
	assert.Equal(t, "example.my", cfg.EmailDomain)
	assert.Equal(t, "svc", cfg.ServiceAuthToken)
	assert.Equal(t, []string{"jadual.example.my", "staff.example.my"}, cfg.SSOCallbackHosts)
}
