package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/festival")
	t.Setenv("MAIL_DRIVER", "")
	t.Setenv("EMAIL_RELAY_URL", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("STRICT_CAPACITY", "")
	t.Setenv("MAIL_QUEUE_SIZE", "")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":5200", c.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:3000"}, c.AllowedOrigins)
	assert.Equal(t, MailDriverLog, c.MailDriver)
	assert.Equal(t, 100, c.MailQueueSize)
	assert.False(t, c.StrictCapacity)
	assert.Empty(t, c.Warnings)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/festival")
	t.Setenv("MAIL_QUEUE_SIZE", "banyak")
	t.Setenv("STRICT_CAPACITY", "mungkin")
	t.Setenv("MAIL_DRIVER", "carrier-pigeon")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 100, c.MailQueueSize)
	assert.False(t, c.StrictCapacity)
	assert.Equal(t, MailDriverLog, c.MailDriver)
	assert.Len(t, c.Warnings, 3)
}

func TestFromEnvPicksRelayWhenURLSet(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/festival")
	t.Setenv("MAIL_DRIVER", "")
	t.Setenv("EMAIL_RELAY_URL", "https://relay.example.com/exec")
	t.Setenv("ALLOWED_ORIGINS", "https://festival.id, https://admin.festival.id")
	t.Setenv("BASE_URL", "https://festival.id/")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, MailDriverRelay, c.MailDriver)
	assert.Equal(t, []string{"https://festival.id", "https://admin.festival.id"}, c.AllowedOrigins)
	assert.Equal(t, "https://festival.id", c.BaseURL)
}
