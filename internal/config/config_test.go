package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	c, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, logrus.InfoLevel, c.LogLevel)
	assert.False(t, c.LogJSON)
	assert.Empty(t, c.RedisURL)
	assert.Empty(t, c.DatabaseURL)
	assert.Equal(t, 30*time.Second, c.DisconnectGrace)
	assert.Equal(t, "http://localhost:8080", c.PublicURL)
	assert.Len(t, c.JWTSecret, 64)
}

func TestOverrides(t *testing.T) {
	c, err := FromLookup(lookupFrom(map[string]string{
		"PORT":                     "9000",
		"LOG_LEVEL":                "debug",
		"LOG_FORMAT":               "json",
		"REDIS_URL":                "redis://localhost:6379/0",
		"DATABASE_URL":             "postgres://u:p@localhost/coc",
		"JWT_SECRET":               "s3cret",
		"PUBLIC_URL":               "https://play.example.com/",
		"DISCONNECT_GRACE_SECONDS": "5",
		"ALLOWED_ORIGINS":          "https://a.example, https://b.example ,",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, logrus.DebugLevel, c.LogLevel)
	assert.True(t, c.LogJSON)
	assert.Equal(t, []byte("s3cret"), c.JWTSecret)
	assert.Equal(t, "https://play.example.com", c.PublicURL)
	assert.Equal(t, 5*time.Second, c.DisconnectGrace)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)

	l := c.NewLogger()
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}

func TestInvalidValues(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{"LOG_LEVEL": "loud"}))
	assert.Error(t, err)

	_, err = FromLookup(lookupFrom(map[string]string{"DISCONNECT_GRACE_SECONDS": "-1"}))
	assert.Error(t, err)
}
