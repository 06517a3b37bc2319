package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/jeopardy/trivia"
)

func validConfig() *Config {
	return &Config{
		apiTimeout: time.Second,
		apiURL:     trivia.DefaultBaseURL,
		bind:       "127.0.0.1",
		categories: 6,
		clues:      5,
		port:       8080,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("Accepts the defaults", func(t *testing.T) {
		assert.NoError(t, validConfig().validate())
	})

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"Rejects a certificate without a key", func(c *Config) { c.tlsCert = "cert.pem" }, "--tls-key"},
		{"Rejects port zero", func(c *Config) { c.port = 0 }, "invalid port"},
		{"Rejects ports above 65535", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"Rejects an empty board", func(c *Config) { c.categories = 0 }, "category count"},
		{"Rejects categories without clues", func(c *Config) { c.clues = -1 }, "clue count"},
		{"Rejects a negative timeout", func(c *Config) { c.apiTimeout = -time.Second }, "api timeout"},
		{"Rejects a relative api url", func(c *Config) { c.apiURL = "/api" }, "api url"},
		{"Rejects a non-http api url", func(c *Config) { c.apiURL = "ftp://example.com" }, "api url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestNewCmd(t *testing.T) {
	t.Run("Uses the documented defaults", func(t *testing.T) {
		cfg := &Config{}
		_ = newCmd(cfg)

		assert.Equal(t, 8080, cfg.port)
		assert.Equal(t, "0.0.0.0", cfg.bind)
		assert.Equal(t, 6, cfg.categories)
		assert.Equal(t, 5, cfg.clues)
		assert.Equal(t, trivia.DefaultBaseURL, cfg.apiURL)
		assert.Equal(t, 15*time.Second, cfg.apiTimeout)
		assert.Equal(t, time.Hour, cfg.sessionTimeout)
	})

	t.Run("Reads unset flags from the environment", func(t *testing.T) {
		// Given: board settings in the environment
		t.Setenv("JEOPARDY_CATEGORIES", "4")
		t.Setenv("JEOPARDY_API_TIMEOUT", "30s")
		t.Setenv("JEOPARDY_API_URL", "https://trivia.example.com/api")

		// When: building the command
		cfg := &Config{}
		_ = newCmd(cfg)

		// Then: the environment wins over the defaults
		assert.Equal(t, 4, cfg.categories)
		assert.Equal(t, 30*time.Second, cfg.apiTimeout)
		assert.Equal(t, "https://trivia.example.com/api", cfg.apiURL)
	})

	t.Run("Parses flags", func(t *testing.T) {
		cfg := &Config{}
		cmd := newCmd(cfg)

		require.NoError(t, cmd.ParseFlags([]string{"--port", "9000", "--clues", "3", "-v", "--prefix", "/trivia"}))

		assert.Equal(t, 9000, cfg.port)
		assert.Equal(t, 3, cfg.clues)
		assert.True(t, cfg.verbose)
		assert.Equal(t, "/trivia", cfg.prefix)
	})
}
