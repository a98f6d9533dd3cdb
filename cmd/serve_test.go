package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailbridge/internal/config"
)

// parseServeFlags parses args with fresh serve flags and applies the
// explicitly set ones to cfg.
func parseServeFlags(t *testing.T, cfg *config.Config, args ...string) {
	t.Helper()

	cmd := &cobra.Command{Use: "serve"}
	flags := bindServeFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	flags.apply(cmd, cfg)
}

func TestServeFlags_OnlyExplicitOverride(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Addr = ":7000"
	cfg.Gmail.FetchConcurrency = 3

	parseServeFlags(t, &cfg)

	assert.Equal(t, ":7000", cfg.HTTP.Addr, "unset flags must not override file or env values")
	assert.Equal(t, 3, cfg.Gmail.FetchConcurrency)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestServeFlags_Override(t *testing.T) {
	cfg := config.Default()

	parseServeFlags(t, &cfg,
		"--http-addr", ":9000",
		"--gmail-endpoint", "http://localhost:1234/",
		"--fetch-concurrency", "4",
		"--cors-origins", "https://a.example.com, https://b.example.com",
		"--metrics=false",
		"--metrics-addr", ":9999",
	)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "http://localhost:1234/", cfg.Gmail.Endpoint)
	assert.Equal(t, 4, cfg.Gmail.FetchConcurrency)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORSAllowedOrigins)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
	assert.NoError(t, cfg.Validate())
}
