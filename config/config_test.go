package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IntellionInc/logos/communicator"
	"github.com/IntellionInc/logos/config"
	"github.com/IntellionInc/logos/connection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.Parse(nil, env(nil))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Production())
}

const file = `
port: 8080
environment: staging
shutdown_timeout: 3s
routes: routes.yaml
databases:
  default:
    dsn: ":memory:"
    max_open_conns: 4
outbound:
  billing:
    base_url: http://billing.internal
    timeout: 2s
    headers:
      X-Api-Key: secret
`

func TestParse(t *testing.T) {
	t.Parallel()
	cfg, err := config.Parse([]byte(file), env(nil))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "routes.yaml", cfg.Routes)
	assert.Equal(t, connection.Config{DSN: ":memory:", MaxOpenConns: 4}, cfg.Databases["default"])
	assert.Equal(t, communicator.Config{
		BaseURL: "http://billing.internal",
		Timeout: 2 * time.Second,
		Headers: map[string]string{"X-Api-Key": "secret"},
	}, cfg.Outbound["billing"])
}

func TestPrecedence(t *testing.T) {
	t.Parallel()
	cfg, err := config.Parse([]byte(file), env(map[string]string{"PORT": "9000", "LOGOS_ENV": "production"}))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Production())

	cfg, err = config.Parse([]byte(file), env(map[string]string{"PORT": "9000"}),
		config.WithPort(9100),
		config.WithEnvironment("test"),
		config.WithShutdownTimeout(-1),
		config.WithDatabase("audit", connection.Config{DSN: "audit.db"}),
		config.WithOutbound("mail", communicator.Config{BaseURL: "http://mail"}),
	)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Len(t, cfg.Databases, 2)
	assert.Len(t, cfg.Outbound, 2)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		data string
		env  map[string]string
	}{
		"unknown key":      {data: "prot: 1\n"},
		"bad yaml":         {data: "port: [\n"},
		"bad port env":     {env: map[string]string{"PORT": "eighty"}},
		"port range":       {data: "port: 70000\n"},
		"database w/o dsn": {data: "databases:\n  x:\n    driver: sqlite3\n"},
		"empty env name":   {data: "environment: \"\"\n"},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := config.Parse([]byte(tc.data), env(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\n"), 0o600))
	cfg, err := config.Load(path, config.WithEnvironment("test"))
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
	if os.Getenv(config.EnvPort) == "" {
		assert.Equal(t, 4000, cfg.Port)
	}

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Parallel()
	cfg := config.New(config.WithPort(0), config.WithShutdownTimeout(time.Minute))
	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
	assert.NoError(t, cfg.Validate())
}
