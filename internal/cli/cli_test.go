package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IntellionInc/logos"
	"github.com/IntellionInc/logos/communicator"
	"github.com/IntellionInc/logos/config"
	"github.com/IntellionInc/logos/connection"
	"github.com/IntellionInc/logos/envelope"
	"github.com/IntellionInc/logos/internal/cli"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	cmd := cli.NewRootCommand(logos.Define("Users", logos.Method("index", func(context.Context, *logos.Controller) (any, error) {
		return []any{}, nil
	})))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "logos dev\n", out)
}

func TestRoutes(t *testing.T) {
	dir := t.TempDir()
	routes := writeFile(t, dir, "routes.yaml", "users:\n  get: \"Users => index\"\n  post: \"Users => create\"\n")
	cfg := writeFile(t, dir, "logos.yaml", "routes: "+routes+"\n")

	out, err := run(t, "routes", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"GET    /health -> Health => check",
		"GET    /health/dependencies -> Health => dependencies",
		"GET    /users -> Users => index",
		"POST   /users -> Users => create",
		"",
	}, "\n"), out)

	_, err = run(t, "routes", "--check", "-c", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `controller Users has no method "create"`)

	_, err = run(t, "routes", "-c", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func get(t *testing.T, url string) (int, map[string]any) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestHealth(t *testing.T) {
	t.Parallel()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer up.Close()
	down := httptest.NewServer(http.NotFoundHandler())
	defer down.Close()

	cfg := config.New(
		config.WithDatabase("main", connection.Config{DSN: ":memory:"}),
		config.WithOutbound("billing", communicator.Config{BaseURL: up.URL}),
	)
	app, err := cli.Build(cfg, envelope.NoLogger())
	require.NoError(t, err)
	require.NoError(t, app.Server.Connections().ConnectAll(context.Background()))
	defer app.Server.Connections().Close()
	require.NoError(t, app.Server.UseRouter(app.Router))
	srv := httptest.NewServer(app.Server.Handler())
	defer srv.Close()

	status, payload := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, []any{map[string]any{"name": "main", "kind": "database", "up": true}}, data["checks"])
	assert.NotEmpty(t, data["started"])

	status, payload = get(t, srv.URL+"/health/dependencies")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", payload["data"].(map[string]any)["status"])

	degraded, err := cli.Build(config.New(
		config.WithOutbound("billing", communicator.Config{BaseURL: up.URL}),
		config.WithOutbound("mail", communicator.Config{BaseURL: down.URL}),
	), envelope.NoLogger())
	require.NoError(t, err)
	require.NoError(t, degraded.Server.UseRouter(degraded.Router))
	srv2 := httptest.NewServer(degraded.Server.Handler())
	defer srv2.Close()
	status, payload = get(t, srv2.URL+"/health/dependencies")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "some dependencies are unavailable", payload["error"])
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()
	_, err := cli.Build(config.New(config.WithDatabase("x", connection.Config{})), envelope.NoLogger())
	assert.Error(t, err)

	cfg := config.New()
	cfg.Routes = filepath.Join(t.TempDir(), "nope.yaml")
	_, err = cli.Build(cfg, envelope.NoLogger())
	assert.Error(t, err)

	bad := writeFile(t, t.TempDir(), "routes.yaml", "users:\n  fetch: \"Users => index\"\n")
	cfg.Routes = bad
	_, err = cli.Build(cfg, envelope.NoLogger())
	assert.Error(t, err)
}
