package apnode

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"go.apnode.dev/apnode/pkg/apnode/config"
	"go.apnode.dev/apnode/pkg/internal/control"
	"go.apnode.dev/apnode/pkg/version"
)

func TestVersionCommand(t *testing.T) {
	app := App()

	assert.Equal(t, version.String(), app.Version, "App version should match version package")

	help, err := app.ToMarkdown()
	require.NoError(t, err)
	assert.Contains(t, help, "version")

	flags := make(map[string]bool)
	for _, flag := range app.Flags {
		for _, name := range flag.Names() {
			if flags[name] {
				t.Errorf("Flag conflict detected: %s", name)
			}
			flags[name] = true
		}
	}
	for _, name := range []string{"verbosity", "v", "config", "c", "debug", "d", "version", "V"} {
		assert.True(t, flags[name], "flag %q should exist", name)
	}
}

func TestCustomVersionFlag(t *testing.T) {
	app := App()
	assert.NotEmpty(t, app.Version)

	help, err := app.ToMarkdown()
	require.NoError(t, err)
	assert.Contains(t, help, "-V")
	assert.Contains(t, help, "--version")
	assert.Contains(t, help, "-v")
}

func TestVersionFlagPrintsVersion(t *testing.T) {
	app := App()
	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run([]string{"apnode", "-V"}))
	assert.Contains(t, out.String(), version.String())
}

func TestUserAgentIncludesVersion(t *testing.T) {
	userAgent := version.UserAgent()
	assert.True(t, strings.HasPrefix(userAgent, "apnode/"))
	assert.Contains(t, userAgent, version.String())
}

func TestConfigCommand(t *testing.T) {
	app := App()
	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run([]string{"apnode", "config"}))

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &cfg))
	assert.Equal(t, config.DefaultConfig, cfg)
}

func TestConfigCommand_UnknownFormat(t *testing.T) {
	_, err := defaultConfigBytes("toml")
	require.Error(t, err)
}

func TestHostapdCommand(t *testing.T) {
	app := App()
	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run([]string{"apnode", "hostapd"}))
	assert.Contains(t, out.String(), "ssid="+config.DefaultConfig.AccessPoint.SSID)
}

func TestFetchStatus(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.UserAgent()
		_, _ = w.Write([]byte(`{"node":"n1","connected":-1,"joins":1,"leaves":2}`))
	}))
	defer srv.Close()

	s, _, err := fetchStatus(context.Background(), srv.URL+"/api/status")
	require.NoError(t, err)
	assert.Equal(t, version.UserAgent(), agent)
	assert.Equal(t, control.Status{Node: "n1", Connected: -1, Joins: 1, Leaves: 2}, *s)

	var out bytes.Buffer
	printStatus(&out, s)
	assert.Contains(t, out.String(), "connected devices:")
}

func TestFetchStatus_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, _, err := fetchStatus(context.Background(), srv.URL+"/api/status")
	require.ErrorContains(t, err, "404")
}
