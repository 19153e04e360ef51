package apnode

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.apnode.dev/apnode/pkg/apnode/config"
	"go.apnode.dev/apnode/pkg/tracker"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig, *cfg)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
accessPoint:
  ssid: lab
  channel: 11
tracker:
  holdDuration: 5s
  retrigger: extend
indicators:
  connection:
    pin: 17
`), 0644))
	t.Setenv("APNODE_CONTROL_BIND", "127.0.0.1:8080")
	t.Setenv("APNODE_STATIONS_TTL", "1h")

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "lab", cfg.AccessPoint.SSID)
	assert.Equal(t, 11, cfg.AccessPoint.Channel)
	assert.Equal(t, config.DefaultConfig.AccessPoint.MaxStations, cfg.AccessPoint.MaxStations)
	assert.Equal(t, 5*time.Second, cfg.Tracker.HoldDuration)
	assert.Equal(t, tracker.ExtendPolicy, cfg.Tracker.Retrigger)
	assert.Equal(t, 17, cfg.Indicators.Connection.Pin)
	assert.Equal(t, config.DefaultConfig.Indicators.Manual.Pin, cfg.Indicators.Manual.Pin)
	assert.Equal(t, "127.0.0.1:8080", cfg.Control.Bind)
	assert.True(t, cfg.Control.Enabled)
	assert.Equal(t, time.Hour, cfg.Stations.TTL)
}

// A reload with a fresh viper instance must not see values of a previous load.
func TestLoadConfig_IndependentInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("accessPoint:\n  ssid: first\n"), 0644))

	v1 := viper.New()
	v1.SetConfigFile(path)
	cfg1, err := LoadConfig(v1)
	require.NoError(t, err)
	require.Equal(t, "first", cfg1.AccessPoint.SSID)

	require.NoError(t, os.WriteFile(path, []byte("tracker:\n  holdDuration: 1s\n"), 0644))
	v2 := viper.New()
	v2.SetConfigFile(path)
	cfg2, err := LoadConfig(v2)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig.AccessPoint.SSID, cfg2.AccessPoint.SSID)
	assert.Equal(t, time.Second, cfg2.Tracker.HoldDuration)
	assert.Equal(t, "first", cfg1.AccessPoint.SSID)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yml"))
	_, err := LoadConfig(v)
	require.Error(t, err)
}
