package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8086, config.Server.Port)
	assert.Equal(t, 10, config.Pipeline.SufficiencyThreshold)
	assert.Equal(t, 7, config.Forecast.Horizon)
	assert.Contains(t, config.Tracking.Commodities, "Tomato")
}

func TestLoadFromFiles_TOMLThenYAML(t *testing.T) {
	base := writeConfig(t, "mandi.toml", `
[server]
port = 9000

[tracking]
commodities = ["Onion", "Garlic"]

[alerts]
drop_threshold = 0.05
high_drop_threshold = 0.2
`)
	override := writeConfig(t, "override.yaml", `
server:
  host: 0.0.0.0
pipeline:
  sufficiency_threshold: 25
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, []string{"Onion", "Garlic"}, config.Tracking.Commodities)
	assert.Equal(t, 0.05, config.Alerts.DropThreshold)
	assert.Equal(t, 25, config.Pipeline.SufficiencyThreshold)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("MANDI_SERVER_PORT", "9100")
	t.Setenv("MANDI_DATA_GOV_API_KEY", "gov-key")
	t.Setenv("OPENWEATHER_API_KEY", "owm-key")
	t.Setenv("NODE_BACKEND_URL", "http://backend:4000/")
	t.Setenv("MANDI_TRACKING_STATES", "Punjab, Haryana")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, "gov-key", config.Sources.OfficialAPI.APIKey)
	assert.Equal(t, "owm-key", config.Weather.APIKey)
	assert.Equal(t, "http://backend:4000/api/market-alerts/broadcast", config.Alerts.BroadcastURL)
	assert.Equal(t, []string{"Punjab", "Haryana"}, config.Tracking.States)
}

func TestLoadFromFiles_Invalid(t *testing.T) {
	path := writeConfig(t, "bad.toml", `
[alerts]
drop_threshold = 0.2
high_drop_threshold = 0.1
`)
	_, err := LoadFromFiles(path)
	assert.Error(t, err)

	_, err = LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8086, config.Server.Port)

	ApplyFlagOverrides(config, 7000, "127.0.0.1")
	assert.Equal(t, 7000, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b ,"))
	assert.Nil(t, SplitList(""))
}
