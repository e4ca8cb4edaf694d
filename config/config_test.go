package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lguibr/sc2-proxy/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct{ known map[string]string }

func (f fakeResolver) FindMap(name string) (string, bool) {
	p, ok := f.known[name]
	return p, ok
}

func TestDefaultConfigTOMLRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MatchDefaults.Game.MapName = "Acropolis"

	b, err := config.Encode(cfg)
	require.NoError(t, err)

	got, err := config.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestCheckRequiresMapName(t *testing.T) {
	cfg := config.DefaultConfig()
	err := cfg.Check(fakeResolver{known: map[string]string{}})
	assert.Error(t, err)
}

func TestCheckRequiresResolvableMap(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MatchDefaults.Game.MapName = "Ghost"
	err := cfg.Check(fakeResolver{known: map[string]string{"Acropolis": "/maps/Acropolis.SC2Map"}})
	assert.Error(t, err)
}

func TestCheckPassesForResolvableMap(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MatchDefaults.Game.MapName = "Acropolis"
	err := cfg.Check(fakeResolver{known: map[string]string{"Acropolis": "/maps/Acropolis.SC2Map"}})
	assert.NoError(t, err)
}

func TestResolvePathPrefersCLIArg(t *testing.T) {
	t.Setenv(config.EnvVar, "/env/path.toml")
	assert.Equal(t, "/cli/path.toml", config.ResolvePath("/cli/path.toml"))
}

func TestResolvePathFallsBackToEnv(t *testing.T) {
	t.Setenv(config.EnvVar, "/env/path.toml")
	assert.Equal(t, "/env/path.toml", config.ResolvePath(""))
}

func TestResolvePathFallsBackToDefault(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	assert.Equal(t, config.DefaultConfigPath, config.ResolvePath(""))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadMalformedFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid toml"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadAppliesOverridesOnTopOfDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sc2_proxy.toml")
	contents := `
[proxy]
host = "0.0.0.0"
port = 9000

[matchmaking]
mode = "Pairs"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Proxy.Host)
	assert.Equal(t, 9000, cfg.Proxy.Port)
	assert.Equal(t, config.ModePairs, cfg.Matchmaking.Mode)
	// Unset fields keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.RemoteController.Host)
}
