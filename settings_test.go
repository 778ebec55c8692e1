package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"gomana/world"
)

func TestLoadSettingsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := loadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, 5122, s.ServerPort)
	assert.True(t, s.HaveMove3)
	assert.True(t, s.LogPlayerActions)
	assert.False(t, s.Sync)
	assert.Equal(t, "iso-8859-1", s.ServerEncoding)
	assert.Equal(t, 4, s.ReplayWorkers)
	assert.Equal(t, filepath.Join(dir, "data", "roster.db"), s.RosterDB)
}

func TestLoadSettingsFile(t *testing.T) {
	dir := t.TempDir()
	data := `{
		"host": "localhost",
		"localPlayerID": 150000,
		"haveMove3": false,
		"ignoredPlayers": ["Spammer"],
		"replayWorkers": 0,
		"rosterDB": "",
		"mapSizes": {"001-1": {"width": 120, "height": 80}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(data), 0644))

	s, err := loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "localhost", s.Host)
	assert.Equal(t, uint32(150000), s.LocalPlayerID)
	assert.False(t, s.HaveMove3)
	assert.Equal(t, 1, s.ReplayWorkers)
	assert.Empty(t, s.RosterDB)
	assert.Equal(t, world.Size{Width: 120, Height: 80}, s.MapSizes["001-1"])
	assert.True(t, s.ignored("spammer"))
	assert.False(t, s.ignored("friend"))
}

func TestLoadSettingsEnvOverride(t *testing.T) {
	t.Setenv("GOMANA_SYNC", "true")
	t.Setenv("GOMANA_SERVERPORT", "6901")
	s, err := loadSettings(t.TempDir())
	require.NoError(t, err)
	assert.True(t, s.Sync)
	assert.Equal(t, 6901, s.ServerPort)
}

func TestLoadSettingsBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte("{not json"), 0644))
	_, err := loadSettings(dir)
	require.Error(t, err)
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := testSettings()
	in.Host = "example.org"
	in.IgnoredPlayers = []string{"a", "b"}
	require.NoError(t, saveSettings(dir, in))

	out, err := loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "example.org", out.Host)
	assert.Equal(t, in.LocalPlayerID, out.LocalPlayerID)
	assert.Equal(t, []string{"a", "b"}, out.IgnoredPlayers)
}

func TestSaveSettingsKeepsRosterPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(`{"rosterDB": "db/players.sqlite"}`), 0644))
	in, err := loadSettings(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "db", "players.sqlite"), in.RosterDB)

	require.NoError(t, saveSettings(dir, in))
	raw, err := os.ReadFile(filepath.Join(dir, settingsFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), filepath.Join("db", "players.sqlite"))
	assert.NotContains(t, string(raw), dir)

	out, err := loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, in.RosterDB, out.RosterDB)

	other := filepath.Join(t.TempDir(), "elsewhere.db")
	in.RosterDB = other
	require.NoError(t, saveSettings(dir, in))
	out, err = loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, other, out.RosterDB)
}

func TestServerCharset(t *testing.T) {
	cases := map[string]*charmap.Charmap{
		"":             nil,
		"UTF-8":        nil,
		"latin1":       charmap.ISO8859_1,
		"ISO-8859-15":  charmap.ISO8859_15,
		"windows-1252": charmap.Windows1252,
		"koi8-r":       charmap.KOI8R,
		"macroman":     charmap.Macintosh,
	}
	for name, want := range cases {
		got, err := serverCharset(name)
		require.NoError(t, err, name)
		assert.Same(t, want, got, name)
	}
	_, err := serverCharset("ebcdic")
	assert.Error(t, err)
}
