package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"gomana/world"
)

// Settings mirrors settings.json. Every key can be overridden from the
// environment with a GOMANA_ prefix, e.g. GOMANA_HAVEMOVE3=false.
type Settings struct {
	Host             string                `mapstructure:"host"`
	ServerPort       int                   `mapstructure:"serverPort"`
	RelayURL         string                `mapstructure:"relayURL"`
	LocalPlayerID    uint32                `mapstructure:"localPlayerID"`
	LocalPlayerName  string                `mapstructure:"localPlayerName"`
	Sync             bool                  `mapstructure:"sync"`
	HaveMove3        bool                  `mapstructure:"haveMove3"`
	LogPlayerActions bool                  `mapstructure:"logPlayerActions"`
	ImitatePlayer    string                `mapstructure:"imitatePlayer"`
	IgnoredPlayers   []string              `mapstructure:"ignoredPlayers"`
	ServerEncoding   string                `mapstructure:"serverEncoding"`
	RosterDB         string                `mapstructure:"rosterDB"`
	ReplayWorkers    int                   `mapstructure:"replayWorkers"`
	Debug            bool                  `mapstructure:"debug"`
	MapSizes         map[string]world.Size `mapstructure:"mapSizes"`
}

const settingsFile = "settings.json"

func newSettingsViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetDefault("host", "server.themanaworld.org")
	v.SetDefault("serverPort", 5122)
	v.SetDefault("relayURL", "")
	v.SetDefault("localPlayerID", 0)
	v.SetDefault("localPlayerName", "")
	v.SetDefault("sync", false)
	v.SetDefault("haveMove3", true)
	v.SetDefault("logPlayerActions", true)
	v.SetDefault("imitatePlayer", "")
	v.SetDefault("ignoredPlayers", []string{})
	v.SetDefault("serverEncoding", "iso-8859-1")
	v.SetDefault("rosterDB", filepath.Join("data", "roster.db"))
	v.SetDefault("replayWorkers", 4)
	v.SetDefault("debug", false)

	v.SetConfigName(strings.TrimSuffix(settingsFile, filepath.Ext(settingsFile)))
	v.SetConfigType("json")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("GOMANA")
	v.AutomaticEnv()
	return v
}

// loadSettings reads settings.json from dir. A missing file leaves the
// defaults in place.
func loadSettings(dir string) (Settings, error) {
	v := newSettingsViper(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read %s: %w", settingsFile, err)
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode %s: %w", settingsFile, err)
	}
	if s.ReplayWorkers < 1 {
		s.ReplayWorkers = 1
	}
	if s.RosterDB != "" && !filepath.IsAbs(s.RosterDB) {
		s.RosterDB = filepath.Join(dir, s.RosterDB)
	}
	return s, nil
}

// saveSettings writes s back to settings.json in dir.
func saveSettings(dir string, s Settings) error {
	v := viper.New()
	v.Set("host", s.Host)
	v.Set("serverPort", s.ServerPort)
	v.Set("relayURL", s.RelayURL)
	v.Set("localPlayerID", s.LocalPlayerID)
	v.Set("localPlayerName", s.LocalPlayerName)
	v.Set("sync", s.Sync)
	v.Set("haveMove3", s.HaveMove3)
	v.Set("logPlayerActions", s.LogPlayerActions)
	v.Set("imitatePlayer", s.ImitatePlayer)
	v.Set("ignoredPlayers", s.IgnoredPlayers)
	v.Set("serverEncoding", s.ServerEncoding)
	v.Set("rosterDB", relativeTo(dir, s.RosterDB))
	v.Set("replayWorkers", s.ReplayWorkers)
	v.Set("debug", s.Debug)
	if len(s.MapSizes) > 0 {
		v.Set("mapSizes", s.MapSizes)
	}
	path := filepath.Join(dir, settingsFile)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// relativeTo rewrites p relative to dir when p lies inside it, undoing the
// join loadSettings applies.
func relativeTo(dir, p string) string {
	if p == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

func (s Settings) ignored(name string) bool {
	for _, n := range s.IgnoredPlayers {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
