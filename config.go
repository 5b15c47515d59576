// config.go: server settings with layered file, environment, and default sources
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// GameMode identifies the play mode the server advertises to pinging clients.
type GameMode string

const (
	GameModeSurvival  GameMode = "survival"
	GameModeCreative  GameMode = "creative"
	GameModeAdventure GameMode = "adventure"
	GameModeSpectator GameMode = "spectator"
)

// ParseGameMode maps a textual game mode onto its canonical value. Matching is
// case-insensitive and accepts the single-letter and numeric aliases found in
// legacy server.properties files (0=survival, 1=creative, 2=adventure).
func ParseGameMode(value string) (GameMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "survival", "s", "0":
		return GameModeSurvival, nil
	case "creative", "c", "1":
		return GameModeCreative, nil
	case "adventure", "a", "2":
		return GameModeAdventure, nil
	case "spectator":
		return GameModeSpectator, nil
	default:
		return GameModeSurvival, NewConfigInvalidError("game_mode", nil).
			WithContext("value", value)
	}
}

// ServerSettings holds the operator-facing configuration of a runtime.
//
// Values are resolved in three layers: compiled-in defaults, then an optional
// settings file (TOML, YAML, or JSON, chosen by extension), then BASALT_*
// environment variables. Later layers win.
type ServerSettings struct {
	// PluginsDir is the directory scanned for plugins at bootstrap.
	PluginsDir string `json:"plugins_dir" yaml:"plugins_dir" toml:"plugins_dir" env:"BASALT_PLUGINS_DIR"`

	// MOTD is the message of the day shown in server list pings.
	MOTD string `json:"motd" yaml:"motd" toml:"motd" env:"BASALT_MOTD"`

	// MaxPlayers caps the advertised player slots.
	MaxPlayers int `json:"max_players" yaml:"max_players" toml:"max_players" env:"BASALT_MAX_PLAYERS"`

	// LevelName is the world name advertised in pings.
	LevelName string `json:"level_name" yaml:"level_name" toml:"level_name" env:"BASALT_LEVEL_NAME"`

	// GameMode is the default play mode advertised in pings.
	GameMode GameMode `json:"game_mode" yaml:"game_mode" toml:"game_mode" env:"BASALT_GAME_MODE"`

	// Port and PortV6 are the advertised IPv4 and IPv6 game ports.
	Port   int `json:"port" yaml:"port" toml:"port" env:"BASALT_PORT"`
	PortV6 int `json:"port_v6" yaml:"port_v6" toml:"port_v6" env:"BASALT_PORT_V6"`

	// ProtocolVersion and MinecraftVersion describe the network protocol
	// advertised to clients.
	ProtocolVersion  int    `json:"protocol_version" yaml:"protocol_version" toml:"protocol_version" env:"BASALT_PROTOCOL_VERSION"`
	MinecraftVersion string `json:"minecraft_version" yaml:"minecraft_version" toml:"minecraft_version" env:"BASALT_MINECRAFT_VERSION"`

	// ServerGUID uniquely identifies this server instance in pings. Generated
	// when left empty.
	ServerGUID string `json:"server_guid" yaml:"server_guid" toml:"server_guid" env:"BASALT_SERVER_GUID"`
}

// DefaultServerSettings returns the compiled-in configuration baseline.
func DefaultServerSettings() *ServerSettings {
	return &ServerSettings{
		PluginsDir:       "plugins",
		MOTD:             "Basalt Server",
		MaxPlayers:       20,
		LevelName:        "world",
		GameMode:         GameModeSurvival,
		Port:             19132,
		PortV6:           19133,
		ProtocolVersion:  819,
		MinecraftVersion: "1.21.100",
	}
}

// ApplyDefaults fills zero-valued fields from the baseline and generates a
// server GUID when none was configured.
func (s *ServerSettings) ApplyDefaults() {
	defaults := DefaultServerSettings()
	if s.PluginsDir == "" {
		s.PluginsDir = defaults.PluginsDir
	}
	if s.MOTD == "" {
		s.MOTD = defaults.MOTD
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = defaults.MaxPlayers
	}
	if s.LevelName == "" {
		s.LevelName = defaults.LevelName
	}
	if s.GameMode == "" {
		s.GameMode = defaults.GameMode
	}
	if s.Port == 0 {
		s.Port = defaults.Port
	}
	if s.PortV6 == 0 {
		s.PortV6 = defaults.PortV6
	}
	if s.ProtocolVersion == 0 {
		s.ProtocolVersion = defaults.ProtocolVersion
	}
	if s.MinecraftVersion == "" {
		s.MinecraftVersion = defaults.MinecraftVersion
	}
	if s.ServerGUID == "" {
		s.ServerGUID = uuid.NewString()
	}
}

// Validate checks field constraints and normalizes the game mode spelling.
func (s *ServerSettings) Validate() error {
	if s.MaxPlayers < 1 {
		return NewConfigInvalidError("max_players", nil).
			WithContext("value", s.MaxPlayers)
	}
	if s.Port < 1 || s.Port > 65535 {
		return NewConfigInvalidError("port", nil).
			WithContext("value", s.Port)
	}
	if s.PortV6 < 1 || s.PortV6 > 65535 {
		return NewConfigInvalidError("port_v6", nil).
			WithContext("value", s.PortV6)
	}
	if s.ProtocolVersion < 1 {
		return NewConfigInvalidError("protocol_version", nil).
			WithContext("value", s.ProtocolVersion)
	}
	mode, err := ParseGameMode(string(s.GameMode))
	if err != nil {
		return err
	}
	s.GameMode = mode
	return nil
}

// Clone returns an independent copy of the settings.
func (s *ServerSettings) Clone() *ServerSettings {
	clone := *s
	return &clone
}

// LoadServerSettings resolves settings from the given file plus environment
// overrides. An empty path skips the file layer entirely; a missing file is an
// error so typos in --config flags surface instead of silently yielding
// defaults.
func LoadServerSettings(path string) (*ServerSettings, error) {
	settings, err := readServerSettings(path)
	if err != nil {
		return nil, err
	}
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// readServerSettings layers the file and environment sources without applying
// defaults or validation, so callers can inspect which fields were actually
// configured.
func readServerSettings(path string) (*ServerSettings, error) {
	settings := &ServerSettings{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, NewFileNotFoundError(path)
			}
			return nil, NewConfigInvalidError("path", err).
				WithContext("path", path)
		}
		if err := decodeSettings(path, data, settings); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(settings); err != nil {
		return nil, NewConfigInvalidError("environment", err)
	}
	return settings, nil
}

// decodeSettings unmarshals file content by extension. Unknown extensions fall
// back to YAML, which also covers JSON documents.
func decodeSettings(path string, data []byte, settings *ServerSettings) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, settings)
	case ".json":
		err = json.Unmarshal(data, settings)
	default:
		err = yaml.Unmarshal(data, settings)
	}
	if err != nil {
		return NewConfigInvalidError("file", err).
			WithContext("path", path)
	}
	return nil
}
