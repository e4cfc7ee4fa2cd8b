/*
 * AudioControl is a control daemon for audio players.
 * Copyright (C) 2025 Tero Vierimaa
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package config contains application-wide configuration. The configuration
// is a single JSON document loaded at startup; missing values get sensible
// defaults and the file is written back on first run.
package config

import (
	"fmt"
	"os"
	"path"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// AppConfig is the configuration loaded during startup.
var AppConfig *Config

// ConfigFile is the path of the loaded configuration file.
var ConfigFile string

var configIsEmpty bool

// Config is the root configuration document.
type Config struct {
	General  General                  `json:"general"`
	Cache    Cache                    `json:"cache"`
	Players  map[string]Player        `json:"players"`
	Services map[string]Service       `json:"services"`
	Volume   Volume                   `json:"volume"`
}

// General holds daemon-wide options.
type General struct {
	ListenAddr string `json:"listen_addr" mapstructure:"listen_addr"`
	LogFile    string `json:"log_file" mapstructure:"log_file"`
	LogLevel   string `json:"log_level" mapstructure:"log_level"`
	// SecurityStore is the encrypted credential file. Empty disables the
	// store.
	SecurityStore string `json:"security_store" mapstructure:"security_store"`
	// VarDir holds mutable state, settings live in <var_dir>/db.
	VarDir string `json:"var_dir" mapstructure:"var_dir"`
	// MusicDir enables the local cover-art provider when set.
	MusicDir string `json:"music_dir" mapstructure:"music_dir"`
}

// Cache holds cache paths and the default entry age limit.
type Cache struct {
	AttributeCachePath string `json:"attribute_cache_path" mapstructure:"attribute_cache_path"`
	ImageCachePath     string `json:"image_cache_path" mapstructure:"image_cache_path"`
	// MaxAgeDays is the age used by the cleaning pass at startup, 0 means
	// entries never expire by age.
	MaxAgeDays int `json:"max_age_days" mapstructure:"max_age_days"`
}

// Player declares one controller. Type selects the backend kind, the
// remaining fields are kind-specific.
type Player struct {
	Type string `json:"type" mapstructure:"type"`
	// mpd / lms
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
	// lms player id, usually the player mac
	PlayerID string `json:"player_id" mapstructure:"player_id"`
	// mpris bus name
	BusName string `json:"bus_name" mapstructure:"bus_name"`
	// librespot / shairport event transports
	EventPipe string `json:"event_pipe" mapstructure:"event_pipe"`
	Address   string `json:"address" mapstructure:"address"`
	// generic player surface
	Capabilities      []string `json:"capabilities" mapstructure:"capabilities"`
	InitialState      string   `json:"initial_state" mapstructure:"initial_state"`
	SupportsAPIEvents bool     `json:"supports_api_events" mapstructure:"supports_api_events"`
}

// Service gates and configures one external provider.
type Service struct {
	Enable      bool   `json:"enable" mapstructure:"enable"`
	RateLimitMs int    `json:"rate_limit_ms" mapstructure:"rate_limit_ms"`
	APIKey      string `json:"api_key" mapstructure:"api_key"`
	APISecret   string `json:"api_secret" mapstructure:"api_secret"`
	SessionKey  string `json:"session_key" mapstructure:"session_key"`
	Username    string `json:"username" mapstructure:"username"`
	// Token is a bearer token for services authenticating that way.
	Token string `json:"token" mapstructure:"token"`
}

// Volume configures the optional volume control.
type Volume struct {
	Enable         bool `json:"enable" mapstructure:"enable"`
	Step           int  `json:"step" mapstructure:"step"`
	InitialPercent int  `json:"initial_percent" mapstructure:"initial_percent"`
}

func (g *General) sanitize() {
	if g.ListenAddr == "" {
		g.ListenAddr = "127.0.0.1:8600"
	}
	if g.LogLevel == "" {
		g.LogLevel = logrus.InfoLevel.String()
	}
	if g.VarDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logrus.Fatalf("cannot determine var directory, please set 'general.var_dir'")
		}
		g.VarDir = path.Join(home, ".local", "share", AppNameLower)
	}
}

func (c *Cache) sanitize() {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	root := path.Join(base, AppNameLower)
	if c.AttributeCachePath == "" {
		c.AttributeCachePath = path.Join(root, "attributes", "cache.db")
	}
	if c.ImageCachePath == "" {
		c.ImageCachePath = path.Join(root, "images")
	}
}

func (v *Volume) sanitize() {
	if v.Step == 0 {
		v.Step = 5
	}
	if v.InitialPercent == 0 {
		v.InitialPercent = 50
	}
}

// SettingsPath is the settings database location under the var directory.
func (c *Config) SettingsPath() string {
	return path.Join(c.General.VarDir, "db", "settings.db")
}

// ConfigFromViper reads the full application configuration from viper.
func ConfigFromViper() error {
	conf := &Config{}
	if err := viper.UnmarshalKey("general", &conf.General); err != nil {
		return fmt.Errorf("read general config: %w", err)
	}
	if err := viper.UnmarshalKey("cache", &conf.Cache); err != nil {
		return fmt.Errorf("read cache config: %w", err)
	}
	if err := viper.UnmarshalKey("players", &conf.Players); err != nil {
		return fmt.Errorf("read players config: %w", err)
	}
	if err := viper.UnmarshalKey("services", &conf.Services); err != nil {
		return fmt.Errorf("read services config: %w", err)
	}
	if err := viper.UnmarshalKey("volume", &conf.Volume); err != nil {
		return fmt.Errorf("read volume config: %w", err)
	}

	configIsEmpty = len(conf.Players) == 0 && conf.General.ListenAddr == ""
	conf.General.sanitize()
	conf.Cache.sanitize()
	conf.Volume.sanitize()
	if conf.Players == nil {
		conf.Players = map[string]Player{}
	}
	if conf.Services == nil {
		conf.Services = map[string]Service{}
	}

	AppConfig = conf
	logrus.Debugf("Effective config - listen: %s, players: %d, services: %d",
		conf.General.ListenAddr, len(conf.Players), len(conf.Services))
	return nil
}

// Service returns a service's configuration, zero value when absent.
func (c *Config) Service(name string) Service {
	return c.Services[name]
}

// ServiceEnabled tells whether a service is declared and enabled.
func (c *Config) ServiceEnabled(name string) bool {
	service, ok := c.Services[name]
	return ok && service.Enable
}

// NewConfigFile creates an empty config file with defaults so the first run
// leaves an editable document behind.
func NewConfigFile(name string) error {
	if name == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("cannot determine config directory: %w", err)
		}
		dir = path.Join(dir, AppNameLower)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		name = path.Join(dir, AppNameLower+".json")
	}
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := file.WriteString("{}\n"); err != nil {
		file.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close config file: %w", err)
	}
	viper.SetConfigFile(name)
	return nil
}

// SaveConfig writes the effective configuration back on first run so every
// recognised option is visible to the user.
func SaveConfig() error {
	if !configIsEmpty {
		return nil
	}
	viper.Set("general", AppConfig.General)
	viper.Set("cache", AppConfig.Cache)
	viper.Set("volume", AppConfig.Volume)
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("save config file: %w", err)
	}
	return nil
}
