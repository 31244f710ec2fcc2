/*
 * Copyright (c) 2023 shenjunzheng@gmail.com
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultConfigType = "json"
)

var (
	ErrInvalidDirectory  = errors.New("invalid directory path")
	ErrMissingConfigName = errors.New("config name not specified")
)

// Manager reads one named config file from a directory, overlaid by
// environment variables under EnvPrefix and by values set at runtime.
type Manager struct {
	App         string
	EnvPrefix   string
	Path        string
	Name        string
	WriteConfig bool

	Viper *viper.Viper
}

// New prepares a Manager for <path>/<name>.json. An empty path means
// ~/.<app>, an empty name means app. With writeConfig set, missing files are
// created on Load and SetConfig persists every change.
func New(app, path, name, envPrefix string, writeConfig bool) (*Manager, error) {
	if len(app) == 0 {
		return nil, ErrMissingConfigName
	}

	if len(path) == 0 {
		path = DefaultDir(app)
	}
	if err := PrepareDir(path); err != nil {
		return nil, err
	}
	if len(name) == 0 {
		name = app
	}

	v := viper.New()
	v.SetConfigType(DefaultConfigType)
	v.AddConfigPath(path)
	v.SetConfigName(name)

	if len(envPrefix) != 0 {
		v.SetEnvPrefix(strings.ToUpper(envPrefix))
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	return &Manager{
		App:         app,
		EnvPrefix:   envPrefix,
		Path:        path,
		Name:        name,
		Viper:       v,
		WriteConfig: writeConfig,
	}, nil
}

// DefaultDir is ~/.<app>, or <tmp>/.<app> without a home directory.
func DefaultDir(app string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, "."+app)
}

// Load reads the config file, if any, and decodes every known key into
// conf. A missing file is not an error.
func (c *Manager) Load(conf interface{}) error {
	if err := c.Viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Error().Err(err).Msg("read config failed")
			return err
		}
		log.Debug().Str("path", c.Path).Str("name", c.Name).Msg("config file not found, using defaults")
		if c.WriteConfig {
			if err := c.Viper.SafeWriteConfig(); err != nil {
				return err
			}
		}
	}
	return c.Viper.Unmarshal(conf, decoderConfig())
}

// LoadFile decodes a specific file into conf instead of the managed one.
func (c *Manager) LoadFile(file string, conf interface{}) error {
	c.Viper.SetConfigFile(file)
	if err := c.Viper.ReadInConfig(); err != nil {
		return err
	}
	return c.Viper.Unmarshal(conf, decoderConfig())
}

// SetConfig overrides key for every later Load.
func (c *Manager) SetConfig(key string, value interface{}) error {
	c.Viper.Set(key, value)
	if c.WriteConfig {
		if err := c.Viper.WriteConfig(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Manager) GetConfig() map[string]interface{} {
	return c.Viper.AllSettings()
}

// ConfigFile is the file Load read, empty when none was found.
func (c *Manager) ConfigFile() string {
	return c.Viper.ConfigFileUsed()
}

// PrepareDir creates path if needed and fails if it is not a directory.
func PrepareDir(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		return os.MkdirAll(path, 0755)
	}
	if !stat.IsDir() {
		log.Debug().Msgf("%s is not a directory", path)
		return ErrInvalidDirectory
	}
	return nil
}
