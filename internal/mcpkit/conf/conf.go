package conf

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/pkg/config"
)

const (
	AppName          = "mcpkit"
	ServerConfigName = "mcpkit-server"
	EnvPrefix        = "MCPKIT"
	EnvConfigDir     = "MCPKIT_DIR"
)

// LoadServiceConfig loads the server config from the config dir, the
// environment and cmdConf, later sources winning.
func LoadServiceConfig(configPath string, cmdConf map[string]any) (*ServerConfig, *config.Manager, error) {

	if configPath == "" {
		configPath = os.Getenv(EnvConfigDir)
	}

	scm, err := config.New(AppName, configPath, ServerConfigName, EnvPrefix, false)
	if err != nil {
		log.Error().Err(err).Msg("load server config failed")
		return nil, nil, errors.Config("load server config failed", err)
	}

	conf := &ServerConfig{}
	config.SetDefaults(scm.Viper, conf, ServerDefaults)

	for key, value := range cmdConf {
		if err := scm.SetConfig(key, value); err != nil {
			return nil, nil, errors.ConfigInvalid(key, err)
		}
	}

	if err := scm.Load(conf); err != nil {
		log.Error().Err(err).Msg("load server config failed")
		return nil, nil, errors.Config("load server config failed", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, nil, err
	}

	b, _ := json.Marshal(conf)
	log.Info().Msgf("server config: %s", string(b))

	return conf, scm, nil
}

// Validate rejects prompts and resources that could never be served.
func (c *ServerConfig) Validate() error {
	seen := make(map[string]bool, len(c.Prompts))
	for i, p := range c.Prompts {
		if p.Name == "" {
			return errors.ConfigMissing(indexed("prompts", i, "name"))
		}
		if seen[p.Name] {
			return errors.ConfigInvalid(indexed("prompts", i, "name"), errors.Validation("duplicate prompt: "+p.Name, nil))
		}
		seen[p.Name] = true
	}

	seen = make(map[string]bool, len(c.Resources))
	for i, r := range c.Resources {
		if r.URI == "" {
			return errors.ConfigMissing(indexed("resources", i, "uri"))
		}
		if seen[r.URI] {
			return errors.ConfigInvalid(indexed("resources", i, "uri"), errors.Validation("duplicate resource: "+r.URI, nil))
		}
		seen[r.URI] = true
	}

	if c.ResourceDir != "" {
		stat, err := os.Stat(c.ResourceDir)
		if err != nil {
			return errors.ConfigInvalid("resource_dir", err)
		}
		if !stat.IsDir() {
			return errors.ConfigInvalid("resource_dir", config.ErrInvalidDirectory)
		}
	}
	return nil
}

func indexed(list string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, i, field)
}
