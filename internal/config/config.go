package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads configuration from file into config, which must be a pointer to
// a struct. Values already set on config act as defaults, and every key can be
// overridden from the environment (dots become underscores, e.g.
// souvenir.webhook_url -> SOUVENIR_WEBHOOK_URL).
func Load(file string, config any) error {
	v := viper.New()

	defaults := make(map[string]any)
	if err := mapstructure.Decode(config, &defaults); err != nil {
		return fmt.Errorf("decode defaults: %v", err)
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return fmt.Errorf("merge defaults: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config from file %s: %v", file, err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %v", err)
	}

	return nil
}
