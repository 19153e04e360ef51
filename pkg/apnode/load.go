package apnode

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"go.apnode.dev/apnode/pkg/apnode/config"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. APNODE_TRACKER_HOLDDURATION=5s.
const EnvPrefix = "APNODE"

// LoadConfig loads the config from the given viper instance.
// If a config file is set, it is read. Keys missing from the file keep
// their value from config.DefaultConfig. The returned config is not validated.
func LoadConfig(v *viper.Viper) (*config.Config, error) {
	if err := SetDefaults(v); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %q: %w", v.ConfigFileUsed(), err)
		}
	}

	// Copy so that a reload never shares state with a previous load.
	cfg := config.DefaultConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults registers every key of config.DefaultConfig as a viper default
// so that environment variables can override keys absent from the config file.
func SetDefaults(v *viper.Viper) error {
	b, err := yaml.Marshal(config.DefaultConfig)
	if err != nil {
		return fmt.Errorf("error encoding default config: %w", err)
	}
	var m map[string]any
	if err = yaml.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("error decoding default config: %w", err)
	}
	setDefaults(v, "", m)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}
