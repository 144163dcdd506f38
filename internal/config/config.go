package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "AMM"

// load merges defaults, environment variables, flags and the config file.
// Keys are flag names; AMM_FEE_BPS overrides fee-bps.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// feeBps reads the fee rate, rejecting values that do not fit the pool.
func feeBps(v *viper.Viper) (uint16, error) {
	fee := v.GetInt("fee-bps")
	if fee < 0 || fee >= 10000 {
		return 0, fmt.Errorf("fee-bps must be in [0, 10000), got %d", fee)
	}
	return uint16(fee), nil
}

func decimals(v *viper.Viper, key string) (uint8, error) {
	d := v.GetInt(key)
	if d < 0 || d > 77 {
		return 0, fmt.Errorf("%s must be in [0, 77], got %d", key, d)
	}
	return uint8(d), nil
}
