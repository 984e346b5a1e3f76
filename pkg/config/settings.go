package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Settings are process-level switches read from AFFIANCE_* environment
// variables.
type Settings struct {
	NoVerify bool
	LogLevel string
	LogJSON  bool
}

// LoadSettings reads the current environment.
func LoadSettings() Settings {
	v := viper.New()
	v.SetEnvPrefix("AFFIANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("no_verify", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	return Settings{
		NoVerify: truthy(v.GetString("no_verify")),
		LogLevel: v.GetString("log_level"),
		LogJSON:  v.GetBool("log_json"),
	}
}

// truthy treats any non-empty value other than an explicit negative as set.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
