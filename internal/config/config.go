package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int
	}
	Archive struct {
		Path string
	}
	Alert struct {
		TTLHours      int
		RetentionDays int
		SweepMinutes  int
	}
	Notify struct {
		Slack struct {
			Token   string
			Channel string
		}
		Email struct {
			SMTPHost string
			SMTPPort int
			From     string
			Password string
		}
		SMS struct {
			GatewayURL string
			APIKey     string
		}
	}
	Report struct {
		Enabled    bool
		Recipients []string
	}
	Log struct {
		Level string
		File  string
	}
}

// Load reads config.yaml from the working directory, overlaid with
// FORESTGUARD_* environment variables. A missing file falls back to
// defaults.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("forestguard")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("archive.path", "data/forestguard.db")
	viper.SetDefault("alert.ttlhours", 72)
	viper.SetDefault("alert.retentiondays", 7)
	viper.SetDefault("alert.sweepminutes", 10)
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
