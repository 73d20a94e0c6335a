package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/mgcomm/verto/internal/domain"
)

// Config is the explicit configuration object threaded through session
// construction. Nothing in the engine reads process-wide state.
type Config struct {
	ServerURL      string             `mapstructure:"server_url"`
	Login          string             `mapstructure:"login"`
	Password       string             `mapstructure:"password"`
	APIURL         string             `mapstructure:"api_url"`
	ReconnectDelay time.Duration      `mapstructure:"reconnect_delay"`
	PreferredCodec string             `mapstructure:"preferred_codec"`
	ICEServers     []domain.IceServer `mapstructure:"ice_servers"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server_url", "wss://localhost:8082")
	v.SetDefault("reconnect_delay", "1s")
	v.SetDefault("preferred_codec", "H264")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
