package main

import (
	"fmt"
	"strings"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/logger"
	"github.com/lomoval/notecal/internal/storagebuilder"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type Config struct {
	Logger  logger.Config
	Storage storagebuilder.Config
	Auth    auth.Config
	App     app.Config
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	v := viper.New()
	v.SetConfigFile(configFile)

	v.SetDefault("logger.level", "WARN")
	v.SetDefault("storage.storageType", "sql")
	v.SetDefault("storage.database.driver", "postgres")
	v.SetDefault("storage.database.port", "5432")
	v.SetDefault("auth.tokenTTL", "24h")
	v.SetDefault("auth.issuer", "notecal")
	v.SetDefault("app.timezone", "America/Mexico_City")

	err := v.ReadInConfig()
	if err != nil {
		return config, fmt.Errorf("failed to read config %q: %w", configFile, err)
	}
	for _, key := range v.AllKeys() {
		env := v.GetString(key)
		if strings.HasPrefix(env, envConfigPrefix) {
			err := v.BindEnv(key, env[len(envConfigPrefix):])
			if err != nil {
				return Config{}, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return config, nil
}
