package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/logger"
	"github.com/lomoval/notecal/internal/rabbit"
	"github.com/lomoval/notecal/internal/storagebuilder"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type ReminderConfig struct {
	// Schedule is a cron expression, every minute by default.
	Schedule  string
	Lead      time.Duration
	Workers   int
	MaxErrors int
}

type Config struct {
	Logger   logger.Config
	Rabbit   rabbit.Config
	Storage  storagebuilder.Config
	App      app.Config
	Reminder ReminderConfig
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	viper.SetConfigFile(configFile)

	viper.SetDefault("rabbit.host", "127.0.0.1")
	viper.SetDefault("rabbit.port", "5672")
	viper.SetDefault("rabbit.user", "user")
	viper.SetDefault("rabbit.password", "pass")
	viper.SetDefault("rabbit.queue", "notecal.reminders")
	viper.SetDefault("logger.level", "WARN")
	viper.SetDefault("storage.storageType", "memory")
	viper.SetDefault("storage.database.driver", "postgres")
	viper.SetDefault("storage.database.port", "5432")
	viper.SetDefault("app.timezone", "America/Mexico_City")
	viper.SetDefault("reminder.schedule", "* * * * *")
	viper.SetDefault("reminder.lead", "10m")
	viper.SetDefault("reminder.workers", 4)
	viper.SetDefault("reminder.maxErrors", 10)

	err := viper.ReadInConfig()
	if err != nil {
		return config, fmt.Errorf("failed to read config %q: %w", configFile, err)
	}
	keys := viper.AllKeys()
	for _, key := range keys {
		env := viper.GetString(key)
		if strings.HasPrefix(env, envConfigPrefix) {
			err := viper.BindEnv(key, env[len(envConfigPrefix):])
			if err != nil {
				return config, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return config, nil
}
