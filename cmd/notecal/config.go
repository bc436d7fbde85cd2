package main

import (
	"fmt"
	"strings"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/logger"
	internalgrpc "github.com/lomoval/notecal/internal/server/grpc"
	internalhttp "github.com/lomoval/notecal/internal/server/http"
	"github.com/lomoval/notecal/internal/storagebuilder"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type Config struct {
	HTTPServer internalhttp.Config
	GrpcServer internalgrpc.Config
	Logger     logger.Config
	Storage    storagebuilder.Config
	Blob       storagebuilder.BlobConfig
	Theme      storagebuilder.ThemeConfig
	Auth       auth.Config
	App        app.Config
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	viper.SetConfigFile(configFile)

	viper.SetDefault("httpServer.host", "127.0.0.1")
	viper.SetDefault("httpServer.port", "8005")
	viper.SetDefault("httpServer.maxUploadSize", 64<<20)
	viper.SetDefault("grpcServer.host", "127.0.0.1")
	viper.SetDefault("grpcServer.port", "8006")
	viper.SetDefault("logger.level", "WARN")
	viper.SetDefault("logger.format", "text")
	viper.SetDefault("storage.storageType", "memory")
	viper.SetDefault("storage.database.driver", "postgres")
	viper.SetDefault("storage.database.port", "5432")
	viper.SetDefault("blob.type", "none")
	viper.SetDefault("blob.local.dir", "./data/blobs")
	viper.SetDefault("blob.local.baseURL", "/api/files")
	viper.SetDefault("blob.local.maxSize", 32<<20)
	viper.SetDefault("blob.s3.region", "us-east-1")
	viper.SetDefault("blob.s3.urlExpiry", "15m")
	viper.SetDefault("blob.s3.maxSize", 32<<20)
	viper.SetDefault("theme.type", "memory")
	viper.SetDefault("theme.redis.prefix", "notecal:")
	viper.SetDefault("auth.tokenTTL", "24h")
	viper.SetDefault("auth.issuer", "notecal")
	viper.SetDefault("app.timezone", "America/Mexico_City")
	viper.SetDefault("app.previewWidth", 600)

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
				return Config{}, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return config, nil
}
