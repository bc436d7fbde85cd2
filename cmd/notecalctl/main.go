package main

import (
	"context"
	"os"
	"time"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/logger"
	"github.com/lomoval/notecal/internal/storagebuilder"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp builds the application from configFile. The returned close function
// releases the storage.
func openApp(configFile string) (*app.App, func(), error) {
	config, err := NewConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.PrepareLogger(config.Logger); err != nil {
		return nil, nil, err
	}
	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		if err := stor.Close(ctx); err != nil {
			log.Errorf("failed to close storage: %v", err)
		}
	}

	var tokens *auth.Tokens
	if config.Auth.Secret != "" {
		if tokens, err = auth.NewTokens(config.Auth); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	a, err := app.New(stor, nil, tokens, nil, config.App)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return a, closeFn, nil
}
