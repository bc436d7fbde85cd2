package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/logger"
	internalgrpc "github.com/lomoval/notecal/internal/server/grpc"
	internalhttp "github.com/lomoval/notecal/internal/server/http"
	"github.com/lomoval/notecal/internal/storagebuilder"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = time.Second * 3

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Errorf("notecal stopped: %v", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := NewConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	err = logger.PrepareLogger(config.Logger)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := stor.Close(ctx); err != nil {
			log.Errorf("failed to close storage: %v", err)
		}
	}()

	blobs, err := storagebuilder.NewBlobStore(config.Blob)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	themes, closeThemes, err := storagebuilder.NewThemeStore(config.Theme)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := closeThemes(); err != nil {
			log.Errorf("failed to close theme store: %v", err)
		}
	}()
	tokens, err := auth.NewTokens(config.Auth)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	notecal, err := app.New(stor, blobs, tokens, themes, config.App)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	httpServer := internalhttp.NewServer(config.HTTPServer, notecal)
	grpcServer := internalgrpc.NewServer(config.GrpcServer, notecal)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.Start(ctx, runtime.NewServeMux())
	})
	g.Go(func() error {
		return grpcServer.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Stop(stopCtx); err != nil {
			log.Error("failed to stop http server: " + err.Error())
		}
		if err := grpcServer.Stop(stopCtx); err != nil {
			log.Error("failed to stop grpc server: " + err.Error())
		}
		return nil
	})

	log.Info("notecal is running...")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
