package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/logger"
	"github.com/lomoval/notecal/internal/rabbit"
	"github.com/lomoval/notecal/internal/storagebuilder"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/reminder_config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	config, err := NewConfig(configFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	err = logger.PrepareLogger(config.Logger)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	r := rabbit.New(config.Rabbit)
	if err := r.Connect(); err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer r.Close()

	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		if err := stor.Close(ctx); err != nil {
			log.Errorf("failed to close storage: %v", err)
		}
	}()

	notecal, err := app.New(stor, nil, nil, nil, config.App)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	c := cron.New()
	_, err = c.AddFunc(config.Reminder.Schedule, func() {
		if err := remind(ctx, notecal, r, time.Now(), config.Reminder); err != nil {
			log.Errorf("reminder run failed: %v", err)
		}
	})
	if err != nil {
		log.Errorf("incorrect reminder schedule %q: %v", config.Reminder.Schedule, err)
		return
	}
	c.Start()
	log.Info("reminder is running...")

	<-ctx.Done()
	<-c.Stop().Done()
}
