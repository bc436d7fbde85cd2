package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lomoval/notecal/internal/logger"
	"github.com/lomoval/notecal/internal/push"
	"github.com/lomoval/notecal/internal/rabbit"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/sender_config.yaml", "Path to configuration file")
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

	deliverer := push.NewDeliverer(config.Push)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	log.Info("sender is running...")
	err = r.Consume(ctx, func(ctx context.Context, m push.Message) error {
		log.WithField("owner", m.OwnerID).WithField("id", m.ID).Debug("sending reminder")
		return deliverer.Deliver(ctx, m)
	})
	if err != nil {
		log.Errorf("sender stopped: %v", err)
	}
}
