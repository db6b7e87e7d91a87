package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/egregors/hkdash/internal/config"
	"github.com/egregors/hkdash/internal/homekit"
	"github.com/egregors/hkdash/internal/metrics"
	"github.com/egregors/hkdash/internal/mqtt"
	"github.com/egregors/hkdash/internal/notifier"
	"github.com/egregors/hkdash/internal/sensors"
	"github.com/egregors/hkdash/internal/toggle"
	"github.com/egregors/hkdash/log"
	"github.com/egregors/hkdash/srv"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Erro.Printf("bad config: %s", err.Error())
		os.Exit(2)
	}
	if cfg.NoColor {
		log.NoColor()
	}

	m := metrics.New(metrics.WithRetention(cfg.MetricsRetention))
	pub := makePublisher(cfg)

	server, err := srv.New(srv.Opts{
		Addr:      cfg.WebAddr,
		Climate:   sensors.NewRandom(),
		Interval:  cfg.SensorInterval,
		Lang:      cfg.Lang,
		Labels:    toggle.LabelsFor(cfg.Lang),
		Devices:   toggle.DefaultDevices(cfg.Lang),
		HapSrv:    &homekit.NoopHap{},
		Metrics:   m,
		Prom:      metrics.NewProm(),
		Publisher: pub,
		Notifier:  notifier.NewNoop(),
	})
	if err != nil {
		log.Erro.Printf("can't create server: %s", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go graceful(cancel)

	if err := server.Run(ctx); err != nil {
		log.Erro.Printf("can't run server: %s", err.Error())
		os.Exit(1)
	}

	m.Close()
	pub.Close()
	log.Info.Println("bye")
}

func graceful(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	log.Info.Println("server shutdown...")

	signal.Stop(c)

	log.Info.Println("ctx cancel")
	cancel()
}

type publisher interface {
	srv.Publisher
	Close()
}

func makePublisher(cfg config.Config) publisher {
	if cfg.MQTTBroker == "" {
		return mqtt.Noop{}
	}

	pub, err := mqtt.Connect(mqtt.Config{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Topic:    cfg.MQTTTopic,
	})
	if err != nil {
		log.Warn.Printf("run without mqtt: %s", err.Error())
		return mqtt.Noop{}
	}

	return pub
}
