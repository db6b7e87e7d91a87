package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/brutella/hap"

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

var revision = "HEAD"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Erro.Printf("bad config: %s", err.Error())
		os.Exit(2)
	}

	setupLogger(cfg)
	log.Info.Printf("🇭🇰 revision: %s", revision)

	devices := toggle.DefaultDevices(cfg.Lang)
	m := metrics.New(metrics.WithRetention(cfg.MetricsRetention))
	pub := makePublisher(cfg)

	server, err := srv.New(srv.Opts{
		Addr:      cfg.WebAddr,
		Climate:   sensors.NewRandom(),
		Interval:  cfg.SensorInterval,
		Lang:      cfg.Lang,
		Labels:    toggle.LabelsFor(cfg.Lang),
		Devices:   devices,
		HapSrv:    makeHkSrv(cfg, devices),
		Metrics:   m,
		Prom:      metrics.NewProm(),
		Publisher: pub,
		Notifier:  makeNotifier(cfg),
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

func setupLogger(cfg config.Config) {
	if cfg.NoColor {
		log.NoColor()
	}
	if !cfg.Debug {
		log.Debg.Off()
	}
}

func makeHkSrv(cfg config.Config, devices []toggle.Device) srv.HapServer {
	if !cfg.HomeKit {
		return &homekit.NoopHap{}
	}

	names := map[string]string{}
	for _, d := range devices {
		names[d.ID] = d.Name
	}

	db := hap.NewFsStore(cfg.HomeKitDB)
	hk, err := homekit.NewHapSrv(homekit.DefaultOpts(db, cfg.HomeKitPin, names[homekit.LightID], names[homekit.FanID]))
	if err != nil {
		log.Erro.Printf("can't create HAP server: %s", err.Error())
		os.Exit(1)
	}

	return hk
}

func makeNotifier(cfg config.Config) srv.Notifier {
	if cfg.NtfyURL == "" {
		return notifier.NewNoop()
	}

	return notifier.NewNtfy(cfg.NtfyURL)
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
		log.Erro.Printf("can't connect to mqtt: %s", err.Error())
		os.Exit(1)
	}

	return pub
}
