package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/n7pkt/flbridge/pkg/config"
	"github.com/n7pkt/flbridge/pkg/logging"
)

var (
	configPath = flag.String("config", "flbridge.yaml", "Configuration file path")
	version    = flag.Bool("version", false, "Show version information")
)

const (
	Version = "0.1.0-dev"
	Build   = "development"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("flbridge version %s (%s)\n", Version, Build)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logging.InitGlobalLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseGlobalLogger()

	logging.Infof("main", "flbridge version %s starting...", Version)
	logging.Infof("main", "flrig endpoint: %s", cfg.FlrigURL())
	logging.Infof("main", "receiver endpoint: %s", cfg.ReceiverAddr())
	logging.Infof("main", "rigctld server: %s", cfg.RigctldAddr())
	if cfg.Web.Enabled {
		logging.Infof("main", "web interface: http://%s:%d", cfg.Web.BindAddress, cfg.Web.Port)
	}

	daemon, err := NewBridgeDaemon(cfg)
	if err != nil {
		logging.Errorf("main", "Failed to create daemon: %v", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := daemon.Start(); err != nil {
		logging.Errorf("main", "Failed to start daemon: %v", err)
		os.Exit(1)
	}

	logging.Info("main", "flbridge started successfully")

	<-sigChan
	logging.Info("main", "Shutting down...")

	if err := daemon.Stop(); err != nil {
		logging.Errorf("main", "Error during shutdown: %v", err)
	}

	logging.Info("main", "flbridge stopped")
}

// loadConfig reads the config file, falling back to built-in defaults
// when the default file is simply absent.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == "flbridge.yaml" {
			log.Printf("No config file found, using defaults")
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}
