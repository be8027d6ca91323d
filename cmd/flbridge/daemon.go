package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/n7pkt/flbridge/pkg/config"
	"github.com/n7pkt/flbridge/pkg/flrig"
	"github.com/n7pkt/flbridge/pkg/gqrx"
	"github.com/n7pkt/flbridge/pkg/logging"
	"github.com/n7pkt/flbridge/pkg/rigctld"
	"github.com/n7pkt/flbridge/pkg/storage"
	"github.com/n7pkt/flbridge/pkg/syncer"
)

// BridgeDaemon ties the rig, the receiver, the rigctld server and the
// reconciler together and owns their lifecycles.
type BridgeDaemon struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	rig        flrig.Controller
	rigClient  *flrig.Client
	receiver   *gqrx.Client
	server     *rigctld.Server
	reconciler *syncer.Reconciler
	tuneLog    *storage.TuneLog

	webServer *http.Server
	startTime time.Time
}

// NewBridgeDaemon wires the components from configuration. Nothing is
// started; Start performs the network setup.
func NewBridgeDaemon(cfg *config.Config) (*BridgeDaemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	daemon := &BridgeDaemon{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.Flrig.Mock {
		logging.Warn("daemon", "using mock rig, no flrig connection will be made")
		daemon.rig = flrig.NewMockRig()
	} else {
		rigTimeout := time.Duration(cfg.Flrig.TimeoutMs) * time.Millisecond
		client, err := flrig.NewClient(cfg.FlrigURL(), rigTimeout)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create flrig client: %w", err)
		}
		daemon.rigClient = client
		daemon.rig = client
	}

	recvTimeout := time.Duration(cfg.Receiver.TimeoutMs) * time.Millisecond
	daemon.receiver = gqrx.NewClient(cfg.ReceiverAddr(), recvTimeout)

	daemon.server = rigctld.NewServer(cfg.RigctldAddr(), daemon.rig)

	daemon.reconciler = syncer.NewReconciler(
		daemon.rig,
		daemon.receiver,
		time.Duration(cfg.Sync.PollIntervalMs)*time.Millisecond,
		time.Duration(cfg.Sync.ReconnectIntervalMs)*time.Millisecond,
		cfg.Sync.SyncMode,
	)

	if cfg.Storage.DatabasePath != "" {
		tuneLog, err := storage.NewTuneLog(cfg.Storage.DatabasePath, cfg.Storage.MaxEvents)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open tune log: %w", err)
		}
		daemon.tuneLog = tuneLog
		daemon.server.SetRecorder(tuneLog)
		daemon.reconciler.SetRecorder(tuneLog)
	}

	if cfg.Web.Enabled {
		daemon.setupWebServer()
	}

	return daemon, nil
}

// Start probes the rig, connects the receiver and launches the server
// loops. An unreachable rig is fatal; an unreachable receiver is not,
// the reconciler keeps retrying it.
func (d *BridgeDaemon) Start() error {
	d.startTime = time.Now()

	freq, err := d.rig.GetFrequency()
	if err != nil {
		return fmt.Errorf("flrig probe failed: %w", err)
	}
	logging.Infof("daemon", "rig online at %d Hz, mode %s", freq, d.rig.GetMode())

	if err := d.receiver.Connect(); err != nil {
		logging.Warnf("daemon", "receiver not reachable, will keep retrying: %v", err)
	} else {
		logging.Info("daemon", "receiver connected")
	}

	if err := d.server.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start rigctld server: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.reconciler.Run(d.ctx)
	}()

	if d.webServer != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			logging.Infof("daemon", "web server listening on %s", d.webServer.Addr)
			if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Errorf("daemon", "web server error: %v", err)
			}
		}()
	}

	return nil
}

// Stop shuts everything down in reverse order and waits for the
// goroutines to drain.
func (d *BridgeDaemon) Stop() error {
	d.cancel()

	if d.webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := d.webServer.Shutdown(shutdownCtx); err != nil {
			logging.Warnf("daemon", "web server shutdown: %v", err)
		}
	}

	d.server.Stop()

	if err := d.receiver.Close(); err != nil {
		logging.Warnf("daemon", "receiver close: %v", err)
	}
	if d.rigClient != nil {
		if err := d.rigClient.Close(); err != nil {
			logging.Warnf("daemon", "flrig client close: %v", err)
		}
	}
	if d.tuneLog != nil {
		if err := d.tuneLog.Close(); err != nil {
			logging.Warnf("daemon", "tune log close: %v", err)
		}
	}

	d.wg.Wait()
	return nil
}

func (d *BridgeDaemon) setupWebServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.GET("/radio", d.handleGetRadio)
		api.PUT("/radio/frequency", d.handleSetFrequency)
		api.PUT("/radio/mode", d.handleSetMode)
		api.GET("/config", d.handleGetConfig)
		api.GET("/events", d.handleGetEvents)
		api.GET("/ws", d.handleStateWebSocket)
	}

	d.webServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port),
		Handler: router,
	}
}
