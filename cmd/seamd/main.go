// Command seamd is the seam daemon: it supervises a syncthing process
// and exposes control over a Unix socket for the seam CLI.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"seam/internal/config"
	"seam/internal/daemon"
	"seam/internal/ipc"
	"seam/internal/journal"
	"seam/internal/logging"
	"seam/internal/notifications"
	"seam/internal/supervisor"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		logger.Error("open journal store", logging.Error(err))
		return
	}

	sup := supervisor.New(cfg, logger, supervisor.Options{})
	notifier := notifications.NewService(cfg)

	d, err := daemon.New(cfg, logger, sup, store, notifier)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if cfg.Supervisor.StartOnLaunch {
		if err := d.StartSyncthing(ctx); err != nil {
			logger.Warn("start syncthing on launch", logging.Error(err))
		}
	}

	<-ctx.Done()
	logger.Info("seamd shutting down")
}
