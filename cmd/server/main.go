package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/jdnichols/parley/internal/api"
	"github.com/jdnichols/parley/internal/config"
	"github.com/jdnichols/parley/internal/server"
	"github.com/jdnichols/parley/internal/stats"
	"github.com/jdnichols/parley/internal/store"
)

var (
	addr    string
	dataDir string
)

func main() {
	cfg, err := config.New()
	if err != nil {
		color.Errorln("config:", err)
		os.Exit(1)
	}

	flag.StringVar(&addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&dataDir, "data-dir", cfg.DataDir, "directory for snapshot and log files")
	flag.Parse()

	cfg.Addr = addr
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		color.Errorln("config:", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		color.Errorln("open log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logger := log.New(io.MultiWriter(logFile, os.Stderr), "[parley] ", log.LstdFlags)

	fileStore := store.NewFileStore(cfg.UsersPath(), cfg.RoomsPath(), cfg.HistoryPath(), logger)

	mux := http.NewServeMux()
	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, cfg, fileStore, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	srv := api.NewServer(mux, logger, chatServer, statsUpdater, cfg, logFile)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	color.Greenp("parley chat server ")
	color.Cyanln("ws://" + cfg.Addr + "/ws")
	logger.Printf("starting on %s (data dir %s)", cfg.Addr, cfg.DataDir)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	if err := chatServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
