package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/joho/godotenv"
	"github.com/scopelabel/scopelabel/server"
	"github.com/scopelabel/scopelabel/server/configdb"
	"github.com/scopelabel/scopelabel/server/remote"
)

func main() {
	// .env is optional, and real environment variables win over it.
	godotenv.Load()

	defaultDB := "$HOME/scopelabel/config.sqlite"
	defaultService := os.Getenv("SCOPELABEL_SERVICE_URL")
	if defaultService == "" {
		defaultService = "http://localhost:9449"
	}

	parser := argparse.NewParser("scopelabel", "Annotation rendering and synchronization server")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration database file", Default: defaultDB})
	serviceURL := parser.String("s", "service", &argparse.Options{Help: "Inference service base URL", Default: defaultService})
	port := parser.Int("p", "port", &argparse.Options{Help: "HTTP listen port", Default: 8484})
	heartbeat := parser.Int("", "heartbeat", &argparse.Options{Help: "Heartbeat interval in seconds", Default: 15})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	dbPath := *configFile
	if home, _ := os.UserHomeDir(); home != "" {
		dbPath = os.Expand(dbPath, func(name string) string {
			if name == "HOME" {
				return home
			}
			return os.Getenv(name)
		})
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0770); err != nil {
		logger.Errorf("Failed to create config directory: %v", err)
		os.Exit(1)
	}

	cfg, err := configdb.NewConfigDB(logger, dbPath)
	if err != nil {
		logger.Errorf("Failed to open config database: %v", err)
		os.Exit(1)
	}

	remoteClient := remote.NewClient(logger, *serviceURL)

	srv, err := server.NewServer(logger, remoteClient, cfg)
	if err != nil {
		logger.Errorf("Failed to start server: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.RunHeartbeat(ctx, time.Duration(*heartbeat)*time.Second)

	// Best effort. The inference service might not be up yet; the asset list
	// can be refreshed through the API once it is.
	if err := srv.RefreshAssets(ctx); err != nil {
		logger.Warnf("Initial asset refresh failed: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		logger.Infof("Received signal %v, shutting down", s)
		cancel()
		srv.Shutdown()
	}()

	if err := srv.ListenAndServe(*port); err != nil {
		logger.Errorf("HTTP server failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Shutdown complete")
}
