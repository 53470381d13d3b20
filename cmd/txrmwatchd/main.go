package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"txrmwatch/internal/config"
	"txrmwatch/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	socketPath := flag.String("socket", "", "IPC socket path override")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   *logLevel,
		SocketPath: *socketPath,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
