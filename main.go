package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdulahad-2/Sage-video-downloader/internal"
	"github.com/joho/godotenv"
)

// main loads the service configuration (an optional .env file, then an
// optional YAML config merged with environment overrides), constructs
// the service container and runs it until interrupted.
func main() {
	configPath := flag.String("config", "", "path to an optional YAML configuration file")
	flag.Parse()

	_ = godotenv.Load()

	config := internal.SageConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Panicf("Failed to load configuration - %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sage, err := internal.New(config)
	if err != nil {
		log.Panicf("Failed to initialise services - %v\n", err)
	}

	if err := sage.Run(ctx); err != nil {
		log.Panicf("Service stopped with error - %v\n", err)
	}
}
