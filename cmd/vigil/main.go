package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"vigil/internal/app"
	"vigil/internal/config"
	"vigil/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	path := *cfgPath
	if path == "" {
		path = os.Getenv("VIGIL_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}

	application, err := app.NewApp(cfg, app.WithConfigPath(path))
	if err != nil {
		log.Fatalf("initializing app failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("vigil starting (config=%s)", path)
	if err := application.Run(ctx); err != nil {
		log.Fatalf("run failed: %v", err)
	}
	logger.Infof("vigil stopped")
}
