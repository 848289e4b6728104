// main.go
// Application entry point: loads configuration, initializes the logger and
// runs the live-reload dev server until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/erilali/devserver/internal/api"
	"github.com/erilali/devserver/internal/logger"
	"github.com/erilali/devserver/internal/util"
)

func main() {
	config, err := util.LoadConfig(util.ConfigPath())
	if err != nil {
		fmt.Printf("Error loading config: %v, using defaults\n", err)
	}

	logger.InitLogger(config.Logger)
	serverLogger := logger.NewLogger("server")
	serverLogger.WithFields(map[string]interface{}{
		"level":       config.Logger.Level,
		"log_to_file": config.Logger.LogToFile,
		"log_to_json": config.Logger.LogToJSON,
		"watch_mode":  config.WatchMode,
	}).Debug("Logger configuration details")

	config, err = config.Resolve()
	if err != nil {
		serverLogger.Fatalf("Invalid root directory: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.StartServer(ctx, config, serverLogger); err != nil {
		serverLogger.Fatalf("Server error: %v", err)
	}
}
