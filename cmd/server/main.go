package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/viper"

	"github.com/Ieysn/watch-party/internal/config"
	"github.com/Ieysn/watch-party/internal/server"
	"github.com/Ieysn/watch-party/internal/signaling"
)

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	flag.Parse()

	config.LoadConfig(*configFilePath)
	logFilePointer, err := config.ConfigureLogger()
	if err != nil {
		slog.Error("error while configuring logger", "err", err)
		os.Exit(1)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	// 1. Create the Hub
	hub := signaling.NewHub()

	// 2. Run the Hub in a separate goroutine
	// This starts the hub's main event loop (the 'select' statement)
	go hub.Run()

	// 3. Assemble the HTTP surface (/ws, /health, optional static app)
	mux := server.NewMux(hub)

	// 4. Start the server
	addr := fmt.Sprintf(":%d", viper.GetInt("port"))
	slog.Info("starting signaling relay", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("error during listen and serve", "err", err)
		os.Exit(1)
	}
}
