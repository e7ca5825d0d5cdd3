package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	probeName  string
	stunServer string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "probe",
	Short: "Headless responder for the watch-party signaling relay",
	Long: `Probe joins a room on the signaling relay as a headless responder: it
answers the sharer's WebRTC offer, exchanges ICE candidates, and reports
incoming tracks and connection state. Use it to verify a relay deployment
end to end without opening a second browser.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "ws://localhost:3000/ws", "websocket URL of the relay")
	rootCmd.PersistentFlags().StringVar(&probeName, "name", "probe", "display name to join with")
	rootCmd.PersistentFlags().StringVar(&stunServer, "stun", "stun:stun.l.google.com:19302", "STUN server for ICE gathering")
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "info", "log level (none, error, warn, info, debug)")
}
