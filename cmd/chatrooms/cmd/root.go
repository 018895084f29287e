package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatrooms",
	Short: "Real-time chat room server",
	Long: `chatrooms runs a WebSocket chat server with named rooms, live occupancy
counts and persisted message history.

Available commands:
  serve     Start the HTTP and WebSocket server
  rooms     Print the rooms the server seeds on start
  topics    List the activity events published on the internal bus
  version   Print the version

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
