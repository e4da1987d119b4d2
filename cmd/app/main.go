package main

import (
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "shiptrack",
		Short: "Parcel shipment tracking service",
		Long: `shiptrack registers shipments, lets delivery agents claim them and drive
them through delivery, and streams live agent positions and status
notifications over WebSocket.

Configuration is read from SHIPTRACK_* environment variables and an
optional .env file in the working directory.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newAgentCommand(),
		newTokenCommand(),
	)
	return root
}
