package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridiankv/meridian-go/cmd/kv"
	"github.com/meridiankv/meridian-go/cmd/query"
	"github.com/meridiankv/meridian-go/cmd/serve"
	"github.com/meridiankv/meridian-go/cmd/util"
)

const (
	Version = "0.4.2"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "meridian",
		Short: "Meridian key-value database tooling",
		Long: fmt.Sprintf(`Meridian (v%s)

Command line tooling for the Meridian key-value database: run a local
development server, perform document operations against a cluster and
benchmark it.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the Meridian tooling",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("meridian v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(query.QueryCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (binary, json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
