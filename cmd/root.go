package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/sKV/cmd/client"
	"github.com/ValentinKolb/sKV/cmd/run"
	"github.com/ValentinKolb/sKV/cmd/serve"
	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "skv",
		Short: "in-memory key-value store with change subscriptions",
		Long: fmt.Sprintf(`sKV (v%s)

An in-memory key-value store processing batch job files concurrently.
Clients connect over named pipes (or sockets) and subscribe to keys
to get notified about every change of them.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sKV v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(run.RunCmd)
	RootCmd.AddCommand(client.ClientCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	d := common.DefaultServerConfig()

	key := "endpoint"
	RootCmd.PersistentFlags().String(key, d.Endpoint, util.WrapString("The register channel of the server (a path for fifo and unix, host:port for tcp)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, d.Transport, util.WrapString("transport to use (fifo, unix, tcp)"))
	key = "codec"
	RootCmd.PersistentFlags().String(key, d.Codec, util.WrapString("wire format to use (fixed, binary, json)"))
	key = "max-string-length"
	RootCmd.PersistentFlags().Int(key, d.MaxStringLength, util.WrapString("Keys and values are truncated to this many bytes"))
	key = "max-path-length"
	RootCmd.PersistentFlags().Int(key, d.MaxPathLength, util.WrapString("Maximum length of a channel path"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, d.LogLevel, util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
