package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/spf13/cobra"
)

var (
	clientCmdConfig = &common.ClientConfig{}
	ClientCmd       = &cobra.Command{
		Use:   "client [script]",
		Short: "Connect to the sKV server and subscribe to keys",
		Long: `Connect to the sKV server and read commands from the given script or from stdin:
  SUBSCRIBE [key]
  UNSUBSCRIBE [key]
  DELAY <delay_ms>
  DISCONNECT
  HELP

Every response is printed as "Server returned <status> for operation: <op>", every
notification as "(<key>,<value>)" or "(<key>,DELETED)". The client disconnects at
the end of the input.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "client-id"
	ClientCmd.Flags().String(key, "", cmdUtil.WrapString("Id appended to the channel names (req<id>, resp<id>, notif<id>). A random id is used if empty"))

	key = "channel-dir"
	ClientCmd.Flags().String(key, os.TempDir(), cmdUtil.WrapString("Directory the client channels are created in"))

	key = "max-subscriptions"
	ClientCmd.Flags().Int(key, common.DefaultServerConfig().MaxSubscriptions, cmdUtil.WrapString("Maximum number of subscriptions, should match the server (0 = unlimited)"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	*clientCmdConfig = cmdUtil.GetClientConfig()
	return common.InitLoggers(clientCmdConfig.LogLevel)
}

func run(_ *cobra.Command, args []string) error {
	config := *clientCmdConfig

	codec, err := cmdUtil.GetCodec(config.Codec, config.MaxStringLength, config.MaxPathLength)
	if err != nil {
		return err
	}
	t, err := cmdUtil.GetClientTransport(config.Transport)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.NewRPCClient(config, t, codec)
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}
	fmt.Fprintf(os.Stderr, "Connected as client %s\n", c.ID())

	return RunSession(ctx, c, in, os.Stdout)
}
