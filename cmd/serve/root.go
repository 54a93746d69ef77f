package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/backup"
	"github.com/ValentinKolb/sKV/lib/jobs"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("rpc")

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the sKV server",
		Long: `Start the sKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SKV_<flag> (e.g. SKV_SESSIONS=16)

The server creates the register channel and serves up to --sessions clients at the same time, further clients wait until a session ends. If --jobs-dir is given, the job files of that directory are processed while the server is running, so their writes notify subscribed clients.

Signals:
  SIGUSR1          disconnect all clients
  SIGINT, SIGTERM  shut down`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	d := common.DefaultServerConfig()

	key := "sessions"
	ServeCmd.Flags().Int(key, d.Sessions, cmdUtil.WrapString("Number of clients served at the same time"))

	key = "notification-buffer"
	ServeCmd.Flags().Int(key, d.NotificationBuffer, cmdUtil.WrapString("Notifications queued per client before further notifications are dropped"))

	key = "jobs-dir"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("Directory of job files (*.job) to process while serving"))

	key = "metrics-endpoint"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("Address to expose Prometheus metrics on (e.g. localhost:9100). Disabled if empty"))

	cmdUtil.SetupStoreFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	*serveCmdConfig = cmdUtil.GetServerConfig()
	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the sKV server
func run(_ *cobra.Command, _ []string) error {
	config := *serveCmdConfig

	codec, err := cmdUtil.GetCodec(config.Codec, config.MaxStringLength, config.MaxPathLength)
	if err != nil {
		return err
	}
	t, err := cmdUtil.GetServerTransport(config.Transport)
	if err != nil {
		return err
	}

	var sink backup.ISink
	if config.JobsDir != "" {
		if sink, err = cmdUtil.GetBackupSink(config.Backup, config.JobsDir); err != nil {
			return err
		}
	}

	st := cmdUtil.NewStore(config, sink)
	defer func() {
		if err := st.Close(); err != nil {
			Logger.Errorf("Failed to close store: %v", err)
		}
	}()

	srv := server.NewRPCServer(config, st, t, codec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-usr1:
				Logger.Infof("Received SIGUSR1, disconnecting all clients")
				srv.DisconnectAll()
			}
		}
	})

	if config.MetricsEndpoint != "" {
		g.Go(func() error {
			return serveMetrics(gctx, config.MetricsEndpoint)
		})
	}

	if config.JobsDir != "" {
		g.Go(func() error {
			runner := jobs.NewRunner(jobs.NewExecutor(st, config.MaxBatchSize), config.MaxThreads)
			var err error
			if config.Watch {
				err = runner.Watch(gctx, config.JobsDir)
			} else {
				err = runner.RunDir(gctx, config.JobsDir)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				Logger.Errorf("Processing %s failed: %v", config.JobsDir, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// serveMetrics exposes all metrics in the Prometheus text format until ctx is done
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	s := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
