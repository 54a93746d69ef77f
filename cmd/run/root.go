package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/jobs"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/spf13/cobra"
)

var (
	runCmdConfig = &common.ServerConfig{}
	RunCmd       = &cobra.Command{
		Use:   "run <jobs-dir>",
		Short: "Process all job files of a directory",
		Long: `Process every job file (*.job) of a directory and write the results to <job>.out next to it. At most --max-threads files are processed at the same time, all of them share one store.

Job files contain one command per line:
  WRITE [(key,value),(key2,value2),...]
  READ [key,key2,...]
  DELETE [key,key2,...]
  SHOW
  WAIT <delay_ms>
  BACKUP
  HELP`,
		Args:    cobra.ExactArgs(1),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cmdUtil.SetupStoreFlags(RunCmd)
}

func processConfig(cmd *cobra.Command, args []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	*runCmdConfig = cmdUtil.GetServerConfig()
	runCmdConfig.JobsDir = args[0]
	// the batch runner serves no clients
	runCmdConfig.Sessions = common.DefaultServerConfig().Sessions
	if err := runCmdConfig.Validate(); err != nil {
		return err
	}
	return common.InitLoggers(runCmdConfig.LogLevel)
}

func run(_ *cobra.Command, _ []string) error {
	config := *runCmdConfig

	info, err := os.Stat(config.JobsDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", config.JobsDir)
	}

	sink, err := cmdUtil.GetBackupSink(config.Backup, config.JobsDir)
	if err != nil {
		return err
	}
	st := cmdUtil.NewStore(config, sink)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := jobs.NewRunner(jobs.NewExecutor(st, config.MaxBatchSize), config.MaxThreads)
	if config.Watch {
		err = runner.Watch(ctx, config.JobsDir)
	} else {
		err = runner.RunDir(ctx, config.JobsDir)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
