package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/sKV/lib/backup"
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/bucket"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/ValentinKolb/sKV/rpc/transport/fifo"
	"github.com/ValentinKolb/sKV/rpc/transport/tcp"
	"github.com/ValentinKolb/sKV/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env files and makes viper read SKV_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("skv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupStoreFlags adds the flags configuring the store and the job processing
func SetupStoreFlags(cmd *cobra.Command) {
	d := common.DefaultServerConfig()

	key := "max-batch-size"
	cmd.Flags().Int(key, d.MaxBatchSize, WrapString("Maximum number of keys of a single WRITE, READ or DELETE (0 = unlimited)"))

	key = "max-subscriptions"
	cmd.Flags().Int(key, d.MaxSubscriptions, WrapString("Maximum number of subscriptions per client (0 = unlimited)"))

	key = "max-subscribers-per-key"
	cmd.Flags().Int(key, d.MaxSubscribersPerKey, WrapString("Maximum number of subscribers of a single key (0 = unlimited)"))

	key = "max-threads"
	cmd.Flags().Int(key, d.MaxThreads, WrapString("Maximum number of job files processed at the same time"))

	key = "max-backups"
	cmd.Flags().Int(key, d.MaxBackups, WrapString("A backup only starts while at most this many backups are in flight"))

	key = "watch"
	cmd.Flags().Bool(key, false, WrapString("Keep running and process job files created in the job directory later"))

	key = "backup-target"
	cmd.Flags().String(key, d.Backup.Target, WrapString("Where backups are written (file, s3). file writes them next to the job files"))

	key = "s3-endpoint"
	cmd.Flags().String(key, "", WrapString("S3 endpoint (host:port) for the s3 backup target"))

	key = "s3-bucket"
	cmd.Flags().String(key, "", WrapString("S3 bucket for the s3 backup target"))

	key = "s3-prefix"
	cmd.Flags().String(key, "", WrapString("Object name prefix for the s3 backup target"))

	key = "s3-region"
	cmd.Flags().String(key, "", WrapString("S3 region for the s3 backup target"))

	key = "s3-access-key"
	cmd.Flags().String(key, "", WrapString("S3 access key for the s3 backup target"))

	key = "s3-secret-key"
	cmd.Flags().String(key, "", WrapString("S3 secret key for the s3 backup target"))

	key = "s3-insecure"
	cmd.Flags().Bool(key, false, WrapString("Use plain http for the s3 backup target"))
}

// GetServerConfig reads the server configuration from viper
func GetServerConfig() common.ServerConfig {
	return common.ServerConfig{
		Endpoint:             viper.GetString("endpoint"),
		Transport:            viper.GetString("transport"),
		Codec:                viper.GetString("codec"),
		Sessions:             viper.GetInt("sessions"),
		MaxSubscriptions:     viper.GetInt("max-subscriptions"),
		MaxSubscribersPerKey: viper.GetInt("max-subscribers-per-key"),
		MaxStringLength:      viper.GetInt("max-string-length"),
		MaxPathLength:        viper.GetInt("max-path-length"),
		MaxBatchSize:         viper.GetInt("max-batch-size"),
		NotificationBuffer:   viper.GetInt("notification-buffer"),
		JobsDir:              viper.GetString("jobs-dir"),
		MaxThreads:           viper.GetInt("max-threads"),
		MaxBackups:           viper.GetInt("max-backups"),
		Watch:                viper.GetBool("watch"),
		Backup: common.BackupConfig{
			Target: viper.GetString("backup-target"),
			S3: common.S3Config{
				Endpoint:  viper.GetString("s3-endpoint"),
				Bucket:    viper.GetString("s3-bucket"),
				Prefix:    viper.GetString("s3-prefix"),
				Region:    viper.GetString("s3-region"),
				AccessKey: viper.GetString("s3-access-key"),
				SecretKey: viper.GetString("s3-secret-key"),
				Insecure:  viper.GetBool("s3-insecure"),
			},
		},
		MetricsEndpoint: viper.GetString("metrics-endpoint"),
		LogLevel:        viper.GetString("log-level"),
	}
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		ClientID:         viper.GetString("client-id"),
		Endpoint:         viper.GetString("endpoint"),
		ChannelDir:       viper.GetString("channel-dir"),
		Transport:        viper.GetString("transport"),
		Codec:            viper.GetString("codec"),
		MaxStringLength:  viper.GetInt("max-string-length"),
		MaxPathLength:    viper.GetInt("max-path-length"),
		MaxSubscriptions: viper.GetInt("max-subscriptions"),
		LogLevel:         viper.GetString("log-level"),
	}
}

// --------------------------------------------------------------------------
// Factories
// --------------------------------------------------------------------------

// GetCodec creates the codec selected by the configuration
func GetCodec(name string, maxStringLength, maxPathLength int) (serializer.ICodec, error) {
	return serializer.NewCodec(name, maxStringLength, maxPathLength)
}

// GetServerTransport creates the server transport with the given name
func GetServerTransport(name string) (transport.IServerTransport, error) {
	switch name {
	case "fifo", "":
		return fifo.NewFifoServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// GetClientTransport creates the client transport with the given name
func GetClientTransport(name string) (transport.IClientTransport, error) {
	switch name {
	case "fifo", "":
		return fifo.NewFifoClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// GetBackupSink creates the backup sink of the configuration. Backups of the file
// target are written to dir.
func GetBackupSink(config common.BackupConfig, dir string) (backup.ISink, error) {
	switch config.Target {
	case "file", "":
		return backup.NewFileSink(dir), nil
	case "s3":
		return backup.NewS3Sink(backup.S3Config{
			Endpoint:  config.S3.Endpoint,
			Bucket:    config.S3.Bucket,
			Prefix:    config.S3.Prefix,
			Region:    config.S3.Region,
			AccessKey: config.S3.AccessKey,
			SecretKey: config.S3.SecretKey,
			Insecure:  config.S3.Insecure,
		})
	default:
		return nil, fmt.Errorf("invalid backup target %s", config.Target)
	}
}

// NewStore creates the store of the process: a bucket table behind a local store
func NewStore(config common.ServerConfig, sink backup.ISink) store.IStore {
	return lstore.NewLocalStore(func(notifier db.INotifier) db.KVDB {
		return bucket.NewBucketDB(&bucket.DBOptions{
			MaxStringLength:        config.MaxStringLength,
			MaxSubscribersPerEntry: config.MaxSubscribersPerKey,
			Notifier:               notifier,
		})
	}, lstore.Options{
		MaxBatchSize:     config.MaxBatchSize,
		MaxSubscriptions: config.MaxSubscriptions,
		MaxBackups:       config.MaxBackups,
		BackupSink:       sink,
	})
}
