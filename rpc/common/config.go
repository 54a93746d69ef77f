package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// S3Config holds the parameters of the S3 backup target
type S3Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	Insecure  bool
}

// BackupConfig selects where backups are written
type BackupConfig struct {
	// Target is "file" (next to the job files) or "s3"
	Target string
	S3     S3Config
}

// ServerConfig holds all configuration parameters of the server and the batch runner.
type ServerConfig struct {
	// Register channel and wire format
	Endpoint  string
	Transport string
	Codec     string

	// Capacity limits
	Sessions             int
	MaxSubscriptions     int
	MaxSubscribersPerKey int
	MaxStringLength      int
	MaxPathLength        int
	MaxBatchSize         int
	NotificationBuffer   int

	// Job processing
	JobsDir    string
	MaxThreads int
	MaxBackups int
	Watch      bool
	Backup     BackupConfig

	// Observability
	MetricsEndpoint string
	LogLevel        string
}

// DefaultServerConfig returns the configuration used when no flag is given
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:             "/tmp/skv.register",
		Transport:            "fifo",
		Codec:                "fixed",
		Sessions:             8,
		MaxSubscriptions:     10,
		MaxSubscribersPerKey: 0,
		MaxStringLength:      40,
		MaxPathLength:        40,
		MaxBatchSize:         32,
		NotificationBuffer:   64,
		MaxThreads:           4,
		MaxBackups:           1,
		Backup:               BackupConfig{Target: "file"},
		LogLevel:             "info",
	}
}

// Validate checks the configuration for values that can not work
func (c *ServerConfig) Validate() error {
	if c.Sessions <= 0 {
		return fmt.Errorf("sessions must be positive, got %d", c.Sessions)
	}
	if c.MaxStringLength <= 0 {
		return fmt.Errorf("max string length must be positive, got %d", c.MaxStringLength)
	}
	if c.MaxPathLength <= 0 {
		return fmt.Errorf("max path length must be positive, got %d", c.MaxPathLength)
	}
	if c.MaxThreads <= 0 {
		return fmt.Errorf("max threads must be positive, got %d", c.MaxThreads)
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("max backups must not be negative, got %d", c.MaxBackups)
	}
	switch c.Backup.Target {
	case "file":
	case "s3":
		if c.Backup.S3.Endpoint == "" || c.Backup.S3.Bucket == "" {
			return fmt.Errorf("s3 backup target requires endpoint and bucket")
		}
	default:
		return fmt.Errorf("invalid backup target: %s. must be one of file, s3", c.Backup.Target)
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Register Channel", c.Endpoint)
	addField("Transport", c.Transport)
	addField("Codec", c.Codec)
	addField("Sessions", strconv.Itoa(c.Sessions))
	addField("Notification Buffer", strconv.Itoa(c.NotificationBuffer))

	addSection("Limits")
	addField("Max Subscriptions", strconv.Itoa(c.MaxSubscriptions))
	addField("Max Subscribers/Key", limit(c.MaxSubscribersPerKey))
	addField("Max String Length", humanize.Bytes(uint64(c.MaxStringLength)))
	addField("Max Path Length", humanize.Bytes(uint64(c.MaxPathLength)))
	addField("Max Batch Size", limit(c.MaxBatchSize))

	addSection("Jobs")
	if c.JobsDir == "" {
		addField("Directory", "-")
	} else {
		addField("Directory", c.JobsDir)
		addField("Max Threads", strconv.Itoa(c.MaxThreads))
		addField("Max Backups", strconv.Itoa(c.MaxBackups))
		addField("Watch", strconv.FormatBool(c.Watch))
		addField("Backup Target", c.Backup.Target)
		if c.Backup.Target == "s3" {
			addField("S3 Endpoint", c.Backup.S3.Endpoint)
			addField("S3 Bucket", c.Backup.S3.Bucket+"/"+c.Backup.S3.Prefix)
		}
	}

	addSection("Observability")
	addField("Metrics Endpoint", orDash(c.MetricsEndpoint))
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	ClientID         string
	Endpoint         string // register channel of the server
	ChannelDir       string // directory the client's channels are created in
	Transport        string
	Codec            string
	MaxStringLength  int
	MaxPathLength    int
	MaxSubscriptions int
	LogLevel         string
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Client ID", c.ClientID)
	addField("Register Channel", c.Endpoint)
	addField("Channel Directory", c.ChannelDir)
	addField("Transport", c.Transport)
	addField("Codec", c.Codec)
	addField("Max Subscriptions", strconv.Itoa(c.MaxSubscriptions))

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func limit(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
