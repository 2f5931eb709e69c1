package util

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/serializer"
	"github.com/meridiankv/meridian-go/core/transport"
	"github.com/meridiankv/meridian-go/core/transport/tcp"
	"github.com/meridiankv/meridian-go/core/transport/unix"
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

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the common cluster connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoints"
	cmd.PersistentFlags().String(key, "localhost:4440", WrapString("The addresses of the Meridian nodes as a comma-separated list"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutSecond, WrapString("The per-operation timeout in seconds"))

	key = "retries"
	cmd.PersistentFlags().Int(key, common.DefaultRetryCount, WrapString("How many times to retry a failed operation"))

	key = "num-kv-connections"
	cmd.PersistentFlags().Int(key, common.DefaultNumKvConnections, WrapString("Minimum (and initial) number of connections per endpoint"))

	key = "max-kv-connections"
	cmd.PersistentFlags().Int(key, common.DefaultMaxKvConnections, WrapString("Maximum number of connections per endpoint. Set equal to num-kv-connections to disable adaptive scaling"))

	key = "scale-interval"
	cmd.PersistentFlags().Int(key, common.DefaultScaleIntervalMs, WrapString("Demand sampling interval of the pool monitor (in ms)"))

	key = "max-builder-capacity"
	cmd.PersistentFlags().Int(key, common.DefaultMaxBuilderCapacity, WrapString("Largest operation builder that is retained for reuse (in bytes)"))

	key = "max-retained-builders"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum number of retained operation builders (0 = 4 x logical CPU count)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The socket write buffer size (in KB, 0 = OS default)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The socket read buffer size (in KB, 0 = OS default)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp transport only)"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The TCP keepalive interval (in seconds, tcp transport only)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The TCP linger time (in seconds, tcp transport only)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to collect client side metrics"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("The level at which logs are emitted (debug, info, warn, error)"))

	key = "bucket"
	cmd.PersistentFlags().String(key, "default", WrapString("The bucket to operate on"))

	key = "scope"
	cmd.PersistentFlags().String(key, "_default", WrapString("The scope to operate on"))

	key = "collection"
	cmd.PersistentFlags().String(key, "_default", WrapString("The collection to operate on"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("meridian")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads the cluster client configuration from viper
func GetClientConfig() common.ClientConfig {
	conf := common.DefaultClientConfig(strings.Split(viper.GetString("endpoints"), ",")...)

	conf.TimeoutSecond = viper.GetInt("timeout")
	conf.Pool.RetryCount = viper.GetInt("retries")
	conf.Pool.NumKvConnections = viper.GetInt("num-kv-connections")
	conf.Pool.MaxKvConnections = viper.GetInt("max-kv-connections")
	conf.Pool.ScaleIntervalMs = viper.GetInt("scale-interval")
	conf.Builder.MaxBuilderCapacity = viper.GetInt("max-builder-capacity")
	conf.Builder.MaxRetainedBuilders = viper.GetInt("max-retained-builders")
	conf.Socket = common.SocketConf{
		WriteBufferSize: viper.GetInt("write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
	}
	conf.TCP = common.TCPConf{
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
	}
	conf.MetricsEnabled = viper.GetBool("metrics")
	conf.LogLevel = viper.GetString("log-level")

	return conf
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IOperationSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetConnector creates a client transport based on configuration
func GetConnector() (transport.IConnector, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewConnector(), nil
	case "unix":
		return unix.NewConnector(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetListener creates a server transport based on configuration
func GetListener() (transport.IListener, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewListener(), nil
	case "unix":
		return unix.NewListener(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetBucketPath returns the bucket, scope and collection to operate on
func GetBucketPath() (bucket, scope, collection string) {
	return viper.GetString("bucket"), viper.GetString("scope"), viper.GetString("collection")
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
