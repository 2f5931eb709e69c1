package serve

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/meridiankv/meridian-go/cmd/util"
	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/server"
)

var (
	serveCmdConfig = common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a single-node development server",
		Long:    `Start a single-node, in-memory Meridian server for development and testing. The configuration can be set via command line flags or environment variables. The format of the environment variables is MERIDIAN_<flag> (e.g. MERIDIAN_ENDPOINT=0.0.0.0:4440)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:4440", cmdUtil.WrapString("The address the server listens on (e.g. 0.0.0.0:4440 or /tmp/meridian.sock for the unix transport)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, common.DefaultTimeoutSecond, cmdUtil.WrapString("The per-connection write deadline in seconds"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("How many requests of one connection are processed concurrently (0 = logical CPU count)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The socket write buffer size (in KB, 0 = OS default)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The socket read buffer size (in KB, 0 = OS default)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (tcp transport only)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig = common.DefaultServerConfig(viper.GetString("endpoint"))
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	if workers := viper.GetInt("workers-per-conn"); workers > 0 {
		serveCmdConfig.WorkersPerConn = workers
	}
	serveCmdConfig.Socket = common.SocketConf{
		WriteBufferSize: viper.GetInt("write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
	}
	serveCmdConfig.TCP.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the development server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// parse the transport
	t, err := cmdUtil.GetListener()
	if err != nil {
		return err
	}

	srv := server.New(serveCmdConfig, t, s)
	return srv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("meridian")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
