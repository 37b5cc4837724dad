package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adamdmoss/zstdblock/internal/config"
	"github.com/adamdmoss/zstdblock/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "zblockctl",
	Short:         "Exercise the zstdblock compression adapter",
	SilenceErrors: true,
}

// Execute is the CLI entrypoint.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger, logErr := logging.New(logging.LevelError, logging.EncodingPlain, logging.WithOutput(os.Stderr))
		if logErr != nil {
			fmt.Fprintf(os.Stderr, "failed to instantiate CLI logger: %v\n", logErr)
			fmt.Fprintf(os.Stderr, "error running command: %s\n", err)
			os.Exit(1)
		}
		logger.Fatalf("error running command: %s", err)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	cfgFile = viper.GetString(config.ConfigFile)
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config from file %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}

func initLogger() {
	level := logging.LevelFromString(viper.GetString(config.LogLevel))
	encoding := logging.EncodingFromString(viper.GetString(config.LogEncoding))

	opts := []logging.Option{
		logging.WithName("zblockctl"),
		logging.WithVersion(version),
	}
	if dest := viper.GetString(config.LogDestination); dest != "" {
		opts = append(opts, logging.WithFileOutput(dest))
	}

	if err := logging.Init(level, encoding, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}
