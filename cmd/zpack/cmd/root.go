package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	v       *viper.Viper
	log     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: logrus.New()}

	rootCmd := &cobra.Command{
		Use:   "zpack",
		Short: "zpack compresses data with Zstandard and friends",
		Long: `zpack compresses and decompresses Zstandard frames, trains dictionaries
from sample files, and compares the available compression formats.

Every flag can also be set with a ZPACK_ environment variable
(ZPACK_LEVEL, ZPACK_WORKERS, ...) or in a zpack.yaml config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log.SetOutput(cmd.ErrOrStderr())
			if err := a.initConfig(); err != nil {
				return err
			}
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			level, err := logrus.ParseLevel(a.v.GetString("log-level"))
			if err != nil {
				return err
			}
			a.log.SetLevel(level)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./zpack.yaml or $HOME/.zpack/zpack.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newCompressCmd(a),
		newDecompressCmd(a),
		newTrainCmd(a),
		newBenchCmd(a),
		newFormatsCmd(a),
		newMatchesCmd(a),
	)
	return rootCmd
}

// Execute runs the root command with the process arguments.
// This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig() error {
	if a.cfgFile == "" {
		a.cfgFile = os.Getenv("ZPACK_CONFIG")
	}
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.zpack")
		a.v.SetConfigName("zpack")
	}

	a.v.SetEnvPrefix("zpack")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	err := a.v.ReadInConfig()
	switch {
	case err == nil:
		a.log.WithField("file", a.v.ConfigFileUsed()).Debug("Using config file")
	case a.cfgFile != "":
		return err
	}
	return nil
}
