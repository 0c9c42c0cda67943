// Package commands implements the mediakit CLI.
package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "mediakit",
	Short: "Write Ogg and WAVE media files",
	Long: `mediakit writes Ogg and RIFF/WAVE files from raw audio samples and
RGB video frames, and converts G.711 and Opus audio to WAVE.

Every flag may be set through the environment with a MEDIAKIT_ prefix
(dashes become underscores) or through a mediakit.yaml config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./mediakit.yaml or ~/.mediakit/mediakit.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log progress to stderr")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initConfig(cmd *cobra.Command) error {
	v.SetEnvPrefix("MEDIAKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mediakit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mediakit"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if v.GetBool("verbose") && level < logrus.InfoLevel {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())
	return nil
}
