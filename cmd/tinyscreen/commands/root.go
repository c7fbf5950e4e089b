package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/TinyScreen/internal/config"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "tinyscreen",
		Short: "TinyScreen - video output for tiny displays",
		Long: `TinyScreen plays video on small low-resolution displays: monochrome and
greyscale OLED and LCD panels, or an emulation of one in a window, a
terminal or a browser.

Features:
  • Aspect-correct letterboxing, fit-width and fit-height view modes
  • Threshold, Floyd-Steinberg and halftone rendering for 1-bit panels
  • Grey-level and truecolour rendering for richer panels
  • Gamma correction and band-pass contrast
  • On-screen progress bar and status line
  • Named display profiles in a YAML config file
  • REST and websocket status API`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/tinyscreen/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "API server port (default is 8091)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", true, "human-readable log output")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.SetEnvPrefix("TINYSCREEN")
	viper.AutomaticEnv()
}

// initLogging applies --log-level, falling back to the config file.
func initLogging() {
	level := viper.GetString("log_level")
	if level == "" {
		if mgr, err := config.NewManager(GetConfigFile()); err == nil {
			level = mgr.Get().LogLevel
		}
	}
	logger.Init(level, viper.GetBool("log_pretty"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

func loadConfig() (*config.Manager, error) {
	mgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return mgr, nil
}
