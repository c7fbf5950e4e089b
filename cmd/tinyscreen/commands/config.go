package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage TinyScreen configuration",
	Long:  `View and manage TinyScreen configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current TinyScreen configuration.`,
	Example: `  # Show configuration as YAML (default)
  tinyscreen config show

  # Show configuration as JSON
  tinyscreen config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its dotted key.

Rendering flags live in profiles; change those with 'config flag'.`,
	Example: `  # Enable the API on another port
  tinyscreen config set server.enabled true
  tinyscreen config set server.port 9090

  # Play at 12 frames per second
  tinyscreen config set source.fps 12`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value.`,
	Example: `  # Get server port
  tinyscreen config get server.port

  # Get log level
  tinyscreen config get log_level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configFlagCmd = &cobra.Command{
	Use:   "flag KEY VALUE",
	Short: "Set a rendering flag on the active profile",
	Long: `Set one rendering flag on the active profile. KEY and VALUE follow the
--vo sub-option syntax, so 'config flag dither 2' is the same as
'--vo dither=2' on every later play.`,
	Example: `  # Use the SSD1306 on I2C bus 1
  tinyscreen config flag name ssd1306
  tinyscreen config flag device i2c:1

  # Halftone with gamma correction
  tinyscreen config flag dither 2
  tinyscreen config flag gamma 1.8`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigFlag,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configFlagCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	cfg := configMgr.Get()

	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
}

// configValue converts value to the type the key holds.
func configValue(key, value string) (interface{}, error) {
	switch key {
	case "server.port", "source.fps":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid number: %s", value)
		}
		return n, nil
	case "server.enabled", "source.loop", "osd.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		return b, nil
	case "log_level":
		validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[value] {
			return nil, fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
		return value, nil
	case "active_profile_id":
		return value, nil
	}
	return nil, fmt.Errorf("unknown or read-only key: %s", key)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	typed, err := configValue(key, value)
	if err != nil {
		return err
	}
	if key == "active_profile_id" {
		if err := configMgr.SetActiveProfile(value); err != nil {
			return err
		}
	} else {
		v, err := configMgr.GetViper()
		if err != nil {
			return err
		}
		v.Set(key, typed)
		if err := configMgr.UpdateFromViper(v); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	fmt.Printf("Configuration updated: %s = %s\n", key, value)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	v, err := configMgr.GetViper()
	if err != nil {
		return err
	}
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key not found: %s", key)
	}

	fmt.Println(v.Get(key))
	return nil
}

func runConfigFlag(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	if err := configMgr.SetFlag(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Profile %s updated: %s = %s\n", configMgr.Get().ActiveProfileID, args[0], args[1])
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println(configMgr.GetConfigPath())
	return nil
}
