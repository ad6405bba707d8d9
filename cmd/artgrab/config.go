package main

import (
	"fmt"
	"os"

	"artgrab/pkg/config"
	"artgrab/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage artgrab configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (ARTGRAB_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	Run:   runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := loadConfig(nil); err != nil {
			ui.PrintError("Configuration is invalid", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Configuration is valid")
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := ".artgrab.yaml"
	switch {
	case len(args) > 0:
		path = args[0]
	case configFile != "":
		path = configFile
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		os.Exit(1)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Configuration file created: " + path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}
	fmt.Fprint(ui.Output, string(data))
}
