package main

import (
	"fmt"
	"os"
	"strings"

	"artgrab/internal/filename"
	"artgrab/pkg/config"
	"artgrab/pkg/settings"
	"artgrab/pkg/ui"

	"github.com/spf13/cobra"
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage stored preferences",
	Long: `Manage preferences that persist across sessions, such as the filename
template. Stored values win over the configuration file; command-line flags
win over both for a single run.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every known setting and its stored value",
	Args:  cobra.NoArgs,
	Run:   runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored setting",
	Args:  cobra.ExactArgs(1),
	Run:   runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Example: `  artgrab settings set filename_template "%artworkAuthorName%/%artworkId%_p%artworkPart%.%imageFileExtension%"
  artgrab settings set anchor after-title`,
	Args: cobra.ExactArgs(2),
	Run:  runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored setting so the default applies again",
	Args:  cobra.ExactArgs(1),
	Run:   runSettingsUnset,
}

var settingsTokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List the tokens a filename template can use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, tok := range filename.Known() {
			fmt.Fprintf(ui.Output, "  %-24s %s\n", ui.Cyan("%"+tok.Name+"%"), tok.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsTokensCmd)
}

func mustOpenSettings() *settings.SQLiteStore {
	cfg := mustLoadConfig(nil)
	store, err := settings.Open(cfg.Session.SettingsPath)
	if err != nil {
		ui.PrintError("Failed to open settings", err.Error())
		os.Exit(1)
	}
	return store
}

func runSettingsList(cmd *cobra.Command, args []string) {
	store := mustOpenSettings()
	defer store.Close()

	values, err := store.All()
	if err != nil {
		ui.PrintError("Failed to read settings", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Settings", store.Path())
	for _, key := range settings.Keys() {
		value, ok := values[key.Key]
		if !ok {
			value = ui.Dim("(default)")
		}
		fmt.Fprintf(ui.Output, "  %-18s %s\n", key.Key, value)
		fmt.Fprintf(ui.Output, "  %-18s %s\n", "", ui.Dim(key.Description))
	}
}

func runSettingsGet(cmd *cobra.Command, args []string) {
	key := args[0]
	if !settings.ValidKey(key) {
		ui.PrintError("Unknown setting", key)
		os.Exit(1)
	}
	store := mustOpenSettings()
	defer store.Close()

	value, ok, err := store.Get(key)
	if err != nil {
		ui.PrintError("Failed to read setting", err.Error())
		os.Exit(1)
	}
	if !ok {
		ui.PrintInfo(key, "(default)")
		return
	}
	fmt.Fprintln(ui.Output, value)
}

func runSettingsSet(cmd *cobra.Command, args []string) {
	key, value := args[0], args[1]
	if err := validateSetting(key, value); err != nil {
		ui.PrintError("Invalid setting", err.Error())
		os.Exit(1)
	}
	if key == settings.KeyFilenameTemplate {
		warnUnknownTokens(value)
	}

	store := mustOpenSettings()
	defer store.Close()

	if err := store.Set(key, value); err != nil {
		ui.PrintError("Failed to store setting", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("%s saved", key))
}

func runSettingsUnset(cmd *cobra.Command, args []string) {
	key := args[0]
	if !settings.ValidKey(key) {
		ui.PrintError("Unknown setting", key)
		os.Exit(1)
	}
	store := mustOpenSettings()
	defer store.Close()

	if err := store.Delete(key); err != nil {
		ui.PrintError("Failed to remove setting", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("%s reset to default", key))
}

// validateSetting checks a value before it is stored
func validateSetting(key, value string) error {
	switch key {
	case settings.KeyFilenameTemplate:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("template cannot be empty")
		}
	case settings.KeySaveAs:
		if value != "true" && value != "false" {
			return fmt.Errorf("save_as must be true or false")
		}
	case settings.KeyAnchor:
		switch value {
		case config.AnchorBeforeTitle, config.AnchorAfterTitle, config.AnchorPanel:
		default:
			return fmt.Errorf("unknown anchor %q", value)
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// warnUnknownTokens points out tokens that will be left in file names verbatim
func warnUnknownTokens(template string) {
	unknown := filename.Unknown(template)
	if len(unknown) == 0 {
		return
	}
	for i, name := range unknown {
		unknown[i] = "%" + name + "%"
	}
	ui.PrintWarning("Template uses unknown tokens, they will be kept as written", strings.Join(unknown, ", "))
}
