package main

import (
	"os"
	"path/filepath"
	"testing"

	"artgrab/pkg/config"
	"artgrab/pkg/settings"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectTargets(t *testing.T) {
	cfg := config.DefaultConfig()

	list := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(list, []byte("# favourites\n333\n\nhttps://www.pixiv.net/artworks/444\n"), 0644))

	targets, err := collectTargets(cfg, []string{"111", "https://www.pixiv.net/en/artworks/222"}, list)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.pixiv.net/artworks/111",
		"https://www.pixiv.net/en/artworks/222",
		"https://www.pixiv.net/artworks/333",
		"https://www.pixiv.net/artworks/444",
	}, targets)
}

func TestCollectTargetsRejectsOtherPages(t *testing.T) {
	_, err := collectTargets(config.DefaultConfig(), []string{"https://www.pixiv.net/users/7"}, "")
	assert.Error(t, err)

	_, err = collectTargets(config.DefaultConfig(), nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, validateSessionID("12345678_abcdefghijklmnopqrstuvwxyz012345"))
	assert.Error(t, validateSessionID("abcdefghijklmnopqrstuvwxyz"))
	assert.Error(t, validateSessionID("12345678_short"))
	assert.Error(t, validateSessionID("user_abcdefghijklmnopqrstuvwxyz"))
}

func TestValidateSetting(t *testing.T) {
	assert.NoError(t, validateSetting(settings.KeyFilenameTemplate, "%artworkId%.%imageFileExtension%"))
	assert.Error(t, validateSetting(settings.KeyFilenameTemplate, "  "))
	assert.NoError(t, validateSetting(settings.KeySaveAs, "false"))
	assert.Error(t, validateSetting(settings.KeySaveAs, "yes"))
	assert.NoError(t, validateSetting(settings.KeyAnchor, config.AnchorPanel))
	assert.Error(t, validateSetting(settings.KeyAnchor, "footer"))
	assert.Error(t, validateSetting("color", "blue"))
}

func saveAsCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	prev := saveAs
	t.Cleanup(func() { saveAs = prev })

	c := &cobra.Command{Use: "grab"}
	c.Flags().BoolVar(&saveAs, "save-as", false, "")
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestSaveAsFlagOverridesStoredSetting(t *testing.T) {
	stored := settings.NewMemoryStore()
	require.NoError(t, stored.Set(settings.KeySaveAs, "true"))
	cfg := config.DefaultConfig()

	off := settings.NewOverlay(stored, settingOverrides(saveAsCommand(t, "--save-as=false")))
	assert.False(t, saveAsEnabled(cfg, off))

	unset := settings.NewOverlay(stored, settingOverrides(saveAsCommand(t)))
	assert.True(t, saveAsEnabled(cfg, unset))

	on := settings.NewOverlay(settings.NewMemoryStore(), settingOverrides(saveAsCommand(t, "--save-as")))
	assert.True(t, saveAsEnabled(cfg, on))

	v, ok, err := stored.Get(settings.KeySaveAs)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestSaveAsFlagOverridesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.SaveAs = true
	cfg.MergeCommandLineFlags(map[string]interface{}{"save-as": false})
	assert.False(t, saveAsEnabled(cfg, settings.NewMemoryStore()))
}
