package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"artgrab/pkg/auth"
	"artgrab/pkg/config"
	"artgrab/pkg/logger"
	"artgrab/pkg/session"
	"artgrab/pkg/settings"
	"artgrab/pkg/ui"
	"artgrab/pkg/ui/tui"

	"github.com/spf13/cobra"
)

var (
	// Grab command flags
	outputDir   string
	template    string
	anchor      string
	concurrent  int
	part        int
	bulk        bool
	saveAs      bool
	metadata    bool
	resume      bool
	checkpoint  string
	useTUI      bool
	accountName string
	inputFile   string
)

// grabCmd represents the grab command
var grabCmd = &cobra.Command{
	Use:   "grab <artwork>...",
	Short: "Download artworks",
	Long: `Download one or more pixiv artworks.

Each argument is an artwork page URL or a bare artwork id. The pages are
visited in order within one page session, the same way clicking from one
artwork to the next would.

By default only the first part of each artwork is saved. Use --part to pick
another one or --bulk to save every part.`,
	Example: `  # Download the first part of an artwork
  artgrab grab https://www.pixiv.net/en/artworks/12345678

  # Download every part of two artworks into ./art
  artgrab grab 12345678 23456789 --bulk --output ./art

  # Name files by id and part
  artgrab grab 12345678 --bulk --template "%artworkId%_p%artworkPart%.%imageFileExtension%"

  # Resume a long batch read from a file
  artgrab grab --from-file ids.txt --bulk --resume --checkpoint favourites`,
	Run: runGrab,
}

func init() {
	rootCmd.AddCommand(grabCmd)

	grabCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads")
	grabCmd.Flags().StringVarP(&template, "template", "t", "", "filename template (overrides the stored setting)")
	grabCmd.Flags().StringVar(&anchor, "anchor", "", "toolbar placement (before-title, after-title, panel)")
	grabCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads")
	grabCmd.Flags().IntVarP(&part, "part", "p", 0, "0-based part to download")
	grabCmd.Flags().BoolVarP(&bulk, "bulk", "b", false, "download every part")
	grabCmd.Flags().BoolVar(&saveAs, "save-as", false, "ask for a file name before each download")
	grabCmd.Flags().BoolVar(&metadata, "metadata", false, "write a JSON sidecar next to each file")
	grabCmd.Flags().BoolVar(&resume, "resume", false, "skip artworks recorded as complete in the checkpoint")
	grabCmd.Flags().StringVar(&checkpoint, "checkpoint", "", "checkpoint name used with --resume")
	grabCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI")
	grabCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	grabCmd.Flags().StringVarP(&inputFile, "from-file", "f", "", "read artwork URLs or ids from a file, one per line")
}

func runGrab(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{
		"output":     outputDir,
		"template":   template,
		"anchor":     anchor,
		"concurrent": concurrent,
		"part":       part,
		"bulk":       bulk,
		"metadata":   metadata,
		"resume":     resume,
		"checkpoint": checkpoint,
		"tui":        useTUI,
	}
	if cmd.Flags().Changed("save-as") {
		flags["save-as"] = saveAs
	}
	cfg := mustLoadConfig(flags)
	log := logger.GetLogger()

	targets, err := collectTargets(cfg, args, inputFile)
	if err != nil {
		ui.PrintError("Invalid artwork list", err.Error())
		os.Exit(1)
	}
	if len(targets) == 0 {
		ui.PrintError("No artworks given", "pass artwork URLs or ids, or --from-file")
		os.Exit(1)
	}

	account := lookupAccount(cfg)

	stored, closeStore := openSettings(cfg)
	defer closeStore()
	if template != "" {
		warnUnknownTokens(template)
	}
	store := settings.NewOverlay(stored, settingOverrides(cmd))

	opts := session.Options{
		Config:   cfg,
		Settings: store,
		Logger:   log,
	}
	if account != nil {
		opts.Cookie = account.Cookie()
		opts.UserAgent = account.UserAgent
	}
	if cfg.Notifications.Enabled && cfg.Notifications.NotificationType != "none" {
		opts.Notifier = ui.NewNotifier(ui.NotifierOptions{
			Enabled:    cfg.Notifications.NotificationType == "desktop",
			OnComplete: cfg.Notifications.OnComplete,
			OnError:    cfg.Notifications.OnError,
		})
	}

	sel := session.Selection{Bulk: cfg.Session.Bulk, Part: cfg.Session.Part}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Session.UseTUI {
		runWithTUI(ctx, opts, targets, sel)
		return
	}

	opts.View = ui.NewProgressDisplay(os.Stdout, cfg.Logging.Level == "debug")
	if saveAsEnabled(cfg, store) {
		opts.Prompter = &savePrompter{}
	}

	ui.PrintInfo("Artworks", fmt.Sprintf("%d", len(targets)))
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)

	s, err := session.New(opts)
	if err != nil {
		ui.PrintError("Failed to start session", err.Error())
		os.Exit(1)
	}
	summary, err := s.Run(ctx, targets, sel)
	if err != nil {
		log.WithError(err).Error("Session finished with errors")
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Interrupted")
		}
		os.Exit(1)
	}
	log.WithField("summary", summary.String()).Info("Session completed successfully")
}

// runWithTUI drives the session in the background while the terminal UI
// owns the main goroutine
func runWithTUI(ctx context.Context, opts session.Options, targets []string, sel session.Selection) {
	if opts.Config.Logging.File == "" {
		// log lines would tear the full-screen view
		opts.Logger = logger.NewNopLogger()
	}
	if saveAsEnabled(opts.Config, opts.Settings) {
		ui.PrintWarning("Save-as prompts are not available in the terminal UI, using template names")
	}
	opts.Notifier = nil

	terminal := tui.New()
	opts.View = terminal

	s, err := session.New(opts)
	if err != nil {
		ui.PrintError("Failed to start session", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(ctx, targets, sel)
		done <- err
	}()

	if err := terminal.Run(); err != nil {
		cancel()
		<-done
		ui.PrintError("Terminal UI failed", err.Error())
		os.Exit(1)
	}

	// the UI was closed, possibly before the session ended
	cancel()
	if err := <-done; err != nil {
		ui.PrintError("Session finished with errors", err.Error())
		os.Exit(1)
	}
}

var bareID = regexp.MustCompile(`^\d+$`)

// collectTargets turns arguments and the optional list file into page URLs
func collectTargets(cfg *config.Config, args []string, file string) ([]string, error) {
	raw := append([]string(nil), args...)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open list: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read list: %w", err)
		}
	}

	detail, err := cfg.DetailMatcher()
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(raw))
	for _, arg := range raw {
		arg = strings.TrimSpace(arg)
		switch {
		case bareID.MatchString(arg):
			targets = append(targets, strings.TrimRight(cfg.Site.BaseURL, "/")+"/artworks/"+arg)
		case detail.MatchString(arg):
			targets = append(targets, arg)
		default:
			return nil, fmt.Errorf("%q is not an artwork URL or id", arg)
		}
	}
	return targets, nil
}

// lookupAccount returns the session to use, or nil to browse anonymously
func lookupAccount(cfg *config.Config) *auth.Account {
	manager, err := auth.NewManager("")
	if err != nil {
		logger.WithError(err).Warn("Credential storage unavailable")
		return nil
	}

	if accountName != "" {
		account, err := manager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "Use 'artgrab auth list' to see stored accounts")
			os.Exit(1)
		}
		return account
	}

	account, err := manager.RetrieveDefault()
	if err != nil {
		if !cfg.Session.UseTUI {
			ui.PrintWarning("No pixiv session stored, continuing without login")
		}
		return nil
	}
	logger.WithField("account", account.Name).Info("Using stored credentials")
	return account
}

// openSettings opens the persistent settings, falling back to memory
func openSettings(cfg *config.Config) (settings.Store, func()) {
	store, err := settings.Open(cfg.Session.SettingsPath)
	if err != nil {
		logger.WithError(err).Warn("Settings unavailable, using defaults")
		return settings.NewMemoryStore(), func() {}
	}
	return store, func() { store.Close() }
}

// settingOverrides returns the stored settings this run replaces. A boolean
// flag only overrides when it was given, so --save-as=false beats a stored
// true.
func settingOverrides(cmd *cobra.Command) map[string]string {
	overrides := map[string]string{
		settings.KeyFilenameTemplate: template,
		settings.KeyAnchor:           anchor,
	}
	if cmd.Flags().Changed("save-as") {
		overrides[settings.KeySaveAs] = strconv.FormatBool(saveAs)
	}
	return overrides
}

// saveAsEnabled resolves save-as the way the download toolbar does
func saveAsEnabled(cfg *config.Config, store settings.Store) bool {
	return settings.GetOr(store, settings.KeySaveAs, strconv.FormatBool(cfg.Output.SaveAs)) == "true"
}
