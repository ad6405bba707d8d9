package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"artgrab/pkg/auth"
	"artgrab/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage pixiv session cookies",
	Long: `Manage stored pixiv session cookies.

A session is only needed for restricted artworks. Cookies are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (ARTGRAB_PHPSESSID, read only)

Never share your session cookie!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a session cookie securely",
	Long: `Store a pixiv PHPSESSID cookie in the system keychain or an encrypted file.

You will be prompted for:
  - A name for the account (if not provided)
  - The PHPSESSID cookie value (hidden while typing)
  - User Agent (optional, press Enter for default)`,
	Example: `  # Interactive login
  artgrab auth login

  # Login under a name
  artgrab auth login main`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <name>",
	Short: "Remove a stored session",
	Args:  cobra.ExactArgs(1),
	Run:   runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Long:  `List all stored sessions with masked cookie values. The newest one is used by default.`,
	Args:  cobra.NoArgs,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func mustCredentialManager() *auth.Manager {
	manager, err := auth.NewManager("")
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	return manager
}

func runLogin(cmd *cobra.Command, args []string) {
	manager := mustCredentialManager()
	reader := bufio.NewReader(os.Stdin)

	var name string
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	auth.WriteCookieGuide(ui.Output)

	if name == "" {
		fmt.Fprint(ui.Output, "Account name: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read account name", err.Error())
			os.Exit(1)
		}
		name = strings.TrimSpace(input)
	}
	if name == "" {
		ui.PrintError("Account name is required")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(ui.Output, "\nAccount '%s' already exists. Update it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	var sessionID string
	for {
		fmt.Fprint(ui.Output, "\nPHPSESSID cookie value: ")
		value, err := readSecret(reader)
		if err != nil {
			ui.PrintError("Failed to read cookie", err.Error())
			os.Exit(1)
		}
		if err := validateSessionID(value); err != nil {
			ui.PrintWarning(err.Error())
			fmt.Fprint(ui.Output, "Try again? (Y/n): ")
			again, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(again)) == "n" {
				os.Exit(1)
			}
			continue
		}
		sessionID = value
		break
	}

	fmt.Fprint(ui.Output, "User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Name:      name,
		SessionID: sessionID,
		UserAgent: strings.TrimSpace(userAgent),
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Session saved: %s", name))
	fmt.Fprintln(ui.Output, "\nIt is used automatically by 'artgrab grab', or pick it with --account:")
	fmt.Fprintf(ui.Output, "  artgrab grab <artwork> --account %s\n", name)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager := mustCredentialManager()
	name := args[0]
	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + name)
}

func runList(cmd *cobra.Command, args []string) {
	manager := mustCredentialManager()
	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'artgrab auth login' to add one")
		return
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(ui.Output, "%d. %s\n", i+1, ui.Cyan(sanitized.Name))
		fmt.Fprintf(ui.Output, "   %s: %s\n", auth.SessionCookieName, sanitized.SessionID)
		if sanitized.UserAgent != "" {
			fmt.Fprintf(ui.Output, "   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(ui.Output, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
	}
}

// validateSessionID checks the shape of a PHPSESSID value: "<user id>_<token>"
func validateSessionID(v string) error {
	id, token, ok := strings.Cut(v, "_")
	if !ok || id == "" || len(token) < 16 {
		return errors.New("that does not look like a PHPSESSID, expected <user id>_<token>")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return errors.New("the part before '_' should be your numeric user id")
		}
	}
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
