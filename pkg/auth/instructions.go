package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide prints how to copy the PHPSESSID cookie out of a browser
func WriteCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"PIXIV SESSION COOKIE",
		rule,
		"",
		"Original-resolution and restricted artworks need a logged-in session.",
		"",
		"1. Log in at https://www.pixiv.net in your browser.",
		"2. Open Developer Tools (F12, or Cmd+Option+I on macOS).",
		"3. Chrome/Edge: Application > Cookies > https://www.pixiv.net",
		"   Firefox: Storage > Cookies > https://www.pixiv.net",
		"4. Copy the value of the " + SessionCookieName + " cookie.",
		"   It looks like 12345678_AbCdEfGhIjKlMnOpQrStUvWxYz012345.",
		"",
		"The value is stored in your system keychain when available, otherwise",
		"in an encrypted file under your config directory. It can also be",
		"supplied through " + EnvSessionID + ".",
		"",
		"Treat the cookie like a password. Logging out of pixiv invalidates it.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
