package ui

import (
	"fmt"
	"io"
	"os"
)

// Logo printed by the CLI banner
const Logo = `
   ┌─┐┬─┐┌┬┐┌─┐┬─┐┌─┐┌┐
   ├─┤├┬┘ │ │ ┬├┬┘├─┤├┴┐
   ┴ ┴┴└─ ┴ └─┘┴└─┴ ┴└─┘
   artwork downloader
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

func colorize(format string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(format, text)
	}
}

// PrintLogo prints the banner
func PrintLogo() {
	fmt.Fprint(Output, Cyan(Logo))
}

// PrintError prints msg in red, followed by the first arg if any
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Fprintln(Output, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints msg in yellow, followed by the first arg if any
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Fprintln(Output, Yellow(msg))
}
