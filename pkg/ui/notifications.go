package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode(%q)) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode(%q)) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("artgrab").Show($toast)
	`, title, message)
	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// PlatformSender returns the sender for the running OS, nil if unsupported
func PlatformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// NotifierOptions selects which session outcomes raise a notification
type NotifierOptions struct {
	Enabled    bool
	OnComplete bool
	OnError    bool
}

// Notifier echoes session outcomes to the console and the desktop
type Notifier struct {
	sender NotificationSender
	out    io.Writer
	opts   NotifierOptions
}

// NewNotifier creates a notifier for the current platform
func NewNotifier(opts NotifierOptions) *Notifier {
	return NewNotifierWithSender(PlatformSender(), os.Stdout, opts)
}

// NewNotifierWithSender creates a notifier with an explicit sender; sender may be nil
func NewNotifierWithSender(sender NotificationSender, out io.Writer, opts NotifierOptions) *Notifier {
	return &Notifier{sender: sender, out: out, opts: opts}
}

// SessionFinished reports a summary. Failures go through OnError, clean
// runs through OnComplete.
func (n *Notifier) SessionFinished(s Summary) {
	if s.OK() {
		if n.opts.OnComplete {
			n.SendSuccess("Download complete", s.String())
		}
		return
	}
	if n.opts.OnError {
		n.SendError("Download finished with errors", s.String())
	}
}

// SendNotification prints and sends a notification
func (n *Notifier) SendNotification(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Cyan(title), Yellow(message))
	n.send(title, message)
}

// SendError prints and sends an error notification
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

// SendSuccess prints and sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil || !n.opts.Enabled {
		return
	}
	// notifications are best effort
	_ = n.sender.Send(title, message)
}
