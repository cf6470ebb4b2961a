package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender interface for platform-specific notification implementations
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

// Notifier tells the user that a long scrape has ended. Runs over many apps
// can take hours because of the pause after every failed page.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender for the current platform. When enabled is
// false, or the platform has no sender, notifications only go to the console.
func NewNotifier(enabled bool) *Notifier {
	if !enabled {
		return &Notifier{}
	}

	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWithSender creates a Notifier with an explicit sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// RunFinished reports a completed run
func (n *Notifier) RunFinished(apps, reviews int) {
	msg := fmt.Sprintf("Collected %d reviews for %d apps", reviews, apps)
	PrintSuccess(msg)
	n.send("storereviews finished", msg)
}

// RunFailed reports a run that stopped on an error
func (n *Notifier) RunFailed(err error) {
	PrintError("Run failed", err)
	n.send("storereviews failed", err.Error())
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// desktop notifications are best effort
	_ = n.sender.Send(title, message)
}
