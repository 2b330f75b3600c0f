package desktop

import (
	"context"
	"os/exec"
	"time"

	"github.com/hashicorp/go-hclog"
)

const notifyTimeout = 5 * time.Second

// CommandNotifier sends notifications through dunstify or notify-send.
type CommandNotifier struct {
	app    string
	icon   string
	logger hclog.Logger
}

// NewCommandNotifier returns a notifier tagged with app.
func NewCommandNotifier(app string, logger hclog.Logger) *CommandNotifier {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CommandNotifier{app: app, icon: "preferences-desktop-theme", logger: logger.Named("notify")}
}

// Notify sends the notification in the background.
func (n *CommandNotifier) Notify(title, body string) {
	bin := notifyBinary()
	if bin == "" {
		n.logger.Debug("no notification daemon client on $PATH", "title", title)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		// #nosec G204 -- bin is resolved via exec.LookPath
		cmd := exec.CommandContext(ctx, bin,
			"-a", n.app,
			"-i", n.icon,
			"-u", "low",
			"-t", "5000",
			title,
			body,
		)
		if err := cmd.Run(); err != nil {
			n.logger.Debug("notification failed", "binary", bin, "error", err)
		}
	}()
}

func notifyBinary() string {
	for _, name := range []string{"dunstify", "notify-send"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
