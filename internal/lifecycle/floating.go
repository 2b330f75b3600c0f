package lifecycle

import (
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/veneer/internal/desktop"
)

// floatingPanel turns on taskbar intellihide while rounded panels are
// applied, giving a floating look, and puts the user's setting back after.
type floatingPanel struct {
	taskbar desktop.Taskbar
	logger  hclog.Logger

	mu       sync.Mutex
	saved    bool
	original bool
}

func newFloatingPanel(taskbar desktop.Taskbar, logger hclog.Logger) *floatingPanel {
	return &floatingPanel{taskbar: taskbar, logger: logger.Named("floating")}
}

// engage remembers the intellihide state on the first call only and
// enables intellihide when it was off.
func (f *floatingPanel) engage() {
	if f.taskbar == nil {
		f.logger.Debug("no taskbar, floating panel unavailable")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.saved {
		on, err := f.taskbar.Intellihide()
		if err != nil {
			f.logger.Warn("failed to read intellihide", "error", err)
			return
		}
		f.original = on
		f.saved = true
		f.logger.Debug("saved intellihide state", "intellihide", on)
	}
	if f.original {
		f.logger.Debug("intellihide already enabled by user")
		return
	}
	if err := f.taskbar.SetIntellihide(true); err != nil {
		f.logger.Warn("failed to enable intellihide", "error", err)
		return
	}
	f.logger.Info("enabled intellihide for floating panel")
}

// release restores the saved intellihide state once.
func (f *floatingPanel) release() {
	if f.taskbar == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.saved {
		return
	}
	if err := f.taskbar.SetIntellihide(f.original); err != nil {
		f.logger.Warn("failed to restore intellihide", "error", err)
	}
	f.saved = false
	f.logger.Info("restored intellihide", "intellihide", f.original)
}
