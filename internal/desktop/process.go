package desktop

import (
	"fmt"

	"github.com/mitchellh/go-ps"
)

// ShellProcess is the executable name of the GNOME shell.
const ShellProcess = "gnome-shell"

// FindProcessByName returns the PIDs of processes with the given
// executable name, skipping except.
func FindProcessByName(name string, except int) ([]int, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to get process list: %w", err)
	}

	var pids []int
	for _, p := range processes {
		if p.Executable() == name && p.Pid() != except {
			pids = append(pids, p.Pid())
		}
	}
	return pids, nil
}

// ShellRunning reports whether a GNOME shell process exists.
func ShellRunning() bool {
	pids, err := FindProcessByName(ShellProcess, 0)
	return err == nil && len(pids) > 0
}
