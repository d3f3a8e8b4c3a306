package fetcher

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Display is an Xvfb virtual display for running a browser headful.
type Display struct {
	name   string
	logger *slog.Logger
	cmd    *exec.Cmd
}

// NewDisplay returns a stopped display, e.g. ":99".
func NewDisplay(name string, logger *slog.Logger) *Display {
	if logger == nil {
		logger = slog.Default()
	}
	return &Display{name: name, logger: logger}
}

// Name is the DISPLAY value.
func (d *Display) Name() string { return d.name }

// Start launches Xvfb. Calling Start on a running display is a no-op.
func (d *Display) Start() error {
	if d.cmd != nil {
		return nil
	}

	cmd := exec.Command("Xvfb", d.name, "-screen", "0", "1920x1080x24", "-ac")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb: %w", err)
	}
	d.cmd = cmd

	// Give Xvfb a moment to initialise.
	time.Sleep(500 * time.Millisecond)

	d.logger.Info("browser: xvfb started", "display", d.name, "pid", cmd.Process.Pid)
	return nil
}

// Stop kills the Xvfb process if running.
func (d *Display) Stop() {
	if d.cmd == nil {
		return
	}
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
	}
	d.logger.Info("browser: xvfb stopped", "display", d.name)
	d.cmd = nil
}
