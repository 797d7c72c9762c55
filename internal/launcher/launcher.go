package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/FerdiWoo/nowbar/internal/domain"
	"go.uber.org/zap"
)

// Launcher starts the external music application. The install path is
// checked before any open command is issued so a missing app reads as a
// clean error instead of a shell failure.
type Launcher struct {
	logger  *zap.Logger
	appName string
	appPath string
}

// New creates a launcher for the configured application
func New(logger *zap.Logger, cfg domain.Config) *Launcher {
	return &Launcher{
		logger:  logger,
		appName: cfg.AppName(),
		appPath: cfg.AppPath(),
	}
}

// Installed reports whether the application exists at its install path
func (l *Launcher) Installed() bool {
	_, err := os.Stat(l.appPath)
	return err == nil
}

// Launch opens the application. Best effort: callers log and move on.
func (l *Launcher) Launch(ctx context.Context) error {
	if !l.Installed() {
		return fmt.Errorf("application not installed at %s", l.appPath)
	}

	cmd, err := l.openCommand(ctx)
	if err != nil {
		return err
	}

	l.logger.Info("Launching application",
		zap.String("app", l.appName),
		zap.String("path", l.appPath))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to launch %s: %w (output: %s)",
			l.appName, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// openCommand picks the platform way to open the application
func (l *Launcher) openCommand(ctx context.Context) (*exec.Cmd, error) {
	if runtime.GOOS == "darwin" {
		return exec.CommandContext(ctx, "open", "-a", l.appPath), nil
	}

	// Elsewhere, fall back to the binary named after the app
	binary := strings.ToLower(l.appName)
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("no launch command found for %s: %w", l.appName, err)
	}
	return exec.CommandContext(ctx, path), nil
}
