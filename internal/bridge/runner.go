package bridge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ScriptRunner executes a scripting-bridge snippet and returns its textual
// reply. This abstraction allows us to mock the OS scripting layer in tests.
//
//go:generate mockgen -destination=mocks/script_runner_mock.go -package=mocks github.com/FerdiWoo/nowbar/internal/bridge ScriptRunner
type ScriptRunner interface {
	// Run executes the script and returns trimmed stdout
	Run(ctx context.Context, script string) (string, error)
}

// OsaScriptRunner is the real implementation shelling out to osascript
type OsaScriptRunner struct {
	logger *zap.Logger
}

// NewOsaScriptRunner creates a runner backed by the system osascript binary
func NewOsaScriptRunner(logger *zap.Logger) *OsaScriptRunner {
	return &OsaScriptRunner{logger: logger}
}

// Run executes an AppleScript snippet via osascript -e
func (r *OsaScriptRunner) Run(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("osascript failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}
