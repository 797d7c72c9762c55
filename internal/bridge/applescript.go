package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/FerdiWoo/nowbar/internal/domain"
	"go.uber.org/zap"
)

const (
	// fieldSeparator joins the six now-playing fields in the bridge reply
	fieldSeparator = "||"
	// fieldCount is the expected number of fields in a playing reply
	fieldCount = 6
	// notPlayingReply is the sentinel returned while nothing plays
	notPlayingReply = "not_playing"
)

// nowPlayingScript asks the player for the current track. The reply is
// either the notPlayingReply sentinel or six fields joined by "||" in fixed
// order: track, artist, album, artwork URL, position, duration (seconds).
const nowPlayingScript = `if application "%[1]s" is running then
	tell application "%[1]s"
		if player state is playing then
			set trackName to name of current track
			set artistName to artist of current track
			set albumName to album of current track
			set artURL to artwork url of current track
			set pos to player position as text
			set dur to ((duration of current track) / 1000) as text
			return trackName & "||" & artistName & "||" & albumName & "||" & artURL & "||" & pos & "||" & dur
		else
			return "not_playing"
		end if
	end tell
else
	return "not_playing"
end if`

// isRunningScript checks the OS process list for the player
const isRunningScript = `tell application "System Events" to (name of processes) contains "%s"`

// AppleScriptBridge talks to the music application through osascript.
// All errors degrade to "no data": a failed query reads as not playing and
// a failed command is a no-op, the next poll cycle is the retry mechanism.
type AppleScriptBridge struct {
	logger  *zap.Logger
	runner  ScriptRunner
	appName string
}

// NewAppleScriptBridge creates a bridge for the named application
func NewAppleScriptBridge(logger *zap.Logger, cfg domain.Config, runner ScriptRunner) *AppleScriptBridge {
	return &AppleScriptBridge{
		logger:  logger,
		runner:  runner,
		appName: cfg.AppName(),
	}
}

// NowPlaying queries the current track. Returns (nil, nil) when the player
// is not running, not playing, or the reply is malformed.
func (b *AppleScriptBridge) NowPlaying(ctx context.Context) (*domain.TrackSnapshot, error) {
	out, err := b.runner.Run(ctx, fmt.Sprintf(nowPlayingScript, b.appName))
	if err != nil {
		return nil, fmt.Errorf("now-playing query failed: %w", err)
	}

	snap := b.parseNowPlaying(out)
	return snap, nil
}

// parseNowPlaying decodes the delimited bridge reply. A wrong field count
// or unparsable number reads as "no info available".
func (b *AppleScriptBridge) parseNowPlaying(raw string) *domain.TrackSnapshot {
	if raw == notPlayingReply || raw == "" {
		return nil
	}

	fields := strings.Split(raw, fieldSeparator)
	if len(fields) != fieldCount {
		b.logger.Debug("Malformed now-playing reply, ignoring",
			zap.Int("fields", len(fields)))
		return nil
	}

	position, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	if err != nil {
		b.logger.Debug("Unparsable position in reply, ignoring",
			zap.String("value", fields[4]))
		return nil
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
	if err != nil {
		b.logger.Debug("Unparsable duration in reply, ignoring",
			zap.String("value", fields[5]))
		return nil
	}

	if position < 0 {
		position = 0
	}
	if duration < 0 {
		duration = 0
	}

	return &domain.TrackSnapshot{
		Track:      fields[0],
		Artist:     fields[1],
		Album:      fields[2],
		ArtworkURL: fields[3],
		Position:   position,
		Duration:   duration,
	}
}

// IsRunning queries the OS process list for the player. Bridge failures
// read as "not running".
func (b *AppleScriptBridge) IsRunning(ctx context.Context) bool {
	out, err := b.runner.Run(ctx, fmt.Sprintf(isRunningScript, b.appName))
	if err != nil {
		b.logger.Debug("Process check failed", zap.Error(err))
		return false
	}
	return out == "true"
}

// Previous skips to the previous track
func (b *AppleScriptBridge) Previous(ctx context.Context) {
	b.command(ctx, fmt.Sprintf(`tell application "%s" to previous track`, b.appName))
}

// Next skips to the next track
func (b *AppleScriptBridge) Next(ctx context.Context) {
	b.command(ctx, fmt.Sprintf(`tell application "%s" to next track`, b.appName))
}

// TogglePlayPause toggles playback
func (b *AppleScriptBridge) TogglePlayPause(ctx context.Context) {
	b.command(ctx, fmt.Sprintf(`tell application "%s" to playpause`, b.appName))
}

// Seek moves playback to the given position in seconds
func (b *AppleScriptBridge) Seek(ctx context.Context, seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	b.command(ctx, fmt.Sprintf(`tell application "%s" to set player position to %.2f`, b.appName, seconds))
}

// command dispatches a fire-and-forget script, swallowing any error
func (b *AppleScriptBridge) command(ctx context.Context, script string) {
	if _, err := b.runner.Run(ctx, script); err != nil {
		b.logger.Debug("Bridge command failed", zap.Error(err))
	}
}
