package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/FerdiWoo/nowbar/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// BusClient defines the D-Bus operations the MPRIS bridge needs.
// This abstraction allows us to mock D-Bus interactions in tests.
type BusClient interface {
	// Close closes the D-Bus connection
	Close() error

	// NameHasOwner reports whether a well-known name is currently owned
	NameHasOwner(name string) (bool, error)

	// GetProperty retrieves a property from a D-Bus object
	GetProperty(dest, path, prop string) (dbus.Variant, error)

	// Call invokes a method on a D-Bus object, discarding the reply
	Call(dest, path, method string, args ...interface{}) error
}

// StdBusClient is the real implementation using godbus
type StdBusClient struct {
	conn *dbus.Conn
}

// NewStdBusClient creates a real D-Bus client connected to the session bus
func NewStdBusClient() (*StdBusClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	return &StdBusClient{conn: conn}, nil
}

// Close closes the D-Bus connection
func (c *StdBusClient) Close() error {
	return c.conn.Close()
}

// NameHasOwner reports whether a well-known name is currently owned
func (c *StdBusClient) NameHasOwner(name string) (bool, error) {
	var owned bool
	err := c.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, name).Store(&owned)
	return owned, err
}

// GetProperty retrieves a property from a D-Bus object
func (c *StdBusClient) GetProperty(dest, path, prop string) (dbus.Variant, error) {
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	return obj.GetProperty(prop)
}

// Call invokes a method on a D-Bus object, discarding the reply
func (c *StdBusClient) Call(dest, path, method string, args ...interface{}) error {
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	return obj.Call(method, 0, args...).Err
}

// MPRISBridge implements the same query/command contract as the
// AppleScript bridge over D-Bus MPRIS, for players on Linux desktops.
// The session bus is dialed lazily on first use so a missing bus simply
// reads as "player not running" rather than failing startup.
type MPRISBridge struct {
	logger  *zap.Logger
	service string

	mu   sync.Mutex
	bus  BusClient
	dial func() (BusClient, error)
}

// NewMPRISBridge creates a bridge for the named application
func NewMPRISBridge(logger *zap.Logger, cfg domain.Config) *MPRISBridge {
	return &MPRISBridge{
		logger:  logger,
		service: mprisPrefix + strings.ToLower(cfg.AppName()),
		dial: func() (BusClient, error) {
			return NewStdBusClient()
		},
	}
}

// client returns the cached bus connection, dialing on first use
func (b *MPRISBridge) client() (BusClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bus != nil {
		return b.bus, nil
	}

	bus, err := b.dial()
	if err != nil {
		return nil, fmt.Errorf("session bus connection failed: %w", err)
	}
	b.bus = bus
	return bus, nil
}

// Close releases the bus connection if one was established
func (b *MPRISBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bus == nil {
		return nil
	}
	err := b.bus.Close()
	b.bus = nil
	return err
}

// IsRunning reports whether the player owns its MPRIS bus name
func (b *MPRISBridge) IsRunning(ctx context.Context) bool {
	bus, err := b.client()
	if err != nil {
		b.logger.Debug("Bus unavailable", zap.Error(err))
		return false
	}

	owned, err := bus.NameHasOwner(b.service)
	if err != nil {
		b.logger.Debug("NameHasOwner failed", zap.Error(err))
		return false
	}
	return owned
}

// NowPlaying queries the player's MPRIS properties. Returns (nil, nil)
// when the player is not playing or the metadata is unusable.
func (b *MPRISBridge) NowPlaying(ctx context.Context) (*domain.TrackSnapshot, error) {
	bus, err := b.client()
	if err != nil {
		return nil, err
	}

	statusVariant, err := bus.GetProperty(b.service, mprisPath, mprisPlayerIface+".PlaybackStatus")
	if err != nil {
		return nil, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := statusVariant.Value().(string)
	if !ok || status != "Playing" {
		return nil, nil
	}

	metaVariant, err := bus.GetProperty(b.service, mprisPath, mprisPlayerIface+".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	// Some players return nil or unexpected types between tracks
	metadata, ok := metaVariant.Value().(map[string]dbus.Variant)
	if !ok {
		b.logger.Debug("Metadata variant is not a map, skipping")
		return nil, nil
	}

	snap := &domain.TrackSnapshot{
		Track:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		Duration:   extractLengthSeconds(metadata),
	}

	if posVariant, err := bus.GetProperty(b.service, mprisPath, mprisPlayerIface+".Position"); err == nil {
		if micros, ok := posVariant.Value().(int64); ok && micros > 0 {
			snap.Position = float64(micros) / 1e6
		}
	}

	return snap, nil
}

// Previous skips to the previous track
func (b *MPRISBridge) Previous(ctx context.Context) {
	b.command(mprisPlayerIface + ".Previous")
}

// Next skips to the next track
func (b *MPRISBridge) Next(ctx context.Context) {
	b.command(mprisPlayerIface + ".Next")
}

// TogglePlayPause toggles playback
func (b *MPRISBridge) TogglePlayPause(ctx context.Context) {
	b.command(mprisPlayerIface + ".PlayPause")
}

// Seek moves playback to the given position in seconds. MPRIS SetPosition
// needs the current track id, so an extra metadata read happens first.
func (b *MPRISBridge) Seek(ctx context.Context, seconds float64) {
	bus, err := b.client()
	if err != nil {
		b.logger.Debug("Bus unavailable", zap.Error(err))
		return
	}

	metaVariant, err := bus.GetProperty(b.service, mprisPath, mprisPlayerIface+".Metadata")
	if err != nil {
		b.logger.Debug("Seek metadata read failed", zap.Error(err))
		return
	}
	metadata, ok := metaVariant.Value().(map[string]dbus.Variant)
	if !ok {
		return
	}

	trackID := extractTrackID(metadata)
	if trackID == "" {
		b.logger.Debug("No track id available, seek skipped")
		return
	}

	if seconds < 0 {
		seconds = 0
	}
	micros := int64(seconds * 1e6)
	if err := bus.Call(b.service, mprisPath, mprisPlayerIface+".SetPosition",
		dbus.ObjectPath(trackID), micros); err != nil {
		b.logger.Debug("SetPosition failed", zap.Error(err))
	}
}

// command dispatches a fire-and-forget player method, swallowing any error
func (b *MPRISBridge) command(method string) {
	bus, err := b.client()
	if err != nil {
		b.logger.Debug("Bus unavailable", zap.Error(err))
		return
	}
	if err := bus.Call(b.service, mprisPath, method); err != nil {
		b.logger.Debug("Bridge command failed",
			zap.String("method", method),
			zap.Error(err))
	}
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, ok := metadata[key]
	if !ok {
		return ""
	}
	s, _ := variant.Value().(string)
	return s
}

// extractArtist handles both the standard string array and the bare
// string some players send
func extractArtist(metadata map[string]dbus.Variant) string {
	variant, ok := metadata["xesam:artist"]
	if !ok {
		return ""
	}
	switch artists := variant.Value().(type) {
	case []string:
		if len(artists) > 0 {
			return artists[0]
		}
	case string:
		return artists
	}
	return ""
}

func extractTrackID(metadata map[string]dbus.Variant) string {
	variant, ok := metadata["mpris:trackid"]
	if !ok {
		return ""
	}
	switch id := variant.Value().(type) {
	case dbus.ObjectPath:
		return string(id)
	case string:
		return id
	}
	return ""
}

func extractLengthSeconds(metadata map[string]dbus.Variant) float64 {
	variant, ok := metadata["mpris:length"]
	if !ok {
		return 0
	}
	switch micros := variant.Value().(type) {
	case int64:
		if micros > 0 {
			return float64(micros) / 1e6
		}
	case uint64:
		return float64(micros) / 1e6
	}
	return 0
}
