package domain

import (
	"context"
	"time"
)

// Bridge defines the command/query channel to the external music application.
// Implementations talk to the player through an OS scripting interface
// (AppleScript on macOS, MPRIS over D-Bus on Linux).
type Bridge interface {
	// NowPlaying asks the application what is currently playing.
	// It returns (nil, nil) when the application is not running, not
	// playing, or replied with something unparsable. Absence of data
	// is a first-class state here, not an error.
	NowPlaying(ctx context.Context) (*TrackSnapshot, error)

	// IsRunning reports whether the application process is alive.
	// Any bridge failure is reported as "not running".
	IsRunning(ctx context.Context) bool

	// Playback commands. Fire-and-forget: implementations log failures
	// and move on, callers never branch on the outcome.
	Previous(ctx context.Context)
	Next(ctx context.Context)
	TogglePlayPause(ctx context.Context)
	Seek(ctx context.Context, seconds float64)
}

// Fetcher defines the interface for retrieving album artwork
type Fetcher interface {
	// Fetch downloads image data from a URL
	// Returns the raw image bytes or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Config defines the interface for application configuration
type Config interface {
	// AppName returns the name of the external music application
	AppName() string

	// AppPath returns the expected install path of the application
	AppPath() string

	// TickInterval returns the base poll timer cadence
	TickInterval() time.Duration

	// PlayingInterval returns the minimum gap between external queries
	// while the application is playing
	PlayingInterval() time.Duration

	// IdleInterval returns the minimum gap between external queries
	// while the application is idle or absent
	IdleInterval() time.Duration

	// HTTPTimeout returns the timeout for artwork fetches
	HTTPTimeout() time.Duration

	// AutoLaunch reports whether the application should be launched at
	// daemon startup when it is installed but not running
	AutoLaunch() bool

	// PaletteSize returns how many accent colors to extract from artwork
	PaletteSize() int
}
