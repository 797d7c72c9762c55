package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/FerdiWoo/nowbar/internal/bridge/mocks"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

// testConfig is a minimal domain.Config for bridge tests
type testConfig struct{}

func (testConfig) AppName() string                { return "Spotify" }
func (testConfig) AppPath() string                { return "/Applications/Spotify.app" }
func (testConfig) TickInterval() time.Duration    { return time.Second }
func (testConfig) PlayingInterval() time.Duration { return 2 * time.Second }
func (testConfig) IdleInterval() time.Duration    { return 5 * time.Second }
func (testConfig) HTTPTimeout() time.Duration     { return time.Second }
func (testConfig) AutoLaunch() bool               { return false }
func (testConfig) PaletteSize() int               { return 3 }

// fakeRunner records scripts and returns a canned reply
type fakeRunner struct {
	scripts []string
	reply   string
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, script string) (string, error) {
	f.scripts = append(f.scripts, script)
	return f.reply, f.err
}

func TestParseNowPlaying(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		// expected snapshot, nil means "no info"
		wantNil      bool
		wantTrack    string
		wantArtist   string
		wantAlbum    string
		wantURL      string
		wantPosition float64
		wantDuration float64
	}{
		{
			name:         "Valid playing reply",
			raw:          "Song||Artist||Album||http://x/art.jpg||30.5||200.0",
			wantTrack:    "Song",
			wantArtist:   "Artist",
			wantAlbum:    "Album",
			wantURL:      "http://x/art.jpg",
			wantPosition: 30.5,
			wantDuration: 200.0,
		},
		{
			name:    "Not playing sentinel",
			raw:     "not_playing",
			wantNil: true,
		},
		{
			name:    "Empty reply",
			raw:     "",
			wantNil: true,
		},
		{
			name:    "Too few fields",
			raw:     "Song||Artist||Album||http://x/art.jpg||30.5",
			wantNil: true,
		},
		{
			name:    "Too many fields",
			raw:     "Song||Artist||Album||http://x/art.jpg||30.5||200.0||extra",
			wantNil: true,
		},
		{
			name:    "Unparsable position",
			raw:     "Song||Artist||Album||url||abc||200.0",
			wantNil: true,
		},
		{
			name:    "Unparsable duration",
			raw:     "Song||Artist||Album||url||30.5||xyz",
			wantNil: true,
		},
		{
			name:         "Negative position clamped",
			raw:          "Song||Artist||Album||url||-3||200.0",
			wantTrack:    "Song",
			wantArtist:   "Artist",
			wantAlbum:    "Album",
			wantURL:      "url",
			wantPosition: 0,
			wantDuration: 200.0,
		},
		{
			name:         "Empty artwork URL accepted",
			raw:          "Song||Artist||Album||||30.5||200.0",
			wantTrack:    "Song",
			wantArtist:   "Artist",
			wantAlbum:    "Album",
			wantURL:      "",
			wantPosition: 30.5,
			wantDuration: 200.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewAppleScriptBridge(zap.NewNop(), testConfig{}, &fakeRunner{})
			snap := b.parseNowPlaying(tt.raw)

			if tt.wantNil {
				if snap != nil {
					t.Fatalf("expected nil snapshot, got %+v", snap)
				}
				return
			}

			if snap == nil {
				t.Fatal("expected snapshot, got nil")
			}
			if snap.Track != tt.wantTrack {
				t.Errorf("Track: want %q, got %q", tt.wantTrack, snap.Track)
			}
			if snap.Artist != tt.wantArtist {
				t.Errorf("Artist: want %q, got %q", tt.wantArtist, snap.Artist)
			}
			if snap.Album != tt.wantAlbum {
				t.Errorf("Album: want %q, got %q", tt.wantAlbum, snap.Album)
			}
			if snap.ArtworkURL != tt.wantURL {
				t.Errorf("ArtworkURL: want %q, got %q", tt.wantURL, snap.ArtworkURL)
			}
			if snap.Position != tt.wantPosition {
				t.Errorf("Position: want %v, got %v", tt.wantPosition, snap.Position)
			}
			if snap.Duration != tt.wantDuration {
				t.Errorf("Duration: want %v, got %v", tt.wantDuration, snap.Duration)
			}
		})
	}
}

func TestNowPlaying(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*mocks.MockScriptRunner)
		expectError bool
		expectNil   bool
		wantTrack   string
	}{
		{
			name: "Success - Playing",
			setupMock: func(m *mocks.MockScriptRunner) {
				m.EXPECT().Run(gomock.Any(), gomock.Any()).
					Return("Song||Artist||Album||http://x/art.jpg||30.5||200.0", nil)
			},
			wantTrack: "Song",
		},
		{
			name: "Not playing",
			setupMock: func(m *mocks.MockScriptRunner) {
				m.EXPECT().Run(gomock.Any(), gomock.Any()).
					Return("not_playing", nil)
			},
			expectNil: true,
		},
		{
			name: "Bridge error surfaces for logging",
			setupMock: func(m *mocks.MockScriptRunner) {
				m.EXPECT().Run(gomock.Any(), gomock.Any()).
					Return("", errors.New("osascript exploded"))
			},
			expectError: true,
			expectNil:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			runner := mocks.NewMockScriptRunner(ctrl)
			tt.setupMock(runner)

			b := NewAppleScriptBridge(zap.NewNop(), testConfig{}, runner)
			snap, err := b.NowPlaying(context.Background())

			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectNil {
				if snap != nil {
					t.Errorf("expected nil snapshot, got %+v", snap)
				}
				return
			}
			if snap == nil || snap.Track != tt.wantTrack {
				t.Errorf("expected track %q, got %+v", tt.wantTrack, snap)
			}
		})
	}
}

func TestNowPlayingScriptTargetsApp(t *testing.T) {
	runner := &fakeRunner{reply: "not_playing"}
	b := NewAppleScriptBridge(zap.NewNop(), testConfig{}, runner)

	if _, err := b.NowPlaying(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(runner.scripts))
	}
	if !strings.Contains(runner.scripts[0], `application "Spotify"`) {
		t.Errorf("script does not target the configured app: %s", runner.scripts[0])
	}
}

func TestIsRunning(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  bool
	}{
		{name: "Running", reply: "true", want: true},
		{name: "Not running", reply: "false", want: false},
		{name: "Unexpected reply", reply: "maybe", want: false},
		{name: "Bridge error reads as not running", err: errors.New("no bridge"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{reply: tt.reply, err: tt.err}
			b := NewAppleScriptBridge(zap.NewNop(), testConfig{}, runner)
			if got := b.IsRunning(context.Background()); got != tt.want {
				t.Errorf("IsRunning: want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name       string
		invoke     func(*AppleScriptBridge)
		wantScript string
	}{
		{
			name:       "Previous",
			invoke:     func(b *AppleScriptBridge) { b.Previous(context.Background()) },
			wantScript: "previous track",
		},
		{
			name:       "Next",
			invoke:     func(b *AppleScriptBridge) { b.Next(context.Background()) },
			wantScript: "next track",
		},
		{
			name:       "TogglePlayPause",
			invoke:     func(b *AppleScriptBridge) { b.TogglePlayPause(context.Background()) },
			wantScript: "playpause",
		},
		{
			name:       "Seek",
			invoke:     func(b *AppleScriptBridge) { b.Seek(context.Background(), 42.5) },
			wantScript: "set player position to 42.50",
		},
		{
			name:       "Seek clamps negative target",
			invoke:     func(b *AppleScriptBridge) { b.Seek(context.Background(), -7) },
			wantScript: "set player position to 0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			b := NewAppleScriptBridge(zap.NewNop(), testConfig{}, runner)

			tt.invoke(b)

			if len(runner.scripts) != 1 {
				t.Fatalf("expected 1 script, got %d", len(runner.scripts))
			}
			if !strings.Contains(runner.scripts[0], tt.wantScript) {
				t.Errorf("script %q does not contain %q", runner.scripts[0], tt.wantScript)
			}
		})
	}
}

// Commands swallow bridge errors entirely
func TestCommandErrorSwallowed(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("osascript missing")}
	b := NewAppleScriptBridge(zap.NewNop(), testConfig{}, runner)

	// Must not panic or propagate anything
	b.TogglePlayPause(context.Background())
	b.Next(context.Background())
	b.Previous(context.Background())
	b.Seek(context.Background(), 10)

	if len(runner.scripts) != 4 {
		t.Errorf("expected 4 dispatched scripts, got %d", len(runner.scripts))
	}
}
