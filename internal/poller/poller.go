package poller

import (
	"context"
	"hash/fnv"
	"image"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FerdiWoo/nowbar/internal/domain"
	"github.com/FerdiWoo/nowbar/internal/sampler"
	"github.com/FerdiWoo/nowbar/internal/state"
	"go.uber.org/zap"
)

const (
	// queryTimeout bounds a single poll cycle end to end
	queryTimeout = 5 * time.Second
	// commandTimeout bounds a fire-and-forget playback command
	commandTimeout = 5 * time.Second

	// seek confirmation loop defaults
	defaultSeekAttempts  = 10
	defaultSeekInterval  = 500 * time.Millisecond
	defaultSeekTolerance = 1.0 // seconds
)

// Coordinator drives the poll cycle: it owns the recurring timer,
// throttles external queries adaptively, deduplicates redundant state
// updates via identity comparison, and serializes concurrent poll
// attempts with a busy flag. It is the only component that writes to
// the state store.
type Coordinator struct {
	logger  *zap.Logger
	bridge  domain.Bridge
	fetcher domain.Fetcher
	sampler *sampler.Sampler
	store   *state.Store

	tickInterval    time.Duration
	playingInterval time.Duration
	idleInterval    time.Duration
	paletteSize     int

	// busy serializes poll cycles: a tick arriving while a poll is in
	// flight is dropped, not queued
	busy atomic.Bool

	mu            sync.Mutex
	interval      time.Duration // current throttle window
	lastUpdate    time.Time     // completion time of the last poll
	lastIdentity  string        // "" means invalidated: next poll is full
	lastArtworkID string
	lastArtwork   image.Image
	lastColor     sampler.RGBA
	lastPalette   []sampler.RGBA

	seekAttempts  int
	seekInterval  time.Duration
	seekTolerance float64

	dragMu     sync.Mutex
	dragActive bool
	dragPos    float64
}

// NewCoordinator creates the polling coordinator
func NewCoordinator(
	logger *zap.Logger,
	cfg domain.Config,
	bridge domain.Bridge,
	fetch domain.Fetcher,
	samp *sampler.Sampler,
	store *state.Store,
) *Coordinator {
	return &Coordinator{
		logger:          logger,
		bridge:          bridge,
		fetcher:         fetch,
		sampler:         samp,
		store:           store,
		tickInterval:    cfg.TickInterval(),
		playingInterval: cfg.PlayingInterval(),
		idleInterval:    cfg.IdleInterval(),
		paletteSize:     cfg.PaletteSize(),
		interval:        cfg.IdleInterval(),
		seekAttempts:    defaultSeekAttempts,
		seekInterval:    defaultSeekInterval,
		seekTolerance:   defaultSeekTolerance,
	}
}

// Run fires the base timer until the context is cancelled. Each tick is
// handled on its own goroutine so a slow external app cannot stall the
// timer; the busy flag drops overlapping ticks.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("Polling coordinator started",
		zap.Duration("tick", c.tickInterval))

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	// Prime the state before the first tick
	go c.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Polling coordinator stopped")
			return
		case <-ticker.C:
			go c.tick(ctx)
		}
	}
}

// tick runs one poll cycle unless one is already in flight or the
// throttle window has not elapsed. Both suppressed cases are no-ops.
func (c *Coordinator) tick(ctx context.Context) {
	if !c.busy.CompareAndSwap(false, true) {
		return
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	throttled := !c.lastUpdate.IsZero() && time.Since(c.lastUpdate) < c.interval
	c.mu.Unlock()
	if throttled {
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	c.poll(pollCtx)

	c.mu.Lock()
	c.lastUpdate = time.Now()
	c.mu.Unlock()
}

// poll performs the external queries and applies the result to the store
func (c *Coordinator) poll(ctx context.Context) {
	// Cheap check first: no process, no queries
	if !c.bridge.IsRunning(ctx) {
		c.clear()
		c.setInterval(c.idleInterval)
		return
	}

	snap, err := c.bridge.NowPlaying(ctx)
	if err != nil {
		// Best effort: a failed query reads as nothing playing and the
		// next cycle retries
		c.logger.Debug("Now-playing query failed", zap.Error(err))
		snap = nil
	}
	if snap == nil {
		c.clear()
		c.setInterval(c.idleInterval)
		return
	}

	c.setInterval(c.playingInterval)
	c.apply(ctx, snap)
}

// apply writes the snapshot to the store, deduplicating on the track
// identity key so unchanged tracks only refresh position and duration
func (c *Coordinator) apply(ctx context.Context, snap *domain.TrackSnapshot) {
	id := identityKey(snap.Track, snap.Artist, snap.Album, true)

	c.mu.Lock()
	unchanged := c.lastIdentity == id
	c.mu.Unlock()

	if unchanged {
		c.store.Apply(func(s *state.Snapshot) {
			s.Position = snap.Position
			s.Duration = snap.Duration
		})
		return
	}

	artwork, color, palette := c.resolveArtwork(ctx, snap)

	c.store.Apply(func(s *state.Snapshot) {
		s.Track = snap.Track
		s.Artist = snap.Artist
		s.Album = snap.Album
		s.Playing = true
		s.Position = snap.Position
		s.Duration = snap.Duration
		s.Artwork = artwork
		s.Color = color
		s.Palette = palette
	})

	c.mu.Lock()
	c.lastIdentity = id
	c.mu.Unlock()

	c.logger.Info("Track changed",
		zap.String("track", snap.Track),
		zap.String("artist", snap.Artist),
		zap.String("album", snap.Album))
}

// resolveArtwork fetches and decodes artwork for a new track identity.
// The artwork identity key (track/album plus a content hash of the
// fetched bytes) gates the expensive decode and color work: two tracks
// sharing album art reuse the cached image and colors.
func (c *Coordinator) resolveArtwork(ctx context.Context, snap *domain.TrackSnapshot) (image.Image, sampler.RGBA, []sampler.RGBA) {
	if snap.ArtworkURL == "" {
		c.cacheArtwork("", nil, sampler.White, nil)
		return nil, sampler.White, nil
	}

	data, err := c.fetcher.Fetch(ctx, snap.ArtworkURL)
	if err != nil {
		// Silent degradation: no artwork, default color
		c.logger.Debug("Artwork fetch failed", zap.Error(err))
		c.cacheArtwork("", nil, sampler.White, nil)
		return nil, sampler.White, nil
	}

	artID := artworkKey(snap.Track, snap.Album, data)

	c.mu.Lock()
	if artID == c.lastArtworkID {
		artwork, color, palette := c.lastArtwork, c.lastColor, c.lastPalette
		c.mu.Unlock()
		return artwork, color, palette
	}
	c.mu.Unlock()

	img, err := sampler.Decode(data)
	if err != nil {
		c.logger.Debug("Artwork decode failed", zap.Error(err))
		c.cacheArtwork("", nil, sampler.White, nil)
		return nil, sampler.White, nil
	}

	color, ok := c.sampler.Dominant(img)
	if !ok {
		color = sampler.White
	}
	palette := c.sampler.Palette(img, c.paletteSize)

	c.cacheArtwork(artID, img, color, palette)
	return img, color, palette
}

func (c *Coordinator) cacheArtwork(id string, img image.Image, color sampler.RGBA, palette []sampler.RGBA) {
	c.mu.Lock()
	c.lastArtworkID = id
	c.lastArtwork = img
	c.lastColor = color
	c.lastPalette = palette
	c.mu.Unlock()
}

// clear resets the store to the sentinel state. Repeated clears while
// the app stays idle are deduplicated like any other identity.
func (c *Coordinator) clear() {
	cleared := identityKey(domain.NoTrackName, domain.UnknownArtist, domain.UnknownAlbum, false)

	c.mu.Lock()
	alreadyCleared := c.lastIdentity == cleared
	if !alreadyCleared {
		c.lastIdentity = cleared
		c.lastArtworkID = ""
		c.lastArtwork = nil
		c.lastColor = sampler.White
		c.lastPalette = nil
	}
	c.mu.Unlock()

	if alreadyCleared {
		return
	}

	c.store.Apply(func(s *state.Snapshot) {
		*s = state.Cleared()
	})
}

func (c *Coordinator) setInterval(d time.Duration) {
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
}

// invalidate resets the dedup cache so the next tick performs a full,
// non-throttled query. Command paths call this to compensate for
// external state changes polling would otherwise pick up late.
func (c *Coordinator) invalidate() {
	c.mu.Lock()
	c.lastIdentity = ""
	c.lastUpdate = time.Time{}
	c.mu.Unlock()
}

// Previous skips to the previous track
func (c *Coordinator) Previous() {
	c.invalidate()
	go c.dispatch(c.bridge.Previous)
}

// Next skips to the next track
func (c *Coordinator) Next() {
	c.invalidate()
	go c.dispatch(c.bridge.Next)
}

// TogglePlayPause toggles playback
func (c *Coordinator) TogglePlayPause() {
	c.invalidate()
	go c.dispatch(c.bridge.TogglePlayPause)
}

func (c *Coordinator) dispatch(cmd func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	cmd(ctx)
}

// BeginDrag starts a display-position override for an active seek drag
func (c *Coordinator) BeginDrag() {
	pos := c.store.Current().Position
	c.dragMu.Lock()
	c.dragActive = true
	c.dragPos = pos
	c.dragMu.Unlock()
}

// DragTo moves the display-position override target
func (c *Coordinator) DragTo(seconds float64) {
	c.dragMu.Lock()
	if c.dragActive {
		c.dragPos = seconds
	}
	c.dragMu.Unlock()
}

// EndDrag releases the drag and seeks to the final target. The override
// stays active until the seek is confirmed or attempts run out.
func (c *Coordinator) EndDrag() {
	c.dragMu.Lock()
	if !c.dragActive {
		c.dragMu.Unlock()
		return
	}
	target := c.dragPos
	c.dragMu.Unlock()

	c.invalidate()
	go c.confirmSeek(target)
}

// SeekTo seeks without a preceding drag, holding the display override
// until the external position catches up
func (c *Coordinator) SeekTo(seconds float64) {
	c.dragMu.Lock()
	c.dragActive = true
	c.dragPos = seconds
	c.dragMu.Unlock()

	c.invalidate()
	go c.confirmSeek(seconds)
}

// DisplayPosition returns the position a front-end should render: the
// drag target while an override is active, the polled position otherwise
func (c *Coordinator) DisplayPosition() float64 {
	c.dragMu.Lock()
	active, pos := c.dragActive, c.dragPos
	c.dragMu.Unlock()

	if active {
		return pos
	}
	return c.store.Current().Position
}

// confirmSeek issues the seek command and re-queries at a fixed short
// interval until the reported position is within tolerance of the
// target or attempts are exhausted, then releases the drag override.
// Seeks do not take effect instantly in the external app; without this
// loop the display would briefly snap back to the stale position.
func (c *Coordinator) confirmSeek(target float64) {
	defer c.releaseDrag()

	cmdCtx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	c.bridge.Seek(cmdCtx, target)
	cancel()

	timer := time.NewTimer(c.seekInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.seekAttempts; attempt++ {
		<-timer.C

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		snap, err := c.bridge.NowPlaying(ctx)
		cancel()

		if err == nil && snap != nil && math.Abs(snap.Position-target) <= c.seekTolerance {
			c.logger.Debug("Seek confirmed",
				zap.Float64("target", target),
				zap.Int("attempt", attempt))
			return
		}

		timer.Reset(c.seekInterval)
	}

	c.logger.Debug("Seek not confirmed, releasing override",
		zap.Float64("target", target),
		zap.Int("attempts", c.seekAttempts))
}

func (c *Coordinator) releaseDrag() {
	c.dragMu.Lock()
	c.dragActive = false
	c.dragMu.Unlock()
}

// identityKey detects "nothing meaningfully changed" between polls
func identityKey(track, artist, album string, playing bool) string {
	return strings.Join([]string{track, artist, album, strconv.FormatBool(playing)}, "|")
}

// artworkKey mixes track/album identity with a content hash of the
// fetched bytes. A heuristic, not a guarantee: collisions are accepted.
func artworkKey(track, album string, data []byte) string {
	h := fnv.New64a()
	h.Write(data)
	return track + "|" + album + "#" + strconv.FormatUint(h.Sum64(), 16)
}
