package domain

// Sentinel values shown while nothing is playing
const (
	NoTrackName   = "No Song Playing"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// TrackSnapshot is one successful now-playing read from the scripting bridge
type TrackSnapshot struct {
	// Track is the title of the currently playing track
	Track string
	// Artist name
	Artist string
	// Album name
	Album string
	// ArtworkURL is the URL of the album artwork, may be empty
	ArtworkURL string
	// Position is the playback position in seconds
	Position float64
	// Duration is the track length in seconds
	Duration float64
}
