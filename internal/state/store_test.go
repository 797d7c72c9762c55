package state

import (
	"context"
	"testing"
	"time"

	"github.com/FerdiWoo/nowbar/internal/domain"
	"go.uber.org/zap"
)

func startStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func TestClearedSentinels(t *testing.T) {
	snap := Cleared()
	if snap.Track != domain.NoTrackName {
		t.Errorf("Track: want %q, got %q", domain.NoTrackName, snap.Track)
	}
	if snap.Artist != domain.UnknownArtist {
		t.Errorf("Artist: want %q, got %q", domain.UnknownArtist, snap.Artist)
	}
	if snap.Album != domain.UnknownAlbum {
		t.Errorf("Album: want %q, got %q", domain.UnknownAlbum, snap.Album)
	}
	if snap.Playing {
		t.Error("cleared state must not be playing")
	}
	if snap.Artwork != nil {
		t.Error("cleared state must have no artwork")
	}
}

func TestApplyNotifiesObservers(t *testing.T) {
	s := startStore(t)

	got := make(chan Snapshot, 1)
	s.Subscribe(func(snap Snapshot) {
		got <- snap
	})

	s.Apply(func(snap *Snapshot) {
		snap.Track = "Song"
		snap.Playing = true
	})

	select {
	case snap := <-got:
		if snap.Track != "Song" || !snap.Playing {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("observer was not notified")
	}

	if cur := s.Current(); cur.Track != "Song" {
		t.Errorf("Current: want Song, got %q", cur.Track)
	}
}

func TestApplyOrdering(t *testing.T) {
	s := startStore(t)

	done := make(chan Snapshot, 3)
	s.Subscribe(func(snap Snapshot) {
		done <- snap
	})

	for _, pos := range []float64{1, 2, 3} {
		p := pos
		s.Apply(func(snap *Snapshot) { snap.Position = p })
	}

	// Mutations apply in submission order on the single writer
	for _, want := range []float64{1, 2, 3} {
		select {
		case snap := <-done:
			if snap.Position != want {
				t.Errorf("position: want %v, got %v", want, snap.Position)
			}
		case <-time.After(time.Second):
			t.Fatal("missing notification")
		}
	}
}

func TestSubscribeCancel(t *testing.T) {
	s := startStore(t)

	got := make(chan Snapshot, 2)
	cancel := s.Subscribe(func(snap Snapshot) {
		got <- snap
	})

	s.Apply(func(snap *Snapshot) { snap.Track = "first" })
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("observer was not notified before cancel")
	}

	cancel()
	s.Apply(func(snap *Snapshot) { snap.Track = "second" })

	// Give the writer a moment; no further notification may arrive
	select {
	case snap := <-got:
		t.Errorf("cancelled observer was notified: %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}
