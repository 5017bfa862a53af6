package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/nmjoshi/melodex/internal/domain"
	"github.com/nmjoshi/melodex/internal/ports"
)

const relatedLookupTimeout = 15 * time.Second

// PlayerService is the playback/queue engine. It exclusively owns the single
// audio session and is the only writer of the playback state; every other
// component observes via State snapshots.
type PlayerService struct {
	session ports.AudioSession
	catalog ports.CatalogProvider

	mu       sync.Mutex
	current  *domain.Song
	playing  bool
	position float64
	duration float64
	volume   float64
	muted    bool
	queue    []domain.Song
	index    int
	autoPlay bool
	fetching bool // related-song chain in flight

	randIntn func(int) int
}

// NewPlayerService creates the engine and installs it as the session's event
// handler.
func NewPlayerService(session ports.AudioSession, catalog ports.CatalogProvider) *PlayerService {
	s := &PlayerService{
		session:  session,
		catalog:  catalog,
		volume:   1,
		randIntn: rand.Intn,
	}
	session.SetHandler(s.handleMediaEvent)
	return s
}

// Play sets the current song, switches the media source and begins playback.
// If the session rejects playback the engine reports paused instead of
// failing loudly.
func (s *PlayerService) Play(song domain.Song) {
	s.mu.Lock()
	copied := song
	s.current = &copied
	s.position = 0
	s.duration = 0
	s.mu.Unlock()

	src := ports.MediaSource{URL: song.URL, Duration: float64(song.Duration)}
	if src.URL == "" {
		src.URL = song.DownloadURL
	}

	if err := s.session.Load(src); err != nil {
		log.Printf("[player] failed to load %s: %v", song.ID, err)
		s.setPlaying(false)
		return
	}
	if err := s.session.Play(); err != nil {
		log.Printf("[player] playback rejected for %s: %v", song.ID, err)
		s.setPlaying(false)
		return
	}
	s.setPlaying(true)
}

// Pause stops playback, keeping the current song loaded.
func (s *PlayerService) Pause() {
	s.session.Pause()
	s.setPlaying(false)
}

// Resume continues playback. A no-op when no song is current.
func (s *PlayerService) Resume() {
	s.mu.Lock()
	hasSong := s.current != nil
	s.mu.Unlock()
	if !hasSong {
		return
	}

	if err := s.session.Play(); err != nil {
		log.Printf("[player] resume rejected: %v", err)
		s.setPlaying(false)
		return
	}
	s.setPlaying(true)
}

// TogglePlayPause flips between playing and paused.
func (s *PlayerService) TogglePlayPause() {
	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()

	if playing {
		s.Pause()
	} else {
		s.Resume()
	}
}

// Seek moves the playback position. No bounds clamping beyond what the
// session enforces.
func (s *PlayerService) Seek(seconds float64) {
	s.session.Seek(seconds)
	s.mu.Lock()
	s.position = seconds
	s.mu.Unlock()
}

// SetVolume sets the session volume (0.0-1.0). A positive volume clears
// mute; zero sets it.
func (s *PlayerService) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	s.session.SetVolume(v)
	s.mu.Lock()
	s.volume = v
	s.muted = v == 0
	s.mu.Unlock()
}

// ToggleMute silences the session without losing the remembered volume, and
// restores it on unmute.
func (s *PlayerService) ToggleMute() {
	s.mu.Lock()
	muted := s.muted
	volume := s.volume
	s.mu.Unlock()

	if muted {
		s.session.SetVolume(volume)
		s.mu.Lock()
		s.muted = false
		s.mu.Unlock()
		return
	}

	s.session.SetVolume(0)
	s.mu.Lock()
	s.muted = true
	s.mu.Unlock()
}

// SetQueue replaces the queue wholesale. It does not start playback.
func (s *PlayerService) SetQueue(songs []domain.Song) {
	s.mu.Lock()
	s.queue = append([]domain.Song(nil), songs...)
	s.index = 0
	s.mu.Unlock()
}

// PlayNext advances the queue circularly and plays the resulting song. A
// no-op on an empty queue.
func (s *PlayerService) PlayNext() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.index = (s.index + 1) % len(s.queue)
	song := s.queue[s.index]
	s.mu.Unlock()

	s.Play(song)
}

// PlayPrevious retreats the queue circularly and plays the resulting song. A
// no-op on an empty queue.
func (s *PlayerService) PlayPrevious() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.index = (s.index - 1 + len(s.queue)) % len(s.queue)
	song := s.queue[s.index]
	s.mu.Unlock()

	s.Play(song)
}

// ToggleAutoPlay flips the auto-play flag and returns the new value. It has
// no effect on a chain already in flight.
func (s *PlayerService) ToggleAutoPlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoPlay = !s.autoPlay
	return s.autoPlay
}

// PlayRelatedSong queries the catalog for songs related to the current one
// and plays a uniformly random pick, never the current song itself. A second
// call while one is in flight is a no-op.
func (s *PlayerService) PlayRelatedSong(ctx context.Context) error {
	s.mu.Lock()
	if s.fetching || s.current == nil {
		s.mu.Unlock()
		return nil
	}
	s.fetching = true
	current := *s.current
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.fetching = false
		s.mu.Unlock()
	}()

	// The artist lookup falls through to the song-name lookup on an error as
	// well as on zero results; the chain fails only when the name lookup also
	// errors.
	results, err := s.catalog.RelatedSongs(ctx, current.Artist)
	if err != nil || len(results) == 0 {
		results, err = s.catalog.RelatedSongs(ctx, current.Name)
		if err != nil {
			return fmt.Errorf("related songs lookup failed: %w", err)
		}
	}

	candidates := make([]domain.Song, 0, len(results))
	for _, song := range results {
		if song.ID != current.ID {
			candidates = append(candidates, song)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	pick := candidates[s.randIntn(len(candidates))]
	log.Printf("[player] autoplay: %s - %s", pick.Artist, pick.Name)
	s.Play(pick)
	return nil
}

// State returns a snapshot of the playback state.
func (s *PlayerService) State() domain.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *domain.Song
	if s.current != nil {
		copied := *s.current
		current = &copied
	}

	return domain.PlaybackState{
		CurrentSong:  current,
		IsPlaying:    s.playing,
		CurrentTime:  s.position,
		Duration:     s.duration,
		Volume:       s.volume,
		Muted:        s.muted,
		QueueLength:  len(s.queue),
		CurrentIndex: s.index,
		AutoPlay:     s.autoPlay,
	}
}

// Close releases the underlying audio session.
func (s *PlayerService) Close() error {
	return s.session.Close()
}

// handleMediaEvent consumes session events in emission order. It never
// reorders or coalesces them beyond accepting the latest position.
func (s *PlayerService) handleMediaEvent(ev ports.MediaEvent) {
	switch ev.Type {
	case ports.MediaEventLoaded:
		s.mu.Lock()
		s.duration = ev.Duration
		s.mu.Unlock()

	case ports.MediaEventTimeUpdate:
		s.mu.Lock()
		s.position = ev.Position
		if ev.Duration > 0 {
			s.duration = ev.Duration
		}
		s.mu.Unlock()

	case ports.MediaEventEnded:
		s.handleEnded()

	case ports.MediaEventError:
		log.Printf("[player] media error: %v", ev.Err)
		s.setPlaying(false)
	}
}

// handleEnded runs the advance-or-chain logic on natural track end: next
// unplayed queue entry first, then the auto-play related chain, else stop
// with the current song still loaded. Chain failures are logged, never
// thrown into the event handler.
func (s *PlayerService) handleEnded() {
	s.mu.Lock()
	s.playing = false
	hasNext := len(s.queue) > 0 && s.index < len(s.queue)-1
	autoPlay := s.autoPlay
	s.mu.Unlock()

	if hasNext {
		s.PlayNext()
		return
	}

	if autoPlay {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), relatedLookupTimeout)
			defer cancel()
			if err := s.PlayRelatedSong(ctx); err != nil {
				log.Printf("[player] autoplay chain failed: %v", err)
			}
		}()
	}
}

func (s *PlayerService) setPlaying(playing bool) {
	s.mu.Lock()
	s.playing = playing
	s.mu.Unlock()
}
