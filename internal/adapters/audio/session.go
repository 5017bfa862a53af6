package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/nmjoshi/melodex/internal/ports"
)

// DefaultTickInterval is how often a playing session advances its position.
const DefaultTickInterval = 250 * time.Millisecond

// Session simulates a platform media element: it advances playback position
// on a wall-clock ticker and emits the same event stream a browser audio
// element would (loadedmetadata, timeupdate, ended, error). A real
// implementation would replace the ticker with decoder callbacks while
// keeping the same event contract.
type Session struct {
	mu       sync.Mutex
	handler  func(ports.MediaEvent)
	src      ports.MediaSource
	loaded   bool
	playing  bool
	pos      float64
	volume   float64
	closed   bool
	gen      int // invalidates stale run loops after Load/Pause
	interval time.Duration
}

// NewSession creates a stopped session. tick controls how often position
// advances while playing; zero means DefaultTickInterval.
func NewSession(tick time.Duration) *Session {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Session{volume: 1, interval: tick}
}

// SetHandler installs the single event handler.
func (s *Session) SetHandler(fn func(ports.MediaEvent)) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

// Load switches the media source, stops playback and resets the position.
func (s *Session) Load(src ports.MediaSource) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("audio: session is closed")
	}
	if src.URL == "" {
		s.loaded = false
		s.playing = false
		s.gen++
		h := s.handler
		s.mu.Unlock()
		err := fmt.Errorf("audio: no playable source")
		emit(h, ports.MediaEvent{Type: ports.MediaEventError, Err: err})
		return err
	}

	s.src = src
	s.loaded = true
	s.playing = false
	s.pos = 0
	s.gen++
	h := s.handler
	dur := src.Duration
	s.mu.Unlock()

	emit(h, ports.MediaEvent{Type: ports.MediaEventLoaded, Duration: dur})
	return nil
}

// Play begins or resumes playback from the current position.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("audio: session is closed")
	}
	if !s.loaded {
		return fmt.Errorf("audio: no media loaded")
	}
	if s.playing {
		return nil
	}

	s.playing = true
	s.gen++
	go s.run(s.gen)
	return nil
}

// Pause stops position advancement, keeping the source loaded.
func (s *Session) Pause() {
	s.mu.Lock()
	s.playing = false
	s.gen++
	s.mu.Unlock()
}

// Seek moves the position. No clamping beyond the track end.
func (s *Session) Seek(seconds float64) {
	s.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	s.pos = seconds
	s.mu.Unlock()
}

// SetVolume stores the session volume (0.0-1.0).
func (s *Session) SetVolume(v float64) {
	s.mu.Lock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.volume = v
	s.mu.Unlock()
}

// Volume returns the current session volume.
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Position returns the current playback position in seconds.
func (s *Session) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Close releases the session. Further operations fail.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.playing = false
	s.loaded = false
	s.gen++
	s.mu.Unlock()
	return nil
}

func (s *Session) run(gen int) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		if s.closed || !s.playing || s.gen != gen {
			s.mu.Unlock()
			return
		}

		s.pos += s.interval.Seconds()
		ended := s.src.Duration > 0 && s.pos >= s.src.Duration
		if ended {
			s.pos = s.src.Duration
			s.playing = false
		}
		h := s.handler
		pos := s.pos
		dur := s.src.Duration
		s.mu.Unlock()

		emit(h, ports.MediaEvent{Type: ports.MediaEventTimeUpdate, Position: pos, Duration: dur})
		if ended {
			emit(h, ports.MediaEvent{Type: ports.MediaEventEnded, Position: pos, Duration: dur})
			return
		}
	}
}

// emit delivers an event without holding the session lock, so handlers may
// call back into the session.
func emit(h func(ports.MediaEvent), ev ports.MediaEvent) {
	if h != nil {
		h(ev)
	}
}

var _ ports.AudioSession = (*Session)(nil)
