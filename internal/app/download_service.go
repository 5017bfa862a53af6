package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/nmjoshi/melodex/internal/domain"
	"github.com/nmjoshi/melodex/internal/ports"
)

const (
	downloadedKey     = "downloaded_songs"
	progressKeyPrefix = "download_progress_"

	defaultStepDelay = 100 * time.Millisecond
	defaultGrace     = 5 * time.Second
)

// ErrDownloadCancelled is returned by StartDownload when the download was
// cancelled before completing. No durable write happens in that case.
var ErrDownloadCancelled = errors.New("download cancelled")

type progressListener struct {
	id uuid.UUID
	fn func(domain.DownloadProgress)
}

// DownloadService tracks simulated downloads. Progress steps for a single
// song are strictly ordered; downloads of different songs interleave freely.
// Completed songs are appended to the durable downloaded set and the metadata
// store is notified asynchronously.
//
// Starting a download for an already-downloaded song is not guarded here:
// callers must check IsDownloaded first, or the stored record is silently
// overwritten.
type DownloadService struct {
	local ports.LocalStore
	store ports.SongStore

	stepDelay time.Duration
	grace     time.Duration

	mu        sync.Mutex
	active    map[string]*domain.DownloadProgress
	cancelled map[string]bool
	listeners []progressListener

	// durableMu serializes read-filter-write cycles on the downloaded set so
	// two downloads completing in the same tick cannot lose updates.
	durableMu sync.Mutex

	fileSize func() int64
}

// NewDownloadService creates a tracker persisting into local and notifying
// store on completion.
func NewDownloadService(local ports.LocalStore, store ports.SongStore) *DownloadService {
	return &DownloadService{
		local:     local,
		store:     store,
		stepDelay: defaultStepDelay,
		grace:     defaultGrace,
		active:    make(map[string]*domain.DownloadProgress),
		cancelled: make(map[string]bool),
		fileSize:  fabricateFileSize,
	}
}

// fabricateFileSize stands in for a real transfer's byte count.
func fabricateFileSize() int64 {
	return rand.Int63n(5_000_000) + 1_000_000
}

// SetStepDelay overrides the delay between progress steps. It only affects
// downloads started afterwards.
func (s *DownloadService) SetStepDelay(d time.Duration) {
	if d > 0 {
		s.stepDelay = d
	}
}

// AddProgressListener registers a callback for every download transition.
// Listeners are invoked synchronously in registration order with the full
// current record. The returned function deregisters the listener.
func (s *DownloadService) AddProgressListener(fn func(domain.DownloadProgress)) func() {
	id := uuid.New()

	s.mu.Lock()
	s.listeners = append(s.listeners, progressListener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// StartDownload runs one simulated download to completion: pending,
// downloading, progress in fixed 10% increments, then completed with a
// durable write, or an error with none. It returns when the download reaches
// a terminal state.
func (s *DownloadService) StartDownload(ctx context.Context, song domain.Song) error {
	rec := &domain.DownloadProgress{SongID: song.ID, Status: domain.DownloadPending}

	s.mu.Lock()
	s.active[song.ID] = rec
	delete(s.cancelled, song.ID)
	s.mu.Unlock()
	s.broadcast(*rec)

	s.transition(song.ID, domain.DownloadDownloading, 0)

	url := song.DownloadURL
	if url == "" {
		url = song.URL
	}
	if url == "" {
		return s.fail(song.ID, fmt.Errorf("no download URL available for song %s", song.ID))
	}

	for progress := 0; progress <= 100; progress += 10 {
		select {
		case <-ctx.Done():
			s.abort(song.ID)
			return fmt.Errorf("download of %s interrupted: %w", song.ID, ctx.Err())
		case <-time.After(s.stepDelay):
		}

		if s.isCancelled(song.ID) {
			s.abort(song.ID)
			return ErrDownloadCancelled
		}

		s.transition(song.ID, domain.DownloadDownloading, progress)
		s.snapshotProgress(song.ID, progress)
	}

	stored := song
	stored.IsDownloaded = true
	now := time.Now()
	stored.DownloadedAt = &now
	stored.FileSize = s.fileSize()

	if err := s.appendDownloaded(stored); err != nil {
		return s.fail(song.ID, err)
	}

	s.transition(song.ID, domain.DownloadCompleted, 100)
	s.scheduleEviction(song.ID)
	log.Printf("[download] %s complete (%s)", song.ID, humanize.Bytes(uint64(stored.FileSize)))

	// Fire-and-forget: a failed notification never rolls back the local
	// completion state.
	go s.notifyStore(stored)

	return nil
}

// CancelDownload requests cooperative cancellation of an active download.
// The step loop observes the flag on its next tick and aborts without a
// durable write. Cancelling an unknown or finished download is a no-op.
func (s *DownloadService) CancelDownload(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.active[id]
	if !ok || rec.Status.Terminal() {
		return
	}
	s.cancelled[id] = true
}

// Progress returns the live record for a download, if tracked. Terminal
// records stay queryable for a grace window before eviction.
func (s *DownloadService) Progress(id string) (domain.DownloadProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.active[id]
	if !ok {
		return domain.DownloadProgress{}, false
	}
	return *rec, true
}

// IsDownloaded reports whether a song is in the durable downloaded set.
func (s *DownloadService) IsDownloaded(id string) bool {
	songs, err := s.DownloadedSongs()
	if err != nil {
		return false
	}
	for _, song := range songs {
		if song.ID == id {
			return true
		}
	}
	return false
}

// DownloadedSongs returns the durable downloaded set.
func (s *DownloadService) DownloadedSongs() ([]domain.Song, error) {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()
	return s.readDownloaded()
}

// RemoveDownloadedSong removes a song from the durable set. Removing an
// absent ID is a no-op.
func (s *DownloadService) RemoveDownloadedSong(id string) error {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()

	songs, err := s.readDownloaded()
	if err != nil {
		return err
	}

	kept := songs[:0]
	for _, song := range songs {
		if song.ID != id {
			kept = append(kept, song)
		}
	}
	return s.local.Put(downloadedKey, kept)
}

// TotalDownloadedBytes sums the stored file sizes of the downloaded set.
func (s *DownloadService) TotalDownloadedBytes() int64 {
	songs, err := s.DownloadedSongs()
	if err != nil {
		return 0
	}

	var total int64
	for _, song := range songs {
		total += song.FileSize
	}
	return total
}

// ClearAllDownloads drops the entire durable downloaded set.
func (s *DownloadService) ClearAllDownloads() error {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()
	return s.local.Delete(downloadedKey)
}

// -- Internals ---------------------------------------------------------------

func (s *DownloadService) readDownloaded() ([]domain.Song, error) {
	var songs []domain.Song
	if _, err := s.local.Get(downloadedKey, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// appendDownloaded performs one serialized read-filter-write cycle, replacing
// any prior record with the same ID.
func (s *DownloadService) appendDownloaded(song domain.Song) error {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()

	songs, err := s.readDownloaded()
	if err != nil {
		return err
	}

	kept := songs[:0]
	for _, existing := range songs {
		if existing.ID != song.ID {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, song)
	return s.local.Put(downloadedKey, kept)
}

func (s *DownloadService) transition(id string, status domain.DownloadStatus, progress int) {
	s.mu.Lock()
	rec, ok := s.active[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.Status = status
	rec.Progress = progress
	snapshot := *rec
	s.mu.Unlock()

	s.broadcast(snapshot)
}

func (s *DownloadService) fail(id string, err error) error {
	s.mu.Lock()
	rec, ok := s.active[id]
	if ok {
		rec.Status = domain.DownloadError
		rec.Error = err.Error()
	}
	var snapshot domain.DownloadProgress
	if ok {
		snapshot = *rec
	}
	s.mu.Unlock()

	if ok {
		s.broadcast(snapshot)
	}
	s.scheduleEviction(id)
	log.Printf("[download] %s failed: %v", id, err)
	return err
}

// abort drops the live record immediately with no terminal broadcast and no
// durable write.
func (s *DownloadService) abort(id string) {
	s.mu.Lock()
	delete(s.active, id)
	delete(s.cancelled, id)
	s.mu.Unlock()
}

func (s *DownloadService) isCancelled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled[id]
}

// broadcast delivers one record to every listener, synchronously, in
// registration order.
func (s *DownloadService) broadcast(rec domain.DownloadProgress) {
	s.mu.Lock()
	listeners := make([]progressListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(rec)
	}
}

// snapshotProgress persists a best-effort per-song progress snapshot. It is
// overwritten freely and failures are only logged.
func (s *DownloadService) snapshotProgress(id string, progress int) {
	rec := domain.DownloadProgress{SongID: id, Progress: progress, Status: domain.DownloadDownloading}
	if err := s.local.Put(progressKeyPrefix+id, rec); err != nil {
		log.Printf("[download] failed to snapshot progress for %s: %v", id, err)
	}
}

func (s *DownloadService) scheduleEviction(id string) {
	time.AfterFunc(s.grace, func() {
		s.mu.Lock()
		delete(s.active, id)
		delete(s.cancelled, id)
		s.mu.Unlock()
	})
}

func (s *DownloadService) notifyStore(song domain.Song) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.MarkDownloaded(ctx, song.ID, song.FileSize); err != nil {
		log.Printf("[download] failed to notify metadata store for %s: %v", song.ID, err)
	}
}
