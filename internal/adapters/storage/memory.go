package storage

import (
	"context"
	"sync"
	"time"

	"github.com/nmjoshi/melodex/internal/domain"
	"github.com/nmjoshi/melodex/internal/ports"
)

// Memory implements ports.SongStore with in-process maps. It is the default
// backend and the fallback target when the relational backend degrades.
type Memory struct {
	mu             sync.RWMutex
	songs          map[string]domain.Song
	playlists      map[int]domain.Playlist
	nextPlaylistID int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		songs:          make(map[string]domain.Song),
		playlists:      make(map[int]domain.Playlist),
		nextPlaylistID: 1,
	}
}

func (m *Memory) GetSong(_ context.Context, id string) (*domain.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	song, ok := m.songs[id]
	if !ok {
		return nil, nil
	}
	return &song, nil
}

func (m *Memory) ListSongs(_ context.Context) ([]domain.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	songs := make([]domain.Song, 0, len(m.songs))
	for _, song := range m.songs {
		songs = append(songs, song)
	}
	return songs, nil
}

func (m *Memory) CreateSong(_ context.Context, song domain.Song) (*domain.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.songs[song.ID] = song
	return &song, nil
}

func (m *Memory) UpdateSong(_ context.Context, id string, update domain.SongUpdate) (*domain.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	song, ok := m.songs[id]
	if !ok {
		return nil, nil
	}

	applyUpdate(&song, update)
	m.songs[id] = song
	return &song, nil
}

func (m *Memory) DeleteSong(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.songs[id]; !ok {
		return false, nil
	}
	delete(m.songs, id)
	return true, nil
}

func (m *Memory) DownloadedSongs(_ context.Context) ([]domain.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var songs []domain.Song
	for _, song := range m.songs {
		if song.IsDownloaded {
			songs = append(songs, song)
		}
	}
	return songs, nil
}

func (m *Memory) MarkDownloaded(_ context.Context, id string, fileSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	song, ok := m.songs[id]
	if !ok {
		return nil
	}

	now := time.Now()
	song.IsDownloaded = true
	song.DownloadedAt = &now
	song.FileSize = fileSize
	m.songs[id] = song
	return nil
}

func (m *Memory) GetPlaylist(_ context.Context, id int) (*domain.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	playlist, ok := m.playlists[id]
	if !ok {
		return nil, nil
	}
	return &playlist, nil
}

func (m *Memory) ListPlaylists(_ context.Context) ([]domain.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	playlists := make([]domain.Playlist, 0, len(m.playlists))
	for _, playlist := range m.playlists {
		playlists = append(playlists, playlist)
	}
	return playlists, nil
}

func (m *Memory) CreatePlaylist(_ context.Context, playlist domain.Playlist) (*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist.ID = m.nextPlaylistID
	m.nextPlaylistID++
	playlist.CreatedAt = time.Now()
	m.playlists[playlist.ID] = playlist
	return &playlist, nil
}

func (m *Memory) UpdatePlaylist(_ context.Context, id int, update domain.PlaylistUpdate) (*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, ok := m.playlists[id]
	if !ok {
		return nil, nil
	}

	applyPlaylistUpdate(&playlist, update)
	m.playlists[id] = playlist
	return &playlist, nil
}

func (m *Memory) DeletePlaylist(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.playlists[id]; !ok {
		return false, nil
	}
	delete(m.playlists, id)
	return true, nil
}

// applyUpdate merges non-nil fields of a partial update into a song.
func applyUpdate(song *domain.Song, update domain.SongUpdate) {
	if update.Name != nil {
		song.Name = *update.Name
	}
	if update.Artist != nil {
		song.Artist = *update.Artist
	}
	if update.Album != nil {
		song.Album = *update.Album
	}
	if update.Image != nil {
		song.Image = *update.Image
	}
	if update.Duration != nil {
		song.Duration = *update.Duration
	}
	if update.URL != nil {
		song.URL = *update.URL
	}
	if update.DownloadURL != nil {
		song.DownloadURL = *update.DownloadURL
	}
	if update.Quality != nil {
		song.Quality = *update.Quality
	}
	if update.Language != nil {
		song.Language = *update.Language
	}
	if update.Year != nil {
		song.Year = *update.Year
	}
}

// applyPlaylistUpdate merges non-nil fields of a partial update into a
// playlist. The song ID slice is copied so the caller's slice stays detached.
func applyPlaylistUpdate(playlist *domain.Playlist, update domain.PlaylistUpdate) {
	if update.Name != nil {
		playlist.Name = *update.Name
	}
	if update.Description != nil {
		playlist.Description = *update.Description
	}
	if update.Image != nil {
		playlist.Image = *update.Image
	}
	if update.SongIDs != nil {
		playlist.SongIDs = append([]string(nil), (*update.SongIDs)...)
	}
}

var _ ports.SongStore = (*Memory)(nil)
