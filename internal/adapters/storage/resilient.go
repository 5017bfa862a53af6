package storage

import (
	"context"
	"log"

	"github.com/nmjoshi/melodex/internal/domain"
	"github.com/nmjoshi/melodex/internal/ports"
)

// Resilient decorates a primary SongStore with a fallback. Every operation
// tries the primary first; on any error it logs a warning and transparently
// delegates to the fallback, so callers never observe backend failures.
type Resilient struct {
	primary  ports.SongStore
	fallback ports.SongStore
}

// NewResilient wraps primary with fallback.
func NewResilient(primary, fallback ports.SongStore) *Resilient {
	return &Resilient{primary: primary, fallback: fallback}
}

func (r *Resilient) GetSong(ctx context.Context, id string) (*domain.Song, error) {
	song, err := r.primary.GetSong(ctx, id)
	if err != nil {
		r.warn("GetSong", err)
		return r.fallback.GetSong(ctx, id)
	}
	return song, nil
}

func (r *Resilient) ListSongs(ctx context.Context) ([]domain.Song, error) {
	songs, err := r.primary.ListSongs(ctx)
	if err != nil {
		r.warn("ListSongs", err)
		return r.fallback.ListSongs(ctx)
	}
	return songs, nil
}

func (r *Resilient) CreateSong(ctx context.Context, song domain.Song) (*domain.Song, error) {
	created, err := r.primary.CreateSong(ctx, song)
	if err != nil {
		r.warn("CreateSong", err)
		return r.fallback.CreateSong(ctx, song)
	}
	return created, nil
}

func (r *Resilient) UpdateSong(ctx context.Context, id string, update domain.SongUpdate) (*domain.Song, error) {
	updated, err := r.primary.UpdateSong(ctx, id, update)
	if err != nil {
		r.warn("UpdateSong", err)
		return r.fallback.UpdateSong(ctx, id, update)
	}
	return updated, nil
}

func (r *Resilient) DeleteSong(ctx context.Context, id string) (bool, error) {
	deleted, err := r.primary.DeleteSong(ctx, id)
	if err != nil {
		r.warn("DeleteSong", err)
		return r.fallback.DeleteSong(ctx, id)
	}
	return deleted, nil
}

func (r *Resilient) DownloadedSongs(ctx context.Context) ([]domain.Song, error) {
	songs, err := r.primary.DownloadedSongs(ctx)
	if err != nil {
		r.warn("DownloadedSongs", err)
		return r.fallback.DownloadedSongs(ctx)
	}
	return songs, nil
}

func (r *Resilient) MarkDownloaded(ctx context.Context, id string, fileSize int64) error {
	if err := r.primary.MarkDownloaded(ctx, id, fileSize); err != nil {
		r.warn("MarkDownloaded", err)
		return r.fallback.MarkDownloaded(ctx, id, fileSize)
	}
	return nil
}

func (r *Resilient) GetPlaylist(ctx context.Context, id int) (*domain.Playlist, error) {
	playlist, err := r.primary.GetPlaylist(ctx, id)
	if err != nil {
		r.warn("GetPlaylist", err)
		return r.fallback.GetPlaylist(ctx, id)
	}
	return playlist, nil
}

func (r *Resilient) ListPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	playlists, err := r.primary.ListPlaylists(ctx)
	if err != nil {
		r.warn("ListPlaylists", err)
		return r.fallback.ListPlaylists(ctx)
	}
	return playlists, nil
}

func (r *Resilient) CreatePlaylist(ctx context.Context, playlist domain.Playlist) (*domain.Playlist, error) {
	created, err := r.primary.CreatePlaylist(ctx, playlist)
	if err != nil {
		r.warn("CreatePlaylist", err)
		return r.fallback.CreatePlaylist(ctx, playlist)
	}
	return created, nil
}

func (r *Resilient) UpdatePlaylist(ctx context.Context, id int, update domain.PlaylistUpdate) (*domain.Playlist, error) {
	updated, err := r.primary.UpdatePlaylist(ctx, id, update)
	if err != nil {
		r.warn("UpdatePlaylist", err)
		return r.fallback.UpdatePlaylist(ctx, id, update)
	}
	return updated, nil
}

func (r *Resilient) DeletePlaylist(ctx context.Context, id int) (bool, error) {
	deleted, err := r.primary.DeletePlaylist(ctx, id)
	if err != nil {
		r.warn("DeletePlaylist", err)
		return r.fallback.DeletePlaylist(ctx, id)
	}
	return deleted, nil
}

func (r *Resilient) warn(op string, err error) {
	log.Printf("[storage] primary %s failed, falling back to in-memory store: %v", op, err)
}

var _ ports.SongStore = (*Resilient)(nil)
