package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nmjoshi/melodex/internal/domain"
	"github.com/nmjoshi/melodex/internal/ports"
)

// songRecord is the relational shape of a song.
type songRecord struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Artist       string `gorm:"not null"`
	Album        string `gorm:"not null"`
	Image        string
	Duration     int
	URL          string `gorm:"column:url"`
	DownloadURL  string
	Quality      string
	Language     string
	Year         int
	IsDownloaded bool `gorm:"default:false"`
	DownloadedAt *time.Time
	FileSize     int64
}

func (songRecord) TableName() string { return "songs" }

// playlistRecord is the relational shape of a playlist. Song IDs are stored
// as a JSON-encoded array.
type playlistRecord struct {
	ID          int `gorm:"primaryKey;autoIncrement"`
	Name        string
	Description string
	Image       string
	SongIDs     string
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (playlistRecord) TableName() string { return "playlists" }

// Postgres implements ports.SongStore on a relational table via gorm.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to the database and migrates the schema.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&songRecord{}, &playlistRecord{}); err != nil {
		return nil, fmt.Errorf("storage: failed to migrate schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) GetSong(ctx context.Context, id string) (*domain.Song, error) {
	var rec songRecord
	err := p.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to get song: %w", err)
	}
	song := toSong(rec)
	return &song, nil
}

func (p *Postgres) ListSongs(ctx context.Context) ([]domain.Song, error) {
	var recs []songRecord
	if err := p.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list songs: %w", err)
	}

	songs := make([]domain.Song, 0, len(recs))
	for _, rec := range recs {
		songs = append(songs, toSong(rec))
	}
	return songs, nil
}

func (p *Postgres) CreateSong(ctx context.Context, song domain.Song) (*domain.Song, error) {
	rec := toRecord(song)
	err := p.db.WithContext(ctx).Save(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create song: %w", err)
	}
	created := toSong(rec)
	return &created, nil
}

func (p *Postgres) UpdateSong(ctx context.Context, id string, update domain.SongUpdate) (*domain.Song, error) {
	fields := updateFields(update)
	if len(fields) > 0 {
		err := p.db.WithContext(ctx).Model(&songRecord{}).Where("id = ?", id).Updates(fields).Error
		if err != nil {
			return nil, fmt.Errorf("storage: failed to update song: %w", err)
		}
	}
	return p.GetSong(ctx, id)
}

func (p *Postgres) DeleteSong(ctx context.Context, id string) (bool, error) {
	res := p.db.WithContext(ctx).Delete(&songRecord{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("storage: failed to delete song: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (p *Postgres) DownloadedSongs(ctx context.Context) ([]domain.Song, error) {
	var recs []songRecord
	err := p.db.WithContext(ctx).Where("is_downloaded = ?", true).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list downloaded songs: %w", err)
	}

	songs := make([]domain.Song, 0, len(recs))
	for _, rec := range recs {
		songs = append(songs, toSong(rec))
	}
	return songs, nil
}

func (p *Postgres) MarkDownloaded(ctx context.Context, id string, fileSize int64) error {
	now := time.Now()
	err := p.db.WithContext(ctx).
		Model(&songRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_downloaded": true,
			"downloaded_at": now,
			"file_size":     fileSize,
		}).Error
	if err != nil {
		return fmt.Errorf("storage: failed to mark song downloaded: %w", err)
	}
	return nil
}

func (p *Postgres) GetPlaylist(ctx context.Context, id int) (*domain.Playlist, error) {
	var rec playlistRecord
	err := p.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to get playlist: %w", err)
	}
	playlist := toPlaylist(rec)
	return &playlist, nil
}

func (p *Postgres) ListPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	var recs []playlistRecord
	if err := p.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list playlists: %w", err)
	}

	playlists := make([]domain.Playlist, 0, len(recs))
	for _, rec := range recs {
		playlists = append(playlists, toPlaylist(rec))
	}
	return playlists, nil
}

func (p *Postgres) CreatePlaylist(ctx context.Context, playlist domain.Playlist) (*domain.Playlist, error) {
	ids, err := json.Marshal(playlist.SongIDs)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to encode playlist song ids: %w", err)
	}

	rec := playlistRecord{
		Name:        playlist.Name,
		Description: playlist.Description,
		Image:       playlist.Image,
		SongIDs:     string(ids),
	}
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to create playlist: %w", err)
	}

	created := toPlaylist(rec)
	return &created, nil
}

func (p *Postgres) UpdatePlaylist(ctx context.Context, id int, update domain.PlaylistUpdate) (*domain.Playlist, error) {
	fields := make(map[string]any)
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Image != nil {
		fields["image"] = *update.Image
	}
	if update.SongIDs != nil {
		ids, err := json.Marshal(*update.SongIDs)
		if err != nil {
			return nil, fmt.Errorf("storage: failed to encode playlist song ids: %w", err)
		}
		fields["song_ids"] = string(ids)
	}

	if len(fields) > 0 {
		err := p.db.WithContext(ctx).Model(&playlistRecord{}).Where("id = ?", id).Updates(fields).Error
		if err != nil {
			return nil, fmt.Errorf("storage: failed to update playlist: %w", err)
		}
	}
	return p.GetPlaylist(ctx, id)
}

func (p *Postgres) DeletePlaylist(ctx context.Context, id int) (bool, error) {
	res := p.db.WithContext(ctx).Delete(&playlistRecord{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("storage: failed to delete playlist: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// -- Converters --------------------------------------------------------------

func toSong(rec songRecord) domain.Song {
	return domain.Song{
		ID:           rec.ID,
		Name:         rec.Name,
		Artist:       rec.Artist,
		Album:        rec.Album,
		Image:        rec.Image,
		Duration:     rec.Duration,
		URL:          rec.URL,
		DownloadURL:  rec.DownloadURL,
		Quality:      rec.Quality,
		Language:     rec.Language,
		Year:         rec.Year,
		IsDownloaded: rec.IsDownloaded,
		DownloadedAt: rec.DownloadedAt,
		FileSize:     rec.FileSize,
	}
}

func toRecord(song domain.Song) songRecord {
	return songRecord{
		ID:           song.ID,
		Name:         song.Name,
		Artist:       song.Artist,
		Album:        song.Album,
		Image:        song.Image,
		Duration:     song.Duration,
		URL:          song.URL,
		DownloadURL:  song.DownloadURL,
		Quality:      song.Quality,
		Language:     song.Language,
		Year:         song.Year,
		IsDownloaded: song.IsDownloaded,
		DownloadedAt: song.DownloadedAt,
		FileSize:     song.FileSize,
	}
}

func toPlaylist(rec playlistRecord) domain.Playlist {
	var ids []string
	if rec.SongIDs != "" {
		// Bad rows degrade to an empty list rather than failing the read.
		_ = json.Unmarshal([]byte(rec.SongIDs), &ids)
	}
	return domain.Playlist{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Image:       rec.Image,
		SongIDs:     ids,
		CreatedAt:   rec.CreatedAt,
	}
}

func updateFields(update domain.SongUpdate) map[string]any {
	fields := make(map[string]any)
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Artist != nil {
		fields["artist"] = *update.Artist
	}
	if update.Album != nil {
		fields["album"] = *update.Album
	}
	if update.Image != nil {
		fields["image"] = *update.Image
	}
	if update.Duration != nil {
		fields["duration"] = *update.Duration
	}
	if update.URL != nil {
		fields["url"] = *update.URL
	}
	if update.DownloadURL != nil {
		fields["download_url"] = *update.DownloadURL
	}
	if update.Quality != nil {
		fields["quality"] = *update.Quality
	}
	if update.Language != nil {
		fields["language"] = *update.Language
	}
	if update.Year != nil {
		fields["year"] = *update.Year
	}
	return fields
}

var _ ports.SongStore = (*Postgres)(nil)
