package domain

import "time"

// Song is the canonical playable unit. Its ID is the sole join key across the
// play queue, the currently-playing slot, and the downloaded-songs set.
type Song struct {
	ID           string     `json:"id" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	Artist       string     `json:"artist"`
	Album        string     `json:"album"`
	Image        string     `json:"image"`
	Duration     int        `json:"duration"`
	URL          string     `json:"url"`
	DownloadURL  string     `json:"downloadUrl"`
	Quality      string     `json:"quality"`
	Language     string     `json:"language,omitempty"`
	Year         int        `json:"year,omitempty"`
	IsDownloaded bool       `json:"isDownloaded"`
	DownloadedAt *time.Time `json:"downloadedAt,omitempty"`
	FileSize     int64      `json:"fileSize,omitempty"`
}

// SongUpdate describes a partial update to a stored song. Nil fields are left
// untouched.
type SongUpdate struct {
	Name        *string `json:"name,omitempty"`
	Artist      *string `json:"artist,omitempty"`
	Album       *string `json:"album,omitempty"`
	Image       *string `json:"image,omitempty"`
	Duration    *int    `json:"duration,omitempty"`
	URL         *string `json:"url,omitempty"`
	DownloadURL *string `json:"downloadUrl,omitempty"`
	Quality     *string `json:"quality,omitempty"`
	Language    *string `json:"language,omitempty"`
	Year        *int    `json:"year,omitempty"`
}

// PlaylistUpdate describes a partial update to a stored playlist. Nil fields
// are left untouched.
type PlaylistUpdate struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `json:"image,omitempty"`
	SongIDs     *[]string `json:"songIds,omitempty"`
}

// Playlist is a named collection of song IDs kept by the metadata store.
type Playlist struct {
	ID          int       `json:"id"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	SongIDs     []string  `json:"songIds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SearchResponse is the paged result of a catalog search.
type SearchResponse struct {
	Results []Song `json:"results"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
}

// DownloadStatus describes where a tracked download is in its lifecycle.
type DownloadStatus string

const (
	DownloadPending     DownloadStatus = "pending"
	DownloadDownloading DownloadStatus = "downloading"
	DownloadCompleted   DownloadStatus = "completed"
	DownloadError       DownloadStatus = "error"
)

// Terminal returns true once a download can no longer make progress.
func (s DownloadStatus) Terminal() bool {
	return s == DownloadCompleted || s == DownloadError
}

// DownloadProgress is the live record of one tracked download.
type DownloadProgress struct {
	SongID   string         `json:"songId"`
	Progress int            `json:"progress"`
	Status   DownloadStatus `json:"status"`
	Error    string         `json:"error,omitempty"`
}

// PlaybackState is a snapshot of the single global now-playing slot. It is
// produced only by the playback engine; everything else observes it.
type PlaybackState struct {
	CurrentSong  *Song   `json:"currentSong"`
	IsPlaying    bool    `json:"isPlaying"`
	CurrentTime  float64 `json:"currentTime"`
	Duration     float64 `json:"duration"`
	Volume       float64 `json:"volume"`
	Muted        bool    `json:"muted"`
	QueueLength  int     `json:"queueLength"`
	CurrentIndex int     `json:"currentIndex"`
	AutoPlay     bool    `json:"autoPlay"`
}

// Progress returns playback progress as a percentage (0-100). It is derived
// on every call, never stored.
func (s PlaybackState) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.CurrentTime / s.Duration * 100
}
