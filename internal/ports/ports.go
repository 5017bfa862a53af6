package ports

import (
	"context"
	"encoding/json"

	"github.com/nmjoshi/melodex/internal/domain"
)

// CatalogProvider is the driven port for the external song catalog. Responses
// are normalized into domain.Song before they cross this boundary; the loose
// upstream payload shape never leaks past the adapter.
type CatalogProvider interface {
	// SearchSongs runs a paged catalog search.
	SearchSongs(ctx context.Context, query string, page, limit int) (*domain.SearchResponse, error)

	// FeaturedSongs returns the canned trending selection.
	FeaturedSongs(ctx context.Context) ([]domain.Song, error)

	// CategorySongs returns songs for a category tag. Known categories map to
	// canned search phrases; unknown ones are used as the query verbatim.
	CategorySongs(ctx context.Context, category string) ([]domain.Song, error)

	// RelatedSongs returns songs related to a seed term. Used by the
	// auto-play chain when the queue is exhausted.
	RelatedSongs(ctx context.Context, seed string) ([]domain.Song, error)

	// SongDetails returns the raw catalog payload for one song, unmodified.
	SongDetails(ctx context.Context, id string) (json.RawMessage, error)
}

// SongStore is the driven port for the server-side metadata store. A nil song
// with a nil error means "not found" on lookups.
type SongStore interface {
	GetSong(ctx context.Context, id string) (*domain.Song, error)
	ListSongs(ctx context.Context) ([]domain.Song, error)
	CreateSong(ctx context.Context, song domain.Song) (*domain.Song, error)
	UpdateSong(ctx context.Context, id string, update domain.SongUpdate) (*domain.Song, error)
	DeleteSong(ctx context.Context, id string) (bool, error)

	// DownloadedSongs returns every stored song marked as downloaded.
	DownloadedSongs(ctx context.Context) ([]domain.Song, error)

	// MarkDownloaded flags a stored song as downloaded, stamping the
	// download time and file size. Unknown IDs are a no-op.
	MarkDownloaded(ctx context.Context, id string, fileSize int64) error

	GetPlaylist(ctx context.Context, id int) (*domain.Playlist, error)
	ListPlaylists(ctx context.Context) ([]domain.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist domain.Playlist) (*domain.Playlist, error)
	UpdatePlaylist(ctx context.Context, id int, update domain.PlaylistUpdate) (*domain.Playlist, error)
	DeletePlaylist(ctx context.Context, id int) (bool, error)
}

// LocalStore is key-based durable storage on the client side. It backs the
// downloaded-songs collection and best-effort progress snapshots.
type LocalStore interface {
	// Get unmarshals the value for key into v. The boolean reports whether
	// the key existed; a missing key is not an error.
	Get(key string, v any) (bool, error)
	Put(key string, v any) error
	Delete(key string) error
}

// MediaEventType identifies an event emitted by an audio session.
type MediaEventType string

const (
	MediaEventLoaded     MediaEventType = "loadedmetadata"
	MediaEventTimeUpdate MediaEventType = "timeupdate"
	MediaEventEnded      MediaEventType = "ended"
	MediaEventError      MediaEventType = "error"
)

// MediaEvent carries one audio session event. Position and Duration are in
// seconds.
type MediaEvent struct {
	Type     MediaEventType
	Position float64
	Duration float64
	Err      error
}

// MediaSource describes what an audio session should load.
type MediaSource struct {
	URL      string
	Duration float64
}

// AudioSession is the single underlying media resource. Exactly one exists
// per process; the playback engine owns it exclusively and releases it via
// Close on shutdown.
type AudioSession interface {
	// Load switches the media source and resets the position. Emits
	// loadedmetadata to the handler.
	Load(src MediaSource) error

	// Play begins or resumes playback. An error models the platform
	// rejecting playback (autoplay policy); callers treat it as "paused".
	Play() error

	Pause()
	Seek(seconds float64)
	SetVolume(v float64)

	// SetHandler installs the single event handler. Events are delivered in
	// emission order, one at a time.
	SetHandler(fn func(MediaEvent))

	Close() error
}
