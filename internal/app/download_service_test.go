package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmjoshi/melodex/internal/domain"
	"github.com/nmjoshi/melodex/internal/ports"
)

// -- Fake local store --------------------------------------------------------

type fakeLocal struct {
	mu   sync.Mutex
	data map[string][]byte

	putErr error
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{data: make(map[string][]byte)}
}

func (f *fakeLocal) Get(key string, v any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (f *fakeLocal) Put(key string, v any) error {
	if f.putErr != nil {
		return f.putErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return nil
}

func (f *fakeLocal) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

// -- Mock song store ---------------------------------------------------------

type mockSongStore struct {
	mu          sync.Mutex
	marked      []string
	markedSizes map[string]int64
	markedCh    chan string
}

func newMockSongStore() *mockSongStore {
	return &mockSongStore{
		markedSizes: make(map[string]int64),
		markedCh:    make(chan string, 8),
	}
}

func (m *mockSongStore) GetSong(_ context.Context, _ string) (*domain.Song, error) {
	return nil, nil
}

func (m *mockSongStore) ListSongs(_ context.Context) ([]domain.Song, error) { return nil, nil }

func (m *mockSongStore) CreateSong(_ context.Context, song domain.Song) (*domain.Song, error) {
	return &song, nil
}

func (m *mockSongStore) UpdateSong(_ context.Context, _ string, _ domain.SongUpdate) (*domain.Song, error) {
	return nil, nil
}

func (m *mockSongStore) DeleteSong(_ context.Context, _ string) (bool, error) { return false, nil }

func (m *mockSongStore) DownloadedSongs(_ context.Context) ([]domain.Song, error) { return nil, nil }

func (m *mockSongStore) MarkDownloaded(_ context.Context, id string, fileSize int64) error {
	m.mu.Lock()
	m.marked = append(m.marked, id)
	m.markedSizes[id] = fileSize
	m.mu.Unlock()
	m.markedCh <- id
	return nil
}

func (m *mockSongStore) GetPlaylist(_ context.Context, _ int) (*domain.Playlist, error) {
	return nil, nil
}

func (m *mockSongStore) ListPlaylists(_ context.Context) ([]domain.Playlist, error) {
	return nil, nil
}

func (m *mockSongStore) CreatePlaylist(_ context.Context, p domain.Playlist) (*domain.Playlist, error) {
	return &p, nil
}

func (m *mockSongStore) UpdatePlaylist(_ context.Context, _ int, _ domain.PlaylistUpdate) (*domain.Playlist, error) {
	return nil, nil
}

func (m *mockSongStore) DeletePlaylist(_ context.Context, _ int) (bool, error) { return false, nil }

var _ ports.SongStore = (*mockSongStore)(nil)

// -- Helpers -----------------------------------------------------------------

func newTestDownloadService(local ports.LocalStore, store ports.SongStore) *DownloadService {
	svc := NewDownloadService(local, store)
	svc.stepDelay = time.Millisecond
	svc.grace = 50 * time.Millisecond
	svc.fileSize = func() int64 { return 2_500_000 }
	return svc
}

func downloadableSong(id string) domain.Song {
	return domain.Song{
		ID:          id,
		Name:        "Song " + id,
		Artist:      "Artist",
		DownloadURL: "https://cdn.example.com/" + id + "-320.mp4",
	}
}

// -- Tests -------------------------------------------------------------------

func TestStartDownload_ProgressSequence(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	var events []domain.DownloadProgress
	svc.AddProgressListener(func(p domain.DownloadProgress) {
		events = append(events, p)
	})

	err := svc.StartDownload(context.Background(), downloadableSong("s1"))
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, domain.DownloadPending, events[0].Status)
	assert.Equal(t, domain.DownloadDownloading, events[1].Status)

	last := events[len(events)-1]
	assert.Equal(t, domain.DownloadCompleted, last.Status)
	assert.Equal(t, 100, last.Progress)

	// Progress never goes backwards and moves in 10% increments.
	prev := -1
	for _, ev := range events {
		if ev.Status == domain.DownloadDownloading {
			assert.GreaterOrEqual(t, ev.Progress, prev)
			assert.Zero(t, ev.Progress%10)
			prev = ev.Progress
		}
	}
}

func TestStartDownload_WritesDurableRecord(t *testing.T) {
	local := newFakeLocal()
	svc := newTestDownloadService(local, nil)

	song := downloadableSong("s1")
	require.NoError(t, svc.StartDownload(context.Background(), song))

	downloaded, err := svc.DownloadedSongs()
	require.NoError(t, err)
	require.Len(t, downloaded, 1)

	got := downloaded[0]
	assert.Equal(t, "s1", got.ID)
	assert.True(t, got.IsDownloaded)
	assert.NotNil(t, got.DownloadedAt)
	assert.Equal(t, int64(2_500_000), got.FileSize)

	assert.True(t, svc.IsDownloaded("s1"))
	assert.False(t, svc.IsDownloaded("other"))
}

func TestStartDownload_RedownloadReplacesRecord(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	song := downloadableSong("s1")
	require.NoError(t, svc.StartDownload(context.Background(), song))
	require.NoError(t, svc.StartDownload(context.Background(), song))

	downloaded, err := svc.DownloadedSongs()
	require.NoError(t, err)
	assert.Len(t, downloaded, 1)
}

func TestStartDownload_MissingURLFails(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	song := domain.Song{ID: "s1", Name: "No URL"}
	err := svc.StartDownload(context.Background(), song)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no download URL")

	rec, ok := svc.Progress("s1")
	require.True(t, ok)
	assert.Equal(t, domain.DownloadError, rec.Status)
	assert.NotEmpty(t, rec.Error)

	downloaded, err := svc.DownloadedSongs()
	require.NoError(t, err)
	assert.Empty(t, downloaded)
}

func TestStartDownload_ContextCancellation(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)
	svc.stepDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.StartDownload(ctx, downloadableSong("s1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, ok := svc.Progress("s1")
	assert.False(t, ok)

	downloaded, derr := svc.DownloadedSongs()
	require.NoError(t, derr)
	assert.Empty(t, downloaded)
}

func TestCancelDownload_AbortsWithoutDurableWrite(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)
	svc.stepDelay = 20 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- svc.StartDownload(context.Background(), downloadableSong("s1"))
	}()

	// Wait until the download is live, then cancel.
	require.Eventually(t, func() bool {
		rec, ok := svc.Progress("s1")
		return ok && rec.Status == domain.DownloadDownloading
	}, time.Second, time.Millisecond)

	svc.CancelDownload("s1")

	err := <-done
	assert.ErrorIs(t, err, ErrDownloadCancelled)

	_, ok := svc.Progress("s1")
	assert.False(t, ok)

	downloaded, derr := svc.DownloadedSongs()
	require.NoError(t, derr)
	assert.Empty(t, downloaded)
}

func TestCancelDownload_UnknownIDIsNoOp(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)
	svc.CancelDownload("ghost")
}

func TestStartDownload_NotifiesSongStore(t *testing.T) {
	store := newMockSongStore()
	svc := newTestDownloadService(newFakeLocal(), store)

	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s1")))

	select {
	case id := <-store.markedCh:
		assert.Equal(t, "s1", id)
	case <-time.After(time.Second):
		t.Fatal("metadata store was never notified")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, int64(2_500_000), store.markedSizes["s1"])
}

func TestStartDownload_ConcurrentDownloadsInterleave(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	var wg sync.WaitGroup
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, svc.StartDownload(context.Background(), downloadableSong(id)))
		}(id)
	}
	wg.Wait()

	downloaded, err := svc.DownloadedSongs()
	require.NoError(t, err)
	assert.Len(t, downloaded, 3)
}

func TestProgressListener_Unsubscribe(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	var mu sync.Mutex
	var first, second int
	svc.AddProgressListener(func(domain.DownloadProgress) {
		mu.Lock()
		first++
		mu.Unlock()
	})
	unsubscribe := svc.AddProgressListener(func(domain.DownloadProgress) {
		mu.Lock()
		second++
		mu.Unlock()
	})

	unsubscribe()

	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s1")))

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, first)
	assert.Zero(t, second)
}

func TestProgressListener_RegistrationOrder(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	var order []string
	svc.AddProgressListener(func(domain.DownloadProgress) {
		order = append(order, "first")
	})
	svc.AddProgressListener(func(domain.DownloadProgress) {
		order = append(order, "second")
	})

	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s1")))

	require.GreaterOrEqual(t, len(order), 2)
	assert.Equal(t, "first", order[0])
	assert.Equal(t, "second", order[1])
}

func TestProgress_EvictedAfterGrace(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)
	svc.grace = 10 * time.Millisecond

	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s1")))

	rec, ok := svc.Progress("s1")
	require.True(t, ok)
	assert.Equal(t, domain.DownloadCompleted, rec.Status)

	assert.Eventually(t, func() bool {
		_, ok := svc.Progress("s1")
		return !ok
	}, time.Second, time.Millisecond)

	// The durable record survives eviction of the live one.
	assert.True(t, svc.IsDownloaded("s1"))
}

func TestRemoveDownloadedSong(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s1")))
	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s2")))

	require.NoError(t, svc.RemoveDownloadedSong("s1"))
	assert.False(t, svc.IsDownloaded("s1"))
	assert.True(t, svc.IsDownloaded("s2"))

	// Removing again is a no-op.
	require.NoError(t, svc.RemoveDownloadedSong("s1"))
}

func TestTotalDownloadedBytes(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	sizes := []int64{1_000_000, 2_000_000}
	i := 0
	svc.fileSize = func() int64 {
		size := sizes[i]
		i++
		return size
	}

	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s1")))
	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s2")))

	assert.Equal(t, int64(3_000_000), svc.TotalDownloadedBytes())
}

func TestClearAllDownloads(t *testing.T) {
	svc := newTestDownloadService(newFakeLocal(), nil)

	require.NoError(t, svc.StartDownload(context.Background(), downloadableSong("s1")))
	require.NoError(t, svc.ClearAllDownloads())

	downloaded, err := svc.DownloadedSongs()
	require.NoError(t, err)
	assert.Empty(t, downloaded)
	assert.Zero(t, svc.TotalDownloadedBytes())
}
