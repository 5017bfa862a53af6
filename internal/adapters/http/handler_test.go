package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmjoshi/melodex/internal/domain"
	"github.com/nmjoshi/melodex/internal/ports"
)

// -- Mock catalog ------------------------------------------------------------

type mockCatalog struct {
	search   *domain.SearchResponse
	featured []domain.Song
	category []domain.Song
	related  []domain.Song
	details  json.RawMessage
	err      error

	gotQuery    string
	gotPage     int
	gotLimit    int
	gotCategory string
	gotID       string
}

func (m *mockCatalog) SearchSongs(_ context.Context, query string, page, limit int) (*domain.SearchResponse, error) {
	m.gotQuery, m.gotPage, m.gotLimit = query, page, limit
	if m.err != nil {
		return nil, m.err
	}
	return m.search, nil
}

func (m *mockCatalog) FeaturedSongs(_ context.Context) ([]domain.Song, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.featured, nil
}

func (m *mockCatalog) CategorySongs(_ context.Context, category string) ([]domain.Song, error) {
	m.gotCategory = category
	if m.err != nil {
		return nil, m.err
	}
	return m.category, nil
}

func (m *mockCatalog) RelatedSongs(_ context.Context, _ string) ([]domain.Song, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.related, nil
}

func (m *mockCatalog) SongDetails(_ context.Context, id string) (json.RawMessage, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.details, nil
}

// -- Mock store --------------------------------------------------------------

type mockStore struct {
	songs      []domain.Song
	downloaded []domain.Song
	playlists  []domain.Playlist
	deleted    bool
	err        error

	markedID   string
	markedSize int64
}

func (m *mockStore) GetSong(_ context.Context, _ string) (*domain.Song, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.songs) == 0 {
		return nil, nil
	}
	return &m.songs[0], nil
}

func (m *mockStore) ListSongs(_ context.Context) ([]domain.Song, error) {
	return m.songs, m.err
}

func (m *mockStore) CreateSong(_ context.Context, song domain.Song) (*domain.Song, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.songs = append(m.songs, song)
	return &song, nil
}

func (m *mockStore) UpdateSong(_ context.Context, _ string, _ domain.SongUpdate) (*domain.Song, error) {
	return nil, m.err
}

func (m *mockStore) DeleteSong(_ context.Context, _ string) (bool, error) {
	return m.deleted, m.err
}

func (m *mockStore) DownloadedSongs(_ context.Context) ([]domain.Song, error) {
	return m.downloaded, m.err
}

func (m *mockStore) MarkDownloaded(_ context.Context, id string, fileSize int64) error {
	m.markedID, m.markedSize = id, fileSize
	return m.err
}

func (m *mockStore) GetPlaylist(_ context.Context, _ int) (*domain.Playlist, error) {
	return nil, m.err
}

func (m *mockStore) ListPlaylists(_ context.Context) ([]domain.Playlist, error) {
	return m.playlists, m.err
}

func (m *mockStore) CreatePlaylist(_ context.Context, p domain.Playlist) (*domain.Playlist, error) {
	if m.err != nil {
		return nil, m.err
	}
	p.ID = 1
	return &p, nil
}

func (m *mockStore) UpdatePlaylist(_ context.Context, _ int, _ domain.PlaylistUpdate) (*domain.Playlist, error) {
	return nil, m.err
}

func (m *mockStore) DeletePlaylist(_ context.Context, _ int) (bool, error) {
	return m.deleted, m.err
}

var _ ports.CatalogProvider = (*mockCatalog)(nil)
var _ ports.SongStore = (*mockStore)(nil)

// -- Helpers -----------------------------------------------------------------

func setupRouter(catalog *mockCatalog, store *mockStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(catalog, store)
	h.RegisterRoutes(r)
	return r
}

// -- Tests -------------------------------------------------------------------

func TestHealth(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestSearchSongs_Success(t *testing.T) {
	catalog := &mockCatalog{
		search: &domain.SearchResponse{
			Results: []domain.Song{{ID: "s1", Name: "Song"}},
			Total:   1,
			Page:    2,
		},
	}
	r := setupRouter(catalog, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search/songs?query=arijit&page=2&limit=5", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "arijit", catalog.gotQuery)
	assert.Equal(t, 2, catalog.gotPage)
	assert.Equal(t, 5, catalog.gotLimit)

	var body domain.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "s1", body.Results[0].ID)
}

func TestSearchSongs_MissingQuery(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search/songs", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchSongs_DefaultsPagination(t *testing.T) {
	catalog := &mockCatalog{search: &domain.SearchResponse{}}
	r := setupRouter(catalog, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search/songs?query=x&page=abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, catalog.gotPage)
	assert.Equal(t, 20, catalog.gotLimit)
}

func TestSearchSongs_CatalogError(t *testing.T) {
	catalog := &mockCatalog{err: errors.New("upstream down")}
	r := setupRouter(catalog, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/search/songs?query=x", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "catalog_error", body.Error)
	// The upstream failure detail is logged, never surfaced.
	assert.NotContains(t, body.Message, "upstream down")
}

func TestFeaturedSongs(t *testing.T) {
	catalog := &mockCatalog{featured: []domain.Song{{ID: "f1"}, {ID: "f2"}}}
	r := setupRouter(catalog, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/songs/featured", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var songs []domain.Song
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &songs))
	assert.Len(t, songs, 2)
}

func TestCategorySongs(t *testing.T) {
	catalog := &mockCatalog{category: []domain.Song{{ID: "c1"}}}
	r := setupRouter(catalog, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/songs/category/punjabi", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "punjabi", catalog.gotCategory)
}

func TestSongDetails_PassesRawPayloadThrough(t *testing.T) {
	payload := `{"data":[{"id":"s1","custom":"field"}]}`
	catalog := &mockCatalog{details: json.RawMessage(payload)}
	r := setupRouter(catalog, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/songs/s1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", catalog.gotID)
	assert.JSONEq(t, payload, w.Body.String())
}

func TestDownloadedSongs_EmptyIsJSONArray(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/songs/downloaded", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateSong_Success(t *testing.T) {
	store := &mockStore{}
	r := setupRouter(&mockCatalog{}, store)

	song := domain.Song{ID: "s1", Name: "New Song", Artist: "Artist"}
	raw, _ := json.Marshal(song)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/songs", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.songs, 1)
	assert.Equal(t, "s1", store.songs[0].ID)
}

func TestCreateSong_MissingRequiredFields(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/songs", bytes.NewReader([]byte(`{"artist":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkDownloaded_Success(t *testing.T) {
	store := &mockStore{}
	r := setupRouter(&mockCatalog{}, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/songs/s1/download", bytes.NewReader([]byte(`{"fileSize":2500000}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", store.markedID)
	assert.Equal(t, int64(2500000), store.markedSize)
}

func TestMarkDownloaded_MissingFileSize(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/songs/s1/download", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSong_NotFound(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{deleted: false})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/songs/ghost", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSong_Success(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{deleted: true})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/songs/s1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["success"])
}

func TestListPlaylists_EmptyIsJSONArray(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/playlists", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreatePlaylist(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{})

	raw := []byte(`{"name":"Morning Drive","songIds":["a","b"]}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/playlists", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body domain.Playlist
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.ID)
	assert.Equal(t, "Morning Drive", body.Name)
}

func TestCreatePlaylist_MissingName(t *testing.T) {
	r := setupRouter(&mockCatalog{}, &mockStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/playlists", bytes.NewReader([]byte(`{"songIds":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
