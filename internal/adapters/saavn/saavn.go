package saavn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nmjoshi/melodex/internal/domain"
)

const (
	// DefaultBaseURL is the public Saavn-compatible catalog endpoint.
	DefaultBaseURL = "https://saavn.dev/api"

	featuredQuery = "trending bollywood"
	featuredLimit = 10
	categoryLimit = 10
	relatedLimit  = 10

	// fallbackQuality is reported when the catalog provides no variant list.
	fallbackQuality = "12kbps"

	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

// categoryQueries maps category tags to canned search phrases. Unknown
// categories fall back to the tag itself.
var categoryQueries = map[string]string{
	"bollywood": "bollywood hindi latest",
	"marathi":   "marathi latest songs",
	"telugu":    "telugu latest songs",
	"hollywood": "english latest songs",
	"kannada":   "kannada latest songs",
	"punjabi":   "punjabi latest songs",
	"tamil":     "tamil latest songs",
	"gujarati":  "gujarati latest songs",
}

// Client implements ports.CatalogProvider against a Saavn-style catalog API.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a catalog client. If client is nil, http.DefaultClient is
// used; if baseURL is empty, DefaultBaseURL is used.
func NewClient(client *http.Client, baseURL string) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{client: client, baseURL: baseURL}
}

// -- API response types (internal) ------------------------------------------

// The upstream payload is inconsistently shaped: artist and album arrive
// either as flat strings or nested objects depending on the endpoint. These
// types keep the loose shape contained inside this package.

type searchEnvelope struct {
	Data struct {
		Total   int       `json:"total"`
		Results []rawSong `json:"results"`
	} `json:"data"`
}

type rawSong struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Duration    flexInt         `json:"duration"`
	Language    string          `json:"language"`
	Year        flexInt         `json:"year"`
	Artist      string          `json:"artist"`
	Artists     rawArtists      `json:"artists"`
	Album       json.RawMessage `json:"album"`
	Image       []mediaVariant  `json:"image"`
	DownloadURL []mediaVariant  `json:"downloadUrl"`
}

type rawArtists struct {
	Primary []struct {
		Name string `json:"name"`
	} `json:"primary"`
}

type mediaVariant struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// flexInt tolerates numbers that the catalog sometimes serializes as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// -- Provider operations -----------------------------------------------------

// SearchSongs runs a paged catalog search and normalizes every result.
func (c *Client) SearchSongs(ctx context.Context, query string, page, limit int) (*domain.SearchResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("saavn: search query cannot be empty")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	env, err := c.searchSongs(ctx, query, page, limit)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Song, 0, len(env.Data.Results))
	for _, raw := range env.Data.Results {
		results = append(results, normalizeSong(raw))
	}

	return &domain.SearchResponse{
		Results: results,
		Total:   env.Data.Total,
		Page:    page,
	}, nil
}

// FeaturedSongs returns the canned trending selection.
func (c *Client) FeaturedSongs(ctx context.Context) ([]domain.Song, error) {
	env, err := c.searchSongs(ctx, featuredQuery, 1, featuredLimit)
	if err != nil {
		return nil, err
	}

	songs := make([]domain.Song, 0, len(env.Data.Results))
	for _, raw := range env.Data.Results {
		songs = append(songs, normalizeSong(raw))
	}
	return songs, nil
}

// CategorySongs returns songs for a category tag.
func (c *Client) CategorySongs(ctx context.Context, category string) ([]domain.Song, error) {
	query, ok := categoryQueries[category]
	if !ok {
		query = category
	}

	env, err := c.searchSongs(ctx, query, 1, categoryLimit)
	if err != nil {
		return nil, err
	}

	songs := make([]domain.Song, 0, len(env.Data.Results))
	for _, raw := range env.Data.Results {
		songs = append(songs, normalizeSong(raw))
	}
	return songs, nil
}

// RelatedSongs searches the catalog by a seed term.
func (c *Client) RelatedSongs(ctx context.Context, seed string) ([]domain.Song, error) {
	env, err := c.searchSongs(ctx, seed, 1, relatedLimit)
	if err != nil {
		return nil, err
	}

	songs := make([]domain.Song, 0, len(env.Data.Results))
	for _, raw := range env.Data.Results {
		songs = append(songs, normalizeSong(raw))
	}
	return songs, nil
}

// SongDetails returns the raw catalog payload for one song, unmodified.
func (c *Client) SongDetails(ctx context.Context, id string) (json.RawMessage, error) {
	body, err := c.doGet(ctx, fmt.Sprintf("%s/songs/%s", c.baseURL, url.PathEscape(id)))
	if err != nil {
		return nil, fmt.Errorf("saavn: failed to fetch song details: %w", err)
	}
	return json.RawMessage(body), nil
}

func (c *Client) searchSongs(ctx context.Context, query string, page, limit int) (*searchEnvelope, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.doGet(ctx, fmt.Sprintf("%s/search/songs?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("saavn: search failed: %w", err)
	}

	var env searchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("saavn: failed to parse search response: %w", err)
	}
	return &env, nil
}

// -- HTTP helpers ------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog API returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// -- Normalization -----------------------------------------------------------

// bestVariant selects a media variant in strict preference order: 320kbps,
// then 160kbps, then 96kbps, then the last element as the lowest-quality
// fallback. An empty list yields an empty variant.
func bestVariant(variants []mediaVariant) mediaVariant {
	for _, want := range []string{"320kbps", "160kbps", "96kbps"} {
		for _, v := range variants {
			if v.Quality == want {
				return v
			}
		}
	}
	if len(variants) > 0 {
		return variants[len(variants)-1]
	}
	return mediaVariant{}
}

// normalizeSong flattens one loosely-typed catalog record into the canonical
// song shape.
func normalizeSong(raw rawSong) domain.Song {
	artist := unknownArtist
	if len(raw.Artists.Primary) > 0 && raw.Artists.Primary[0].Name != "" {
		artist = raw.Artists.Primary[0].Name
	} else if raw.Artist != "" {
		artist = raw.Artist
	}

	album := flattenAlbum(raw.Album)

	best := bestVariant(raw.DownloadURL)
	quality := best.Quality
	if quality == "" {
		quality = fallbackQuality
	}

	image := ""
	if len(raw.Image) > 0 {
		image = raw.Image[len(raw.Image)-1].URL
	}

	return domain.Song{
		ID:          raw.ID,
		Name:        raw.Name,
		Artist:      artist,
		Album:       album,
		Image:       image,
		Duration:    int(raw.Duration),
		URL:         best.URL,
		DownloadURL: best.URL,
		Quality:     quality,
		Language:    raw.Language,
		Year:        int(raw.Year),
	}
}

// flattenAlbum handles the album field arriving as either a nested object or
// a plain string.
func flattenAlbum(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return unknownAlbum
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		return obj.Name
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}

	return unknownAlbum
}
