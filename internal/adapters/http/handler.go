package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nmjoshi/melodex/internal/domain"
	"github.com/nmjoshi/melodex/internal/ports"
)

// Handler holds the HTTP handlers for the catalog proxy and metadata API.
type Handler struct {
	catalog ports.CatalogProvider
	store   ports.SongStore
}

// NewHandler creates a new HTTP handler with the given collaborators.
func NewHandler(catalog ports.CatalogProvider, store ports.SongStore) *Handler {
	return &Handler{catalog: catalog, store: store}
}

// RegisterRoutes sets up all API routes on the given Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/search/songs", h.SearchSongs)
		api.GET("/songs/featured", h.FeaturedSongs)
		api.GET("/songs/downloaded", h.DownloadedSongs)
		api.GET("/songs/category/:category", h.CategorySongs)
		api.GET("/songs/:id", h.SongDetails)
		api.POST("/songs", h.CreateSong)
		api.PATCH("/songs/:id/download", h.MarkDownloaded)
		api.DELETE("/songs/:id", h.DeleteSong)
		api.GET("/playlists", h.ListPlaylists)
		api.POST("/playlists", h.CreatePlaylist)
	}
}

// Health returns a simple health check response.
//
//	@Summary		Health check
//	@Description	Returns the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// SearchSongs proxies a paged catalog search.
//
//	@Summary		Search songs
//	@Description	Searches the external catalog and returns normalized songs.
//	@Tags			catalog
//	@Produce		json
//	@Param			query	query		string	true	"Search query"
//	@Param			page	query		int		false	"Page number"		default(1)
//	@Param			limit	query		int		false	"Results per page"	default(20)
//	@Success		200		{object}	domain.SearchResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/search/songs [get]
func (h *Handler) SearchSongs(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "query parameter 'query' is required",
		})
		return
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)

	resp, err := h.catalog.SearchSongs(c.Request.Context(), query, page, limit)
	if err != nil {
		log.Printf("[http] search failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "catalog_error",
			Message: "failed to search songs",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// FeaturedSongs returns the canned trending selection.
//
//	@Summary		Featured songs
//	@Description	Returns the trending catalog selection.
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{array}		domain.Song
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/songs/featured [get]
func (h *Handler) FeaturedSongs(c *gin.Context) {
	songs, err := h.catalog.FeaturedSongs(c.Request.Context())
	if err != nil {
		log.Printf("[http] featured songs failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "catalog_error",
			Message: "failed to get featured songs",
		})
		return
	}

	c.JSON(http.StatusOK, songs)
}

// DownloadedSongs lists every stored song marked as downloaded.
//
//	@Summary		Downloaded songs
//	@Description	Returns all songs the metadata store has marked as downloaded.
//	@Tags			songs
//	@Produce		json
//	@Success		200	{array}		domain.Song
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/songs/downloaded [get]
func (h *Handler) DownloadedSongs(c *gin.Context) {
	songs, err := h.store.DownloadedSongs(c.Request.Context())
	if err != nil {
		log.Printf("[http] downloaded songs failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "failed to get downloaded songs",
		})
		return
	}
	if songs == nil {
		songs = []domain.Song{}
	}

	c.JSON(http.StatusOK, songs)
}

// CategorySongs returns songs for a category tag.
//
//	@Summary		Category songs
//	@Description	Returns songs for a category. Known categories map to canned
//	@Description	search phrases; unknown ones are used as the query directly.
//	@Tags			catalog
//	@Produce		json
//	@Param			category	path		string	true	"Category tag"
//	@Success		200			{array}		domain.Song
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/songs/category/{category} [get]
func (h *Handler) CategorySongs(c *gin.Context) {
	songs, err := h.catalog.CategorySongs(c.Request.Context(), c.Param("category"))
	if err != nil {
		log.Printf("[http] category songs failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "catalog_error",
			Message: "failed to get category songs",
		})
		return
	}

	c.JSON(http.StatusOK, songs)
}

// SongDetails passes the raw catalog payload through unmodified.
//
//	@Summary		Song details
//	@Description	Returns the raw catalog detail payload for one song.
//	@Tags			catalog
//	@Produce		json
//	@Param			id	path		string	true	"Song ID"
//	@Success		200	{object}	object
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/songs/{id} [get]
func (h *Handler) SongDetails(c *gin.Context) {
	raw, err := h.catalog.SongDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("[http] song details failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "catalog_error",
			Message: "failed to fetch song details",
		})
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// CreateSong stores a song metadata record.
//
//	@Summary		Create song record
//	@Description	Validates and stores a song metadata record.
//	@Tags			songs
//	@Accept			json
//	@Produce		json
//	@Param			song	body		domain.Song	true	"Song record"
//	@Success		200		{object}	domain.Song
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/songs [post]
func (h *Handler) CreateSong(c *gin.Context) {
	var song domain.Song
	if err := c.ShouldBindJSON(&song); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid song payload: " + err.Error(),
		})
		return
	}

	created, err := h.store.CreateSong(c.Request.Context(), song)
	if err != nil {
		log.Printf("[http] create song failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "failed to save song",
		})
		return
	}

	c.JSON(http.StatusOK, created)
}

type markDownloadedRequest struct {
	FileSize int64 `json:"fileSize" binding:"required"`
}

// MarkDownloaded flags a stored song as downloaded.
//
//	@Summary		Mark song downloaded
//	@Description	Marks the stored record downloaded and stamps the download time.
//	@Tags			songs
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Song ID"
//	@Param			request	body		markDownloadedRequest	true	"File size in bytes"
//	@Success		200		{object}	map[string]bool
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/songs/{id}/download [patch]
func (h *Handler) MarkDownloaded(c *gin.Context) {
	var req markDownloadedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	if err := h.store.MarkDownloaded(c.Request.Context(), c.Param("id"), req.FileSize); err != nil {
		log.Printf("[http] mark downloaded failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "failed to mark song as downloaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteSong removes a stored song record.
//
//	@Summary		Delete song record
//	@Description	Removes the stored metadata record for one song.
//	@Tags			songs
//	@Produce		json
//	@Param			id	path		string	true	"Song ID"
//	@Success		200	{object}	map[string]bool
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/songs/{id} [delete]
func (h *Handler) DeleteSong(c *gin.Context) {
	deleted, err := h.store.DeleteSong(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("[http] delete song failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "failed to delete song",
		})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "song not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListPlaylists returns all stored playlists.
//
//	@Summary		List playlists
//	@Tags			playlists
//	@Produce		json
//	@Success		200	{array}		domain.Playlist
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/playlists [get]
func (h *Handler) ListPlaylists(c *gin.Context) {
	playlists, err := h.store.ListPlaylists(c.Request.Context())
	if err != nil {
		log.Printf("[http] list playlists failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "failed to list playlists",
		})
		return
	}
	if playlists == nil {
		playlists = []domain.Playlist{}
	}

	c.JSON(http.StatusOK, playlists)
}

// CreatePlaylist stores a new playlist.
//
//	@Summary		Create playlist
//	@Tags			playlists
//	@Accept			json
//	@Produce		json
//	@Param			playlist	body		domain.Playlist	true	"Playlist"
//	@Success		200			{object}	domain.Playlist
//	@Failure		400			{object}	ErrorResponse
//	@Router			/api/playlists [post]
func (h *Handler) CreatePlaylist(c *gin.Context) {
	var playlist domain.Playlist
	if err := c.ShouldBindJSON(&playlist); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid playlist payload: " + err.Error(),
		})
		return
	}

	created, err := h.store.CreatePlaylist(c.Request.Context(), playlist)
	if err != nil {
		log.Printf("[http] create playlist failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "failed to save playlist",
		})
		return
	}

	c.JSON(http.StatusOK, created)
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
