package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	handler "github.com/nmjoshi/melodex/internal/adapters/http"
	"github.com/nmjoshi/melodex/internal/adapters/saavn"
	"github.com/nmjoshi/melodex/internal/adapters/storage"
	"github.com/nmjoshi/melodex/internal/config"
	"github.com/nmjoshi/melodex/internal/ports"

	_ "github.com/nmjoshi/melodex/docs"
)

// @title			Melodex API
// @version		1.0
// @description	Catalog proxy and song metadata API for the Melodex music streaming client.
// @description	Proxies the Saavn public API and keeps song records in Postgres with an in-memory fallback.

// @contact.name	Melodex API Support
// @license.name	MIT

// @host		localhost:8080
// @BasePath	/
func main() {
	cfg := config.Load()

	// Catalog adapter
	httpClient := &http.Client{Timeout: 10 * time.Second}
	catalog := saavn.NewClient(httpClient, cfg.CatalogBaseURL)

	// Song store: Postgres when configured, in-memory otherwise. The
	// Postgres store is always paired with an in-memory fallback so a
	// database outage degrades to non-durable storage instead of errors.
	var store ports.SongStore = storage.NewMemory()
	if cfg.DatabaseURL != "" {
		pg, err := storage.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Printf("[storage] postgres unavailable, using in-memory store: %v", err)
		} else {
			store = storage.NewResilient(pg, storage.NewMemory())
		}
	}

	// Setup HTTP server
	r := gin.Default()
	h := handler.NewHandler(catalog, store)
	h.RegisterRoutes(r)

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	addr := ":" + cfg.Port
	log.Printf("Starting Melodex API on %s", addr)
	log.Printf("Catalog base URL: %s", cfg.CatalogBaseURL)
	log.Printf("Swagger UI: http://localhost%s/swagger/index.html", addr)

	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
