// Command client is a terminal front end for the playback and download
// engines. It searches the catalog, streams the top result on a simulated
// audio session and downloads it into the local data directory.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nmjoshi/melodex/internal/adapters/audio"
	"github.com/nmjoshi/melodex/internal/adapters/localstore"
	"github.com/nmjoshi/melodex/internal/adapters/saavn"
	"github.com/nmjoshi/melodex/internal/app"
	"github.com/nmjoshi/melodex/internal/config"
	"github.com/nmjoshi/melodex/internal/domain"
)

func main() {
	query := flag.String("query", "trending bollywood", "catalog search query")
	download := flag.Bool("download", false, "download the top result as well")
	listen := flag.Duration("listen", 3*time.Second, "how long to keep the session playing")
	flag.Parse()

	cfg := config.Load()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	catalog := saavn.NewClient(httpClient, cfg.CatalogBaseURL)

	local, err := localstore.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}

	session := audio.NewSession(0)
	player := app.NewPlayerService(session, catalog)
	defer player.Close()

	downloads := app.NewDownloadService(local, nil)
	downloads.SetStepDelay(time.Duration(cfg.DownloadStepMS) * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := catalog.SearchSongs(ctx, *query, 1, 5)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) == 0 {
		log.Fatalf("No results for %q", *query)
	}

	for i, song := range resp.Results {
		log.Printf("%d. %s - %s (%s)", i+1, song.Artist, song.Name, song.Quality)
	}

	top := resp.Results[0]
	player.SetQueue(resp.Results)
	player.Play(top)
	log.Printf("Now playing: %s - %s", top.Artist, top.Name)

	if *download {
		unsubscribe := downloads.AddProgressListener(func(p domain.DownloadProgress) {
			log.Printf("[download] %s: %s %d%%", p.SongID, p.Status, p.Progress)
		})
		defer unsubscribe()

		if err := downloads.StartDownload(ctx, top); err != nil {
			log.Printf("Download failed: %v", err)
		} else {
			log.Printf("Downloaded total: %s", humanize.Bytes(uint64(downloads.TotalDownloadedBytes())))
		}
	}

	time.Sleep(*listen)
	state := player.State()
	log.Printf("Stopping at %.1fs (%.0f%%)", state.CurrentTime, state.Progress())
}
