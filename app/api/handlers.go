package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wezm/rsspls/app/cache"
	"github.com/wezm/rsspls/app/config"
)

type Handler struct {
	outputDir string
	store     *cache.Store
	feeds     []config.Feed
	byName    map[string]*config.Feed
}

func NewHandler(outputDir string, store *cache.Store, feeds []config.Feed) *Handler {
	byName := make(map[string]*config.Feed, len(feeds))
	for i := range feeds {
		byName[feeds[i].Filename] = &feeds[i]
	}
	return &Handler{
		outputDir: outputDir,
		store:     store,
		feeds:     feeds,
		byName:    byName,
	}
}

// GetFeed serves a generated feed file. Only filenames present in the
// configuration are served, which also keeps path traversal out.
func (h *Handler) GetFeed(c *gin.Context) {
	filename := c.Param("filename")
	if _, ok := h.byName[filename]; !ok {
		c.Status(http.StatusNotFound)
		return
	}

	path := filepath.Join(h.outputDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("Feed not generated yet", "filename", filename)
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Failed to read feed file", "path", path, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, string(data))
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.GetStats()
	if err != nil {
		slog.Error("Failed to collect cache stats", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	response := StatsResponse{
		ConfiguredFeeds: len(h.feeds),
		CachedPages:     stats.Pages,
		WrittenOutputs:  stats.Outputs,
	}
	if !stats.OldestFetch.IsZero() {
		response.OldestFetch = stats.OldestFetch.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}
