package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/wezm/rsspls/app/cache"
	"github.com/wezm/rsspls/app/config"
	"github.com/wezm/rsspls/app/extract"
	"github.com/wezm/rsspls/app/feed"
	"github.com/wezm/rsspls/app/fetch"
	"github.com/wezm/rsspls/app/output"
)

// ProcessFeedTask drives one feed definition end to end: conditional fetch,
// extraction, feed generation, and the write decision. Its failure never
// affects sibling feeds.
type ProcessFeedTask struct {
	Task
	Definition *config.Feed
	fetcher    *fetch.Fetcher
	extractor  *extract.Extractor
	generator  *feed.Generator
	store      *cache.Store
	claims     *outputClaims
	outputDir  string
}

func NewProcessFeedTask(definition *config.Feed, fetcher *fetch.Fetcher, extractor *extract.Extractor,
	generator *feed.Generator, store *cache.Store, claims *outputClaims, outputDir string) *ProcessFeedTask {
	return &ProcessFeedTask{
		Task:       NewTask(TaskTypeProcessFeed, definition.Title),
		Definition: definition,
		fetcher:    fetcher,
		extractor:  extractor,
		generator:  generator,
		store:      store,
		claims:     claims,
		outputDir:  outputDir,
	}
}

func (t *ProcessFeedTask) Execute(ctx context.Context) (Status, error) {
	select {
	case <-ctx.Done():
		return StatusFailed, ctx.Err()
	default:
	}

	rule := &t.Definition.Rule
	slog.Info("Processing feed", "feed", t.FeedName, "url", rule.URL)

	prior := t.store.LookupPage(rule.URL)

	result, err := t.fetcher.Run(ctx, rule.URL, t.Definition.UserAgent, prior)
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to fetch %s: %w", rule.URL, err)
	}

	if result.Outcome == fetch.OutcomeNotModified {
		slog.Info("Page unmodified, skipping", "feed", t.FeedName, "url", rule.URL)
		return StatusSkipped, nil
	}

	// New content: record the validators and fingerprint before anything
	// else so a later extraction failure does not lose them.
	if err := t.store.UpdatePage(result.Record); err != nil {
		slog.Warn("Failed to update cache record", "feed", t.FeedName, "error", err)
	}
	if result.Unchanged {
		slog.Debug("Body fingerprint unchanged despite 200 response",
			"feed", t.FeedName, "url", rule.URL)
	}

	doc, err := extract.Parse(result.Body, result.ContentType, rule.URL)
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to parse page: %w", err)
	}

	items, err := t.extractor.Run(doc, rule)
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to extract items: %w", err)
	}
	if len(items) == 0 {
		slog.Warn("No items extracted, check the item selector",
			"feed", t.FeedName, "item", rule.Item)
	}

	description := feed.PageExcerpt(result.Body, rule.URL)
	channel := feed.Build(t.Definition, items, description)

	rss, err := t.generator.Run(channel)
	if err != nil {
		return StatusFailed, fmt.Errorf("failed to generate feed: %w", err)
	}
	data := []byte(rss)

	fingerprint := cache.Fingerprint(data)
	if previous := t.store.LookupOutput(t.Definition.Filename); previous == fingerprint {
		slog.Info("Output unchanged, skipping write",
			"feed", t.FeedName, "filename", t.Definition.Filename)
		return StatusSkipped, nil
	}

	if !t.claims.Claim(t.Definition.Filename) {
		return StatusFailed, fmt.Errorf("output filename %s already written by another feed this run",
			t.Definition.Filename)
	}

	outputPath := filepath.Join(t.outputDir, t.Definition.Filename)
	if err := output.Write(outputPath, data); err != nil {
		return StatusFailed, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	if err := t.store.UpdateOutput(t.Definition.Filename, fingerprint); err != nil {
		slog.Warn("Failed to record output fingerprint", "feed", t.FeedName, "error", err)
	}

	slog.Info("Feed written",
		"feed", t.FeedName,
		"path", outputPath,
		"items", len(items),
		"duration", t.GetDuration())

	return StatusWritten, nil
}
