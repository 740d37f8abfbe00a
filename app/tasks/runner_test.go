package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wezm/rsspls/app/cache"
	"github.com/wezm/rsspls/app/config"
	"github.com/wezm/rsspls/app/fetch"
)

const testPage = `<html><body>
	<article>
		<h3><a href="/posts/first">First Post</a></h3>
		<time datetime="2023-07-01T10:00:00Z">1 July 2023</time>
	</article>
	<article>
		<h3><a href="/posts/second">Second Post</a></h3>
		<time datetime="2023-07-02T10:00:00Z">2 July 2023</time>
	</article>
</body></html>`

type testEnv struct {
	store     *cache.Store
	fetcher   *fetch.Fetcher
	outputDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := cache.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &testEnv{
		store:     store,
		fetcher:   fetch.NewFetcher("rsspls/test", 5*time.Second),
		outputDir: t.TempDir(),
	}
}

func (e *testEnv) run(t *testing.T, definitions []config.Feed, workers int) []Result {
	t.Helper()
	runner := NewRunner(definitions, e.fetcher, e.store, e.outputDir, workers)
	return runner.Run(context.Background())
}

func feedDef(title, filename, url string) config.Feed {
	return config.Feed{
		Title:    title,
		Filename: filename,
		Rule: config.Rule{
			URL:     url,
			Item:    "article",
			Heading: "h3",
			Link:    "h3 a",
			Date:    &config.DateSpec{Selector: "time", Kind: config.KindDateTime},
		},
	}
}

func statusOf(t *testing.T, results []Result, feedName string) Status {
	t.Helper()
	for _, result := range results {
		if result.FeedName == feedName {
			return result.Status
		}
	}
	t.Fatalf("No result for feed %q", feedName)
	return ""
}

func TestRunWritesThenSkipsUnchangedPage(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	env := newTestEnv(t)
	definitions := []config.Feed{feedDef("Blog", "blog.rss", server.URL)}

	results := env.run(t, definitions, 1)
	if statusOf(t, results, "Blog") != StatusWritten {
		t.Fatalf("First run should write, got %v", results)
	}

	outputPath := filepath.Join(env.outputDir, "blog.rss")
	firstBytes, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Expected output file, got: %v", err)
	}
	firstStat, _ := os.Stat(outputPath)

	results = env.run(t, definitions, 1)
	if statusOf(t, results, "Blog") != StatusSkipped {
		t.Fatalf("Second run should skip via 304, got %v", results)
	}

	secondBytes, _ := os.ReadFile(outputPath)
	if string(firstBytes) != string(secondBytes) {
		t.Error("Output bytes must be untouched after a skipped run")
	}
	secondStat, _ := os.Stat(outputPath)
	if !firstStat.ModTime().Equal(secondStat.ModTime()) {
		t.Error("Output file must not be rewritten on a skipped run")
	}

	if fetches != 2 {
		t.Errorf("Expected 2 fetches, got %d", fetches)
	}

	// Cache record reflects the most recent 200 response
	record := env.store.LookupPage(server.URL)
	if record == nil || record.ETag != `"v1"` {
		t.Errorf("Expected cached ETag from the 200 response, got %+v", record)
	}
}

func TestRunSkipsViaFingerprintWhenValidatorsBroken(t *testing.T) {
	// Server ignores conditional requests and always answers 200 with the
	// same bytes and no validators.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	env := newTestEnv(t)
	definitions := []config.Feed{feedDef("Blog", "blog.rss", server.URL)}

	results := env.run(t, definitions, 1)
	if statusOf(t, results, "Blog") != StatusWritten {
		t.Fatalf("First run should write, got %v", results)
	}

	results = env.run(t, definitions, 1)
	if statusOf(t, results, "Blog") != StatusSkipped {
		t.Fatalf("Second run should skip via output fingerprint, got %v", results)
	}
}

func TestRunIsolatesFeedFailures(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer okServer.Close()

	brokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer brokenServer.Close()

	env := newTestEnv(t)
	definitions := []config.Feed{
		feedDef("Broken", "broken.rss", brokenServer.URL),
		feedDef("Working", "working.rss", okServer.URL),
	}

	results := env.run(t, definitions, 2)
	if statusOf(t, results, "Broken") != StatusFailed {
		t.Error("Broken feed should fail")
	}
	if statusOf(t, results, "Working") != StatusWritten {
		t.Error("Working feed must not be affected by a sibling failure")
	}

	if _, err := os.Stat(filepath.Join(env.outputDir, "working.rss")); err != nil {
		t.Errorf("Expected working output file: %v", err)
	}
}

func TestRunRejectsDuplicateFilename(t *testing.T) {
	pageA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer pageA.Close()

	pageB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><article><h3><a href="/other">Other</a></h3></article></body></html>`))
	}))
	defer pageB.Close()

	env := newTestEnv(t)
	definitions := []config.Feed{
		feedDef("A", "same.rss", pageA.URL),
		feedDef("B", "same.rss", pageB.URL),
	}

	// Single worker keeps the order deterministic: A writes, B must not.
	results := env.run(t, definitions, 1)
	if statusOf(t, results, "A") != StatusWritten {
		t.Error("First claimant should write")
	}
	if statusOf(t, results, "B") != StatusFailed {
		t.Error("Second feed with the same filename should fail, not interleave")
	}
}

func TestRunEmptyExtractionStillWrites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no articles</p></body></html>"))
	}))
	defer server.Close()

	env := newTestEnv(t)
	definitions := []config.Feed{feedDef("Empty", "empty.rss", server.URL)}

	results := env.run(t, definitions, 1)
	if statusOf(t, results, "Empty") != StatusWritten {
		t.Fatal("An empty feed is valid output and should be written")
	}
}

func TestRunCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	env := newTestEnv(t)
	definitions := []config.Feed{feedDef("Blog", "blog.rss", server.URL)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewRunner(definitions, env.fetcher, env.store, env.outputDir, 1).Run(ctx)
	if statusOf(t, results, "Blog") != StatusFailed {
		t.Error("Cancelled run should fail the feed")
	}
	if _, err := os.Stat(filepath.Join(env.outputDir, "blog.rss")); !os.IsNotExist(err) {
		t.Error("Cancelled run must not leave output files behind")
	}
}
