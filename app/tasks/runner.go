package tasks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wezm/rsspls/app/cache"
	"github.com/wezm/rsspls/app/config"
	"github.com/wezm/rsspls/app/extract"
	"github.com/wezm/rsspls/app/feed"
	"github.com/wezm/rsspls/app/fetch"
)

// Result pairs a task's terminal status with its error, if any.
type Result struct {
	FeedName string
	Status   Status
	Err      error
}

// Runner processes all configured feeds once over a fixed-size worker pool.
// Feeds are independent units of work; no completion ordering is guaranteed.
type Runner struct {
	definitions []config.Feed
	fetcher     *fetch.Fetcher
	extractor   *extract.Extractor
	generator   *feed.Generator
	store       *cache.Store
	outputDir   string
	workerCount int
}

func NewRunner(definitions []config.Feed, fetcher *fetch.Fetcher, store *cache.Store,
	outputDir string, workerCount int) *Runner {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Runner{
		definitions: definitions,
		fetcher:     fetcher,
		extractor:   extract.NewExtractor(),
		generator:   feed.NewGenerator(),
		store:       store,
		outputDir:   outputDir,
		workerCount: workerCount,
	}
}

// Run executes one pass over every feed and returns the per-feed results.
// Cancelling the context aborts in-flight fetches; already-started writes are
// atomic so no partial output survives.
func (r *Runner) Run(ctx context.Context) []Result {
	claims := newOutputClaims()

	queue := make(chan *ProcessFeedTask, len(r.definitions))
	for i := range r.definitions {
		queue <- NewProcessFeedTask(&r.definitions[i], r.fetcher, r.extractor,
			r.generator, r.store, claims, r.outputDir)
	}
	close(queue)

	results := make(chan Result, len(r.definitions))

	var wg sync.WaitGroup
	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.worker(ctx, id, queue, results)
		}(i)
	}

	wg.Wait()
	close(results)

	collected := make([]Result, 0, len(r.definitions))
	for result := range results {
		collected = append(collected, result)
	}
	return collected
}

func (r *Runner) worker(ctx context.Context, id int, queue <-chan *ProcessFeedTask, results chan<- Result) {
	for task := range queue {
		select {
		case <-ctx.Done():
			results <- Result{FeedName: task.GetFeedName(), Status: StatusFailed, Err: ctx.Err()}
			continue
		default:
		}

		task.Start()
		status, err := task.Execute(ctx)
		if err != nil {
			slog.Error("Feed processing failed",
				"worker_id", id,
				"feed", task.GetFeedName(),
				"duration", task.GetDuration(),
				"error", err)
		}
		results <- Result{FeedName: task.GetFeedName(), Status: status, Err: err}
	}
}

// outputClaims tracks which output filenames have been written this run, so
// two definitions sharing a filename cannot interleave their writes.
type outputClaims struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func newOutputClaims() *outputClaims {
	return &outputClaims{claimed: make(map[string]bool)}
}

// Claim reserves a filename. Returns false if another feed already wrote it.
func (c *outputClaims) Claim(filename string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed[filename] {
		return false
	}
	c.claimed[filename] = true
	return true
}
