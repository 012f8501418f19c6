package worker

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hasali19/tress/app/database"
	"github.com/hasali19/tress/app/feed"
)

// Worker owns the sync queue: multiple producers (HTTP handlers, the
// interval ticker), one consumer goroutine processing requests strictly
// in enqueue order. Feeds within a request are synced sequentially, so no
// two syncs ever touch the same feed's posts concurrently.
type Worker struct {
	feedRepo   database.FeedRepository
	ingestor   *Ingestor
	parser     *feed.Parser
	httpClient *http.Client
	userAgent  string
	interval   time.Duration

	queue  chan Request
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(feedRepo database.FeedRepository, ingestor *Ingestor, parser *feed.Parser,
	httpClient *http.Client, userAgent string, interval time.Duration) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		feedRepo:   feedRepo,
		ingestor:   ingestor,
		parser:     parser,
		httpClient: httpClient,
		userAgent:  userAgent,
		interval:   interval,
		queue:      make(chan Request, 1024),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()

	w.wg.Add(1)
	go w.tick()
}

// Stop cancels the worker and waits for the in-flight request to settle.
// Requests still queued are dropped.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

// Enqueue never blocks and never fails the caller's request path. Overflow
// of the (generously bounded) queue is logged and the request dropped.
func (w *Worker) Enqueue(req Request) {
	select {
	case w.queue <- req:
	default:
		slog.Warn("Sync queue full, dropping request", "feed_id", req.FeedID, "notify", req.Notify)
	}
}

// tick enqueues a notifying full sync once per interval, firing immediately
// at startup.
func (w *Worker) tick() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Enqueue(Request{Notify: true})

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Enqueue(Request{Notify: true})
		}
	}
}

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case req := <-w.queue:
			w.safeProcess(req)
		}
	}
}

// safeProcess keeps an unexpected panic in one request from killing the
// loop; the worker always returns to waiting on the queue.
func (w *Worker) safeProcess(req Request) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while processing sync request", "feed_id", req.FeedID, "panic", r)
		}
	}()

	w.process(req)
}

func (w *Worker) process(req Request) {
	feeds, err := w.resolveScope(req)
	if err != nil {
		// Storage trouble: log and wait for the next scheduled tick.
		slog.Error("Failed to resolve sync scope", "feed_id", req.FeedID, "error", err)
		return
	}

	for _, f := range feeds {
		if w.ctx.Err() != nil {
			return
		}
		if err := w.syncFeed(w.ctx, f, req.Notify); err != nil {
			slog.Error("Failed to sync feed", "feed", f.URL, "error", err)
		}
	}
}

// resolveScope expands a request into feed rows. A single-feed request for
// a feed that has since been deleted resolves to an empty set, not an error.
func (w *Worker) resolveScope(req Request) ([]database.Feed, error) {
	if req.FeedID == "" {
		return w.feedRepo.GetFeeds()
	}

	f, err := w.feedRepo.GetFeed(req.FeedID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		slog.Debug("Feed no longer exists, skipping", "feed_id", req.FeedID)
		return nil, nil
	}

	return []database.Feed{*f}, nil
}

func (w *Worker) syncFeed(ctx context.Context, f database.Feed, notify bool) error {
	data, err := w.fetchFeed(ctx, f.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	doc, err := w.parser.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	if doc.Title != f.Title || (doc.Icon != "" && doc.Icon != f.Icon) {
		icon := cmp.Or(doc.Icon, f.Icon)
		if err := w.feedRepo.UpdateFeedMetadata(f.ID, doc.Title, icon); err != nil {
			slog.Error("Failed to update feed metadata", "feed", f.URL, "error", err)
		}
	}

	w.ingestor.Run(ctx, f, doc, notify)

	return nil
}

func (w *Worker) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, FeedFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
