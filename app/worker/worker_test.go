package worker

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hasali19/tress/app/database"
	"github.com/hasali19/tress/app/feed"
)

type mockFeedRepo struct {
	mu            sync.Mutex
	feeds         []database.Feed
	err           error
	panicOnList   bool
	metadataCalls []string
}

var _ database.FeedRepository = (*mockFeedRepo)(nil)

func (m *mockFeedRepo) CreateFeed(f database.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds = append(m.feeds, f)
	return nil
}

func (m *mockFeedRepo) GetFeed(id string) (*database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, f := range m.feeds {
		if f.ID == id {
			f := f
			return &f, nil
		}
	}
	return nil, nil
}

func (m *mockFeedRepo) GetFeeds() ([]database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOnList {
		panic("unexpected storage state")
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]database.Feed(nil), m.feeds...), nil
}

func (m *mockFeedRepo) UpdateFeedMetadata(id string, title string, icon string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for idx := range m.feeds {
		if m.feeds[idx].ID == id {
			m.feeds[idx].Title = title
			m.feeds[idx].Icon = icon
		}
	}
	m.metadataCalls = append(m.metadataCalls, id+":"+title)
	return nil
}

func (m *mockFeedRepo) GetFeedCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feeds), nil
}

const atomDocument = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Fetched Title</title>
  <id>urn:uuid:feed-1</id>
  <updated>2024-01-01T00:00:00Z</updated>
  <entry>
    <id>p1</id>
    <title>Hello</title>
    <updated>2024-01-01T00:00:00Z</updated>
  </entry>
</feed>`

func newTestWorker(feedRepo database.FeedRepository, postRepo database.PostRepository) *Worker {
	ingestor := NewIngestor(postRepo, &mockSubRepo{}, &mockEnricher{}, &mockPusher{})
	return New(feedRepo, ingestor, feed.NewParser(), http.DefaultClient, "Test Agent", time.Hour)
}

func TestWorkerSyncsSingleFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(atomDocument))
	}))
	defer server.Close()

	feedRepo := &mockFeedRepo{feeds: []database.Feed{{ID: "feed-1", URL: server.URL, Title: ""}}}
	postRepo := &mockPostRepo{}
	w := newTestWorker(feedRepo, postRepo)

	w.safeProcess(Request{FeedID: "feed-1", Notify: false})

	if len(postRepo.posts) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(postRepo.posts))
	}
	post := postRepo.posts[0]
	if post.URL != "p1" {
		t.Errorf("Expected entry id as url fallback, got %s", post.URL)
	}
	if post.Title != "Hello" {
		t.Errorf("Expected title 'Hello', got %s", post.Title)
	}
	if post.PublishTime != "2024-01-01T00:00:00Z" {
		t.Errorf("Expected publish time from updated, got %s", post.PublishTime)
	}

	// Feed title is populated from the first successful fetch
	f, _ := feedRepo.GetFeed("feed-1")
	if f.Title != "Fetched Title" {
		t.Errorf("Expected feed title to be updated, got %q", f.Title)
	}
}

func TestWorkerVanishedFeedIsNotAnError(t *testing.T) {
	feedRepo := &mockFeedRepo{}
	postRepo := &mockPostRepo{}
	w := newTestWorker(feedRepo, postRepo)

	// The feed was deleted between enqueue and processing
	w.safeProcess(Request{FeedID: "no-such-feed"})

	if len(postRepo.posts) != 0 {
		t.Errorf("Expected nothing to happen, got %d posts", len(postRepo.posts))
	}
}

func TestWorkerFeedFailureIsolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.xml" {
			w.Write([]byte("not a feed at all"))
			return
		}
		w.Write([]byte(atomDocument))
	}))
	defer server.Close()

	feedRepo := &mockFeedRepo{feeds: []database.Feed{
		{ID: "feed-bad", URL: server.URL + "/broken.xml"},
		{ID: "feed-good", URL: server.URL + "/good.xml"},
	}}
	postRepo := &mockPostRepo{}
	w := newTestWorker(feedRepo, postRepo)

	w.safeProcess(Request{})

	if len(postRepo.posts) != 1 {
		t.Fatalf("Expected the good feed to be synced despite the broken one, got %d posts", len(postRepo.posts))
	}
	if postRepo.posts[0].FeedID != "feed-good" {
		t.Errorf("Expected post from feed-good, got %s", postRepo.posts[0].FeedID)
	}
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	feedRepo := &mockFeedRepo{panicOnList: true}
	w := newTestWorker(feedRepo, &mockPostRepo{})

	// Must not propagate; the loop always returns to waiting
	w.safeProcess(Request{})
}

func TestWorkerProcessesRequestsInOrder(t *testing.T) {
	var mu sync.Mutex
	var fetched []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fetched = append(fetched, r.URL.Path)
		mu.Unlock()
		w.Write([]byte(atomDocument))
	}))
	defer server.Close()

	// GetFeeds stays empty so the startup full sync fetches nothing;
	// only the two explicit single-feed requests hit the server.
	byID := &mockFeedRepo{feeds: []database.Feed{
		{ID: "feed-a", URL: server.URL + "/a.xml"},
		{ID: "feed-b", URL: server.URL + "/b.xml"},
	}}

	ingestor := NewIngestor(&mockPostRepo{}, &mockSubRepo{}, &mockEnricher{}, &mockPusher{})
	w := New(&singleFeedOnlyRepo{byID}, ingestor, feed.NewParser(), http.DefaultClient, "Test Agent", time.Hour)

	w.Start()
	w.Enqueue(Request{FeedID: "feed-a"})
	w.Enqueue(Request{FeedID: "feed-b"})

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		done := len(fetched) >= 2
		mu.Unlock()
		if done || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(fetched) != 2 {
		t.Fatalf("Expected 2 fetches, got %d: %v", len(fetched), fetched)
	}
	if fetched[0] != "/a.xml" || fetched[1] != "/b.xml" {
		t.Errorf("Expected FIFO processing order, got %v", fetched)
	}
}

// singleFeedOnlyRepo resolves feeds by id but reports none for full syncs,
// keeping the startup tick out of ordering assertions.
type singleFeedOnlyRepo struct {
	inner *mockFeedRepo
}

var _ database.FeedRepository = (*singleFeedOnlyRepo)(nil)

func (r *singleFeedOnlyRepo) CreateFeed(f database.Feed) error { return r.inner.CreateFeed(f) }
func (r *singleFeedOnlyRepo) GetFeed(id string) (*database.Feed, error) {
	return r.inner.GetFeed(id)
}
func (r *singleFeedOnlyRepo) GetFeeds() ([]database.Feed, error) { return nil, nil }
func (r *singleFeedOnlyRepo) UpdateFeedMetadata(id, title, icon string) error {
	return r.inner.UpdateFeedMetadata(id, title, icon)
}
func (r *singleFeedOnlyRepo) GetFeedCount() (int, error) { return r.inner.GetFeedCount() }

func TestWorkerEnqueueNeverBlocks(t *testing.T) {
	w := newTestWorker(&mockFeedRepo{}, &mockPostRepo{})

	// Worker not started: fill the queue past capacity; Enqueue must
	// return immediately every time.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 2048; i++ {
			w.Enqueue(Request{FeedID: fmt.Sprintf("feed-%d", i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}
