package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hasali19/tress/app/database"
	"github.com/hasali19/tress/app/feed"
	"github.com/hasali19/tress/app/worker"
)

const feedFetchTimeout = 30 * time.Second

func NewHandler(feedRepo database.FeedRepository, postRepo database.PostRepository,
	subRepo database.SubscriptionRepository, enqueuer worker.Enqueuer,
	parser *feed.Parser, httpClient *http.Client, userAgent string, pushKey string) *Handler {
	return &Handler{
		feedRepo:   feedRepo,
		postRepo:   postRepo,
		subRepo:    subRepo,
		enqueuer:   enqueuer,
		parser:     parser,
		httpClient: httpClient,
		userAgent:  userAgent,
		pushKey:    pushKey,
	}
}

func (h *Handler) GetFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.GetFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "get_feeds", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, feedResponse{
			ID:        f.ID,
			URL:       f.URL,
			Title:     f.Title,
			Icon:      f.Icon,
			Thumbnail: f.Thumbnail,
		})
	}

	c.JSON(http.StatusOK, out)
}

// CreateFeed registers a feed. The document is fetched and parsed up front
// so a bad URL fails the request; all later sync failures are asynchronous
// and invisible here. The initial backfill sync never notifies subscribers.
func (h *Handler) CreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "url is required"})
		return
	}

	data, err := h.fetchFeed(c.Request.Context(), req.URL)
	if err != nil {
		slog.Error("Failed to fetch feed for registration", "url", req.URL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"message": "failed to fetch feed"})
		return
	}

	doc, err := h.parser.Parse(data)
	if err != nil {
		slog.Error("Failed to parse feed for registration", "url", req.URL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"message": "failed to parse feed"})
		return
	}

	f := database.Feed{
		ID:    uuid.NewString(),
		URL:   req.URL,
		Title: doc.Title,
		Icon:  doc.Icon,
	}

	err = h.feedRepo.CreateFeed(f)
	if errors.Is(err, database.ErrDuplicateURL) {
		c.JSON(http.StatusConflict, gin.H{"message": "feed already registered"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "create_feed", "url", req.URL, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	h.enqueuer.Enqueue(worker.Request{FeedID: f.ID, Notify: false})

	c.JSON(http.StatusCreated, feedResponse{ID: f.ID, URL: f.URL, Title: f.Title, Icon: f.Icon})
}

func (h *Handler) GetPosts(c *gin.Context) {
	posts, err := h.postRepo.GetPosts()
	if err != nil {
		slog.Error("Database error", "operation", "get_posts", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, postResponse{
			ID:          p.ID,
			FeedID:      p.FeedID,
			URL:         p.URL,
			Title:       p.Title,
			Description: p.Description,
			PublishTime: p.PublishTime,
			Thumbnail:   p.Thumbnail,
		})
	}

	c.JSON(http.StatusOK, out)
}

// TriggerSync enqueues a full no-notify sync and returns immediately.
func (h *Handler) TriggerSync(c *gin.Context) {
	h.enqueuer.Enqueue(worker.Request{Notify: false})
	c.Status(http.StatusAccepted)
}

func (h *Handler) GetPushKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"key": h.pushKey})
}

func (h *Handler) CreateSubscription(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "endpoint and keys are required"})
		return
	}

	err := h.subRepo.UpsertSubscription(database.PushSubscription{
		Endpoint:  req.Endpoint,
		AuthKey:   req.Keys.Auth,
		P256dhKey: req.Keys.P256dh,
	})
	if err != nil {
		slog.Error("Database error", "operation", "upsert_subscription", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusCreated)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}
	if postCount, err := h.postRepo.GetPostCount(); err == nil {
		health["posts"] = postCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, feedFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.httpClient.Do(req)
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
