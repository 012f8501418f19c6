package api

import (
	"net/http"

	"github.com/hasali19/tress/app/database"
	"github.com/hasali19/tress/app/feed"
	"github.com/hasali19/tress/app/worker"
)

type Handler struct {
	feedRepo   database.FeedRepository
	postRepo   database.PostRepository
	subRepo    database.SubscriptionRepository
	enqueuer   worker.Enqueuer
	parser     *feed.Parser
	httpClient *http.Client
	userAgent  string
	pushKey    string
}

type feedResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Icon      string `json:"icon,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type postResponse struct {
	ID          string `json:"id"`
	FeedID      string `json:"feed_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PublishTime string `json:"publish_time"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

type createFeedRequest struct {
	URL string `json:"url" binding:"required"`
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		Auth   string `json:"auth" binding:"required"`
		P256dh string `json:"p256dh" binding:"required"`
	} `json:"keys" binding:"required"`
}
