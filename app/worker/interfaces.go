package worker

import (
	"context"
	"time"

	"github.com/hasali19/tress/app/database"
	"github.com/hasali19/tress/app/enrich"
	"github.com/hasali19/tress/app/push"
)

type Enricher interface {
	ThumbnailURL(ctx context.Context, pageURL string) (string, error)
}

var _ Enricher = (*enrich.Fetcher)(nil)

type Pusher interface {
	Send(ctx context.Context, sub database.PushSubscription, payload any) error
}

var _ Pusher = (*push.Client)(nil)

// Enqueuer is the only surface the HTTP layer sees: a non-blocking,
// fire-and-forget send into the sync queue.
type Enqueuer interface {
	Enqueue(req Request)
}

var _ Enqueuer = (*Worker)(nil)

// FeedFetchTimeout bounds a single feed document download.
const FeedFetchTimeout = 30 * time.Second
