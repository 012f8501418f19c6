package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hasali19/tress/app/database"
	"github.com/hasali19/tress/app/feed"
	"github.com/hasali19/tress/app/push"
)

// Ingestor converts parsed feed entries into post records, deduplicates
// them against storage and drives enrichment and notification for every
// post that turns out to be new.
type Ingestor struct {
	postRepo database.PostRepository
	subRepo  database.SubscriptionRepository
	enricher Enricher
	pusher   Pusher
}

func NewIngestor(postRepo database.PostRepository, subRepo database.SubscriptionRepository,
	enricher Enricher, pusher Pusher) *Ingestor {
	return &Ingestor{
		postRepo: postRepo,
		subRepo:  subRepo,
		enricher: enricher,
		pusher:   pusher,
	}
}

// Run processes entries in document order. A duplicate url is the expected
// dedup signal and skips the entry entirely; any other failure skips the
// entry and continues, so one bad entry never aborts the rest of the feed.
// Each new post is enriched before its notification fan-out begins.
func (i *Ingestor) Run(ctx context.Context, f database.Feed, doc *feed.Document, notify bool) {
	// Cancellation stops between entries; the in-flight entry's
	// enrichment and notifications run to completion.
	opCtx := context.WithoutCancel(ctx)

	newCount := 0
	duplicateCount := 0

	for _, entry := range doc.Entries {
		if ctx.Err() != nil {
			return
		}

		post := database.Post{
			ID:          uuid.NewString(),
			FeedID:      f.ID,
			URL:         entry.URL(),
			Title:       entry.Title,
			Description: entry.SummaryText(),
			Content:     entry.Content,
			PublishTime: entry.PublishTime().UTC().Format(time.RFC3339),
		}

		err := i.postRepo.CreatePost(post)
		if errors.Is(err, database.ErrDuplicateURL) {
			slog.Debug("Post already known", "feed", f.URL, "url", post.URL)
			duplicateCount++
			continue
		}
		if err != nil {
			slog.Error("Failed to persist post", "feed", f.URL, "url", post.URL, "error", err)
			continue
		}
		newCount++

		i.enrichPost(opCtx, &post)

		if notify {
			i.notifySubscribers(opCtx, post)
		}
	}

	slog.Info("Feed ingested",
		"feed", f.URL,
		"total", len(doc.Entries),
		"new", newCount,
		"duplicates", duplicateCount)
}

// enrichPost backfills the thumbnail from the linked page. A failed or
// empty enrichment leaves the post as it is.
func (i *Ingestor) enrichPost(ctx context.Context, post *database.Post) {
	thumbnail, err := i.enricher.ThumbnailURL(ctx, post.URL)
	if err != nil {
		slog.Warn("Failed to enrich post", "url", post.URL, "error", err)
		return
	}
	if thumbnail == "" {
		return
	}

	if err := i.postRepo.UpdatePostThumbnail(post.ID, thumbnail); err != nil {
		slog.Error("Failed to store post thumbnail", "url", post.URL, "error", err)
		return
	}
	post.Thumbnail = thumbnail
}

// notifySubscribers fans the new post out to every current subscription,
// fetched fresh at notification time. A gone endpoint is pruned from
// storage; any other delivery failure keeps the subscription.
func (i *Ingestor) notifySubscribers(ctx context.Context, post database.Post) {
	subs, err := i.subRepo.GetSubscriptions()
	if err != nil {
		slog.Error("Failed to load push subscriptions", "error", err)
		return
	}

	payload := Notification{ID: post.ID, Title: post.Title}

	for _, sub := range subs {
		err := i.pusher.Send(ctx, sub, payload)
		switch {
		case errors.Is(err, push.ErrSubscriptionGone):
			slog.Info("Removing gone push subscription", "endpoint", sub.Endpoint)
			if err := i.subRepo.DeleteSubscription(sub.ID); err != nil {
				slog.Error("Failed to delete push subscription", "endpoint", sub.Endpoint, "error", err)
			}
		case err != nil:
			slog.Error("Failed to deliver push notification", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
