package database

import "errors"

// ErrDuplicateURL is returned when an insert hits the unique url
// constraint. For posts this is the expected dedup signal, not a failure.
var ErrDuplicateURL = errors.New("url already exists")

type FeedRepository interface {
	CreateFeed(feed Feed) error
	GetFeed(id string) (*Feed, error)
	GetFeeds() ([]Feed, error)
	UpdateFeedMetadata(id string, title string, icon string) error
	GetFeedCount() (int, error)
}

type PostRepository interface {
	CreatePost(post Post) error
	GetPosts() ([]Post, error)
	UpdatePostThumbnail(id string, thumbnail string) error
	GetPostCount() (int, error)
}

type SubscriptionRepository interface {
	UpsertSubscription(sub PushSubscription) error
	GetSubscriptions() ([]PushSubscription, error)
	DeleteSubscription(id int64) error
}
