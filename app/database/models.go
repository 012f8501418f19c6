package database

// Feed represents a subscribed feed source.
type Feed struct {
	ID        string
	URL       string
	Title     string
	Icon      string
	Thumbnail string
}

// Post represents a single entry discovered within a feed. URL is the
// global dedup key; Thumbnail is the only field mutated after creation.
type Post struct {
	ID          string
	FeedID      string
	URL         string
	Title       string
	Description string
	Content     string
	PublishTime string
	Thumbnail   string
}

// PushSubscription holds a client push endpoint and its encryption
// credentials (base64url-encoded).
type PushSubscription struct {
	ID        int64
	Endpoint  string
	AuthKey   string
	P256dhKey string
}
