package worker

// Request asks the worker to sync either every feed (empty FeedID) or a
// single one. Requests are in-memory only and consumed exactly once.
type Request struct {
	FeedID string
	Notify bool
}

// Notification is the minimal payload pushed to subscribers for a newly
// discovered post.
type Notification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
