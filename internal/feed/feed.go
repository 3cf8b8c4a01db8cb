// Package feed defines the content feed collaborator: the data model for
// incoming posts and the client contract for fetching them.
package feed

import "context"

// Post is a single feed item as returned by the upstream feed. Posts are
// immutable and live only for the duration of a polling cycle.
type Post struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Score int    `json:"score"`
}

// Client is the interface for fetching recent posts from a feed.
// Implementations include the real Reddit listing client and test fakes.
type Client interface {
	// FetchRecent returns up to limit most-recent posts, newest first.
	// Errors are transient (connectivity, rate limit, malformed response)
	// and callers decide whether to retry.
	FetchRecent(ctx context.Context, limit int) ([]Post, error)
}
