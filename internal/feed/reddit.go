package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// redditPageLimit is the maximum listing page size the Reddit API accepts.
const redditPageLimit = 100

// RedditClient fetches posts from a subreddit's public new-post listing.
type RedditClient struct {
	baseURL   string
	subreddit string
	userAgent string
	client    *http.Client
}

// NewRedditClient creates a client for the given subreddit. baseURL is the
// API root (e.g. "https://www.reddit.com") so tests can point at a fake.
func NewRedditClient(baseURL, subreddit, userAgent string) *RedditClient {
	return &RedditClient{
		baseURL:   baseURL,
		subreddit: subreddit,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// listing mirrors the subset of the Reddit listing response we consume.
type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data struct {
				ID    string `json:"id"`
				Title string `json:"title"`
				URL   string `json:"url"`
				Score int    `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// FetchRecent returns up to limit newest posts, paginating through the
// listing as needed. Any HTTP or decode failure aborts the whole fetch.
func (c *RedditClient) FetchRecent(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		return nil, nil
	}

	var posts []Post
	after := ""

	for len(posts) < limit {
		page, err := c.fetchPage(ctx, limit-len(posts), after)
		if err != nil {
			return nil, err
		}

		for _, child := range page.Data.Children {
			posts = append(posts, Post{
				ID:    child.Data.ID,
				Title: child.Data.Title,
				URL:   child.Data.URL,
				Score: child.Data.Score,
			})
		}

		// No more pages, or an empty page that would loop forever.
		if page.Data.After == "" || len(page.Data.Children) == 0 {
			break
		}
		after = page.Data.After
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (c *RedditClient) fetchPage(ctx context.Context, remaining int, after string) (*listing, error) {
	count := remaining
	if count > redditPageLimit {
		count = redditPageLimit
	}

	u := fmt.Sprintf("%s/r/%s/new.json?limit=%d&raw_json=1", c.baseURL, c.subreddit, count)
	if after != "" {
		u += "&after=" + url.QueryEscape(after)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var page listing
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding feed response: %w", err)
	}
	return &page, nil
}
