package fetch

import (
	"context"
	"sync"
)

// Cache is a read-through page cache keyed by URL. It exists so a
// validate-then-scrape flow never fetches the same page twice; it is passed
// by reference into the scheduler rather than baked into the engine.
type Cache struct {
	mu      sync.Mutex
	fetcher Fetcher
	pages   map[string]Page
}

// NewCache wraps a Fetcher with URL-keyed memoization.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		pages:   make(map[string]Page),
	}
}

// Fetch returns the cached page when present, otherwise delegates and
// memoizes the success. Failures are never cached: a later call may retry.
func (c *Cache) Fetch(ctx context.Context, rawURL string) (Page, error) {
	c.mu.Lock()
	if page, ok := c.pages[rawURL]; ok {
		c.mu.Unlock()
		return page, nil
	}
	c.mu.Unlock()

	page, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return Page{}, err
	}

	c.mu.Lock()
	c.pages[rawURL] = page
	c.mu.Unlock()
	return page, nil
}
