package adminclient

import (
	"context"
	"log/slog"
	"sync"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
)

// CatalogCache mirrors exams for the console. It is never the source of
// truth: every mutation round-trips to the server and is followed by a
// refetch, and a response older than the held version is dropped.
type CatalogCache struct {
	client *Client
	mu     sync.RWMutex
	exams  map[string]catalog.Exam
	floor  map[string]int64 // newest version seen per exam, kept across Invalidate
}

// NewCatalogCache creates an empty cache backed by c.
func NewCatalogCache(c *Client) *CatalogCache {
	return &CatalogCache{client: c, exams: make(map[string]catalog.Exam), floor: make(map[string]int64)}
}

// Exam returns the cached exam, fetching it on a miss.
func (c *CatalogCache) Exam(ctx context.Context, id string) (catalog.Exam, error) {
	c.mu.RLock()
	e, ok := c.exams[id]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}
	return c.Refresh(ctx, id)
}

// Refresh refetches an exam from the server.
func (c *CatalogCache) Refresh(ctx context.Context, id string) (catalog.Exam, error) {
	e, err := c.client.GetExam(ctx, id)
	if err != nil {
		return catalog.Exam{}, err
	}
	return c.put(e), nil
}

// Mutate runs a mutating call for exam id, then refetches the exam. On
// failure the entry is dropped so the next read goes to the server.
func (c *CatalogCache) Mutate(ctx context.Context, id string, call func(ctx context.Context) (catalog.Exam, error)) (catalog.Exam, error) {
	e, err := call(ctx)
	if err != nil {
		c.Invalidate(id)
		return catalog.Exam{}, err
	}
	c.put(e)

	fresh, err := c.Refresh(ctx, id)
	if err != nil {
		slog.Warn("refetch after mutation failed", "exam_id", id, "error", err)
		c.Invalidate(id)
		return e, nil
	}
	return fresh, nil
}

// Invalidate drops an exam from the cache. The newest version seen is kept,
// so a slower response issued before the invalidation cannot repopulate it.
func (c *CatalogCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exams, id)
}

// put stores e unless a newer version has already been seen, and returns
// the exam the caller should show. A stale e is returned as is when nothing
// newer is held, but it is not cached.
func (c *CatalogCache) put(e catalog.Exam) catalog.Exam {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.Version < c.floor[e.ID] {
		slog.Debug("dropping stale exam response", "exam_id", e.ID, "floor", c.floor[e.ID], "got", e.Version)
		if held, ok := c.exams[e.ID]; ok {
			return held
		}
		return e
	}
	c.floor[e.ID] = e.Version
	c.exams[e.ID] = e
	return e
}
