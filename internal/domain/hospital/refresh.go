package hospital

import "context"

// JobRefresh names the background job that forces a catalog refresh.
const JobRefresh = "catalog.refresh"

// JobQueue accepts background jobs by name.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload map[string]any) error
}
