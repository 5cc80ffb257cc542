// Package viewcache holds rendered view snapshots behind a single keyed
// cache with push invalidation, instead of per-page stores kept in sync by
// hand.
package viewcache

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCacheMiss is returned by Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ViewKey is the cache key of a rendered view snapshot
func ViewKey(name string) string {
	return "view:" + name
}

// OrderKey is the cache key of a single order snapshot, used for push
// invalidation on delete
func OrderKey(id uuid.UUID) string {
	return "order:" + id.String()
}
