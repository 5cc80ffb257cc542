// Package view derives the denormalized page-type order lists (progress,
// processing, completed, files, delivery-notes) from the typed order rows.
// Each view is one dispatcher subscription; its rendered snapshot lives in
// the view cache and is re-derived on refresh, never mutated in place.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/lifecycle"
	"github.com/NateWesth/aleph-order-tracker/internal/logger"
	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/NateWesth/aleph-order-tracker/internal/viewcache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownView is returned for a view name that is not registered
var ErrUnknownView = errors.New("unknown view")

// Lister is the order data access a view refresh needs
type Lister interface {
	// ListOrdersByStatus returns orders in any of the given statuses
	ListOrdersByStatus(ctx context.Context, statuses []string) ([]models.Order, error)
	// GetOrderItems returns the items of an order
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
}

// OrderSummary is one row of a rendered view snapshot
type OrderSummary struct {
	ID          uuid.UUID  `json:"id"`
	Number      string     `json:"number"`
	Reference   string     `json:"reference,omitempty"`
	Status      string     `json:"status"`
	Urgency     string     `json:"urgency"`
	Percent     int        `json:"percent"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Registry holds the named views and refreshes their cached snapshots
type Registry struct {
	repo  Lister
	cache viewcache.Cache
	views map[string][]string
}

// NewRegistry creates a Registry with the default page-type views
func NewRegistry(repo Lister, cache viewcache.Cache) *Registry {
	return &Registry{
		repo:  repo,
		cache: cache,
		views: map[string][]string{
			"progress": {
				models.OrderStatusPending,
				models.OrderStatusReceived,
				models.OrderStatusInProgress,
			},
			"processing": {models.OrderStatusProcessing},
			"completed":  {models.OrderStatusCompleted},
			"files": {
				models.OrderStatusPending,
				models.OrderStatusReceived,
				models.OrderStatusInProgress,
				models.OrderStatusProcessing,
				models.OrderStatusCompleted,
			},
			"delivery-notes": {
				models.OrderStatusProcessing,
				models.OrderStatusCompleted,
			},
		},
	}
}

// Names returns the registered view names
func (reg *Registry) Names() []string {
	names := make([]string, 0, len(reg.views))
	for name := range reg.views {
		names = append(names, name)
	}
	return names
}

// Refresh re-derives the named view's order list from the repository and
// stores the rendered snapshot in the cache
func (reg *Registry) Refresh(ctx context.Context, name string) error {
	statuses, ok := reg.views[name]
	if !ok {
		return ErrUnknownView
	}

	orders, err := reg.repo.ListOrdersByStatus(ctx, statuses)
	if err != nil {
		return err
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		items, err := reg.repo.GetOrderItems(ctx, order.ID)
		if err != nil {
			return err
		}
		summaries = append(summaries, OrderSummary{
			ID:          order.ID,
			Number:      order.Number,
			Reference:   order.Reference,
			Status:      order.Status,
			Urgency:     order.Urgency,
			Percent:     lifecycle.OrderPercent(items),
			CompletedAt: order.CompletedAt,
		})
	}

	rendered, err := json.Marshal(summaries)
	if err != nil {
		return err
	}

	return reg.cache.Set(ctx, viewcache.ViewKey(name), string(rendered))
}

// Snapshot returns the rendered order list of the named view, refreshing on
// a cache miss
func (reg *Registry) Snapshot(ctx context.Context, name string) (json.RawMessage, error) {
	if _, ok := reg.views[name]; !ok {
		return nil, ErrUnknownView
	}

	cached, err := reg.cache.Get(ctx, viewcache.ViewKey(name))
	if err == nil {
		return json.RawMessage(cached), nil
	}
	if !errors.Is(err, viewcache.ErrCacheMiss) {
		return nil, err
	}

	if err := reg.Refresh(ctx, name); err != nil {
		return nil, err
	}

	cached, err = reg.cache.Get(ctx, viewcache.ViewKey(name))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(cached), nil
}

// Subscriber is the dispatcher surface views register against
type Subscriber interface {
	Register(name string, refresh func(context.Context))
}

// RegisterAll subscribes every view to the dispatcher. Refresh failures are
// logged, not propagated: the next event or sweep retries anyway.
func (reg *Registry) RegisterAll(d Subscriber) {
	for name := range reg.views {
		name := name
		d.Register(name, func(ctx context.Context) {
			if err := reg.Refresh(ctx, name); err != nil {
				logger.Log.Error("view refresh failed",
					zap.String("view", name), zap.Error(err))
			}
		})
	}
}
