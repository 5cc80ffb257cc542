package worker

import (
	"context"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/logger"
)

type ViewRefresher interface {
	RefreshAll(ctx context.Context)
}

// ViewSweeper is worker periodically forcing a refresh of all registered
// views, a safety net for change events missed while disconnected
type ViewSweeper struct {
	refresher ViewRefresher
	interval  time.Duration
}

// NewViewSweeper creates new view sweeper
func NewViewSweeper(refresher ViewRefresher, interval time.Duration) *ViewSweeper {
	return &ViewSweeper{refresher: refresher, interval: interval}
}

// Run sweeps until the context is cancelled
func (vs *ViewSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(vs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Debug("view sweeper is done")
			return
		case <-ticker.C:
			vs.refresher.RefreshAll(ctx)
		}
	}
}
