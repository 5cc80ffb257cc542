package repository

import (
	"context"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/NateWesth/aleph-order-tracker/internal/repository/postgres"
)

const insertSyncEntryQuery = `
						INSERT INTO sync_log (id, sync_type, status, items_synced, error_message, completed_at)
						VALUES ($1, $2, $3, $4, $5, $6)
`

// SyncLogRepository persists integration sync audit entries
type SyncLogRepository struct {
	db *postgres.DB
}

// NewSyncLogRepository creates new SyncLogRepository instance
func NewSyncLogRepository(db *postgres.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// InsertEntry writes one sync audit entry
func (sr *SyncLogRepository) InsertEntry(ctx context.Context, entry models.SyncEntry) error {
	_, err := sr.db.Exec(ctx, insertSyncEntryQuery,
		entry.ID, entry.SyncType, entry.Status, entry.ItemsSynced, entry.ErrorMessage, entry.CompletedAt)
	return err
}
