package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/syncline/marketsync/internal/domain"
)

// ConnectionRepository handles store connection data operations.
type ConnectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new ConnectionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ConnectionRepository: repository instance bound to db.
func NewConnectionRepository(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Create inserts a new store connection.
func (r *ConnectionRepository) Create(ctx context.Context, conn *domain.StoreConnection) error {
	return r.db.WithContext(ctx).Create(conn).Error
}

// GetByID retrieves a store connection by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: connection ID.
// Returns:
//   - *domain.StoreConnection: connection record if found.
//   - error: non-nil if lookup fails.
func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*domain.StoreConnection, error) {
	var conn domain.StoreConnection
	if err := r.db.WithContext(ctx).First(&conn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

// ListByWorkspace retrieves all connections owned by a workspace.
func (r *ConnectionRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.StoreConnection, error) {
	var conns []domain.StoreConnection
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// UpdateSyncState records the outcome of a sync run on the connection.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: connection ID.
//   - status: new sync status.
//   - lastSync: sync completion time; nil leaves the previous value.
// Returns:
//   - error: non-nil if the update fails.
func (r *ConnectionRepository) UpdateSyncState(ctx context.Context, id string, status domain.SyncStatus, lastSync *time.Time) error {
	updates := map[string]interface{}{
		"sync_status": status,
		"updated_at":  time.Now(),
	}
	if lastSync != nil {
		updates["last_sync_at"] = *lastSync
	}
	return r.db.WithContext(ctx).Model(&domain.StoreConnection{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes a store connection by ID.
func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.StoreConnection{}, "id = ?", id).Error
}
