package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/syncline/marketsync/internal/domain"
)

// ErrExternalIDCollision signals that an external ID already belongs to a
// different store connection in the same workspace. Such products are skipped,
// never silently overwritten across connections.
var ErrExternalIDCollision = errors.New("external id owned by another store connection")

// ProductRepository handles canonical product data operations.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ProductRepository: repository instance bound to db.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// UpsertResult reports whether an upsert created a new row or updated one.
type UpsertResult struct {
	Created bool
}

// Upsert creates or updates a product keyed by (workspace_id,
// store_connection_id, external_id). Re-syncing the same external product
// never duplicates rows.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - product: product record to create or update.
// Returns:
//   - UpsertResult: whether the row was newly created.
//   - error: non-nil if the upsert fails or the external ID belongs to a
//     different connection.
func (r *ProductRepository) Upsert(ctx context.Context, product *domain.Product) (UpsertResult, error) {
	// An external ID that exists under another connection in the same
	// workspace is an invariant violation, not an update target.
	var other domain.Product
	err := r.db.WithContext(ctx).
		Select("id", "store_connection_id").
		Where("workspace_id = ? AND external_id = ? AND store_connection_id <> ?",
			product.WorkspaceID, product.ExternalID, product.StoreConnectionID).
		First(&other).Error
	if err == nil {
		return UpsertResult{}, fmt.Errorf("external id %s: %w", product.ExternalID, ErrExternalIDCollision)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return UpsertResult{}, err
	}

	var existing domain.Product
	err = r.db.WithContext(ctx).
		Select("id").
		Where("workspace_id = ? AND store_connection_id = ? AND external_id = ?",
			product.WorkspaceID, product.StoreConnectionID, product.ExternalID).
		First(&existing).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		return UpsertResult{}, err
	}
	if !created {
		product.ID = existing.ID
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "workspace_id"}, {Name: "store_connection_id"}, {Name: "external_id"},
		},
		UpdateAll: true,
	}).Create(product).Error
	if err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Created: created}, nil
}

// GetByExternalID retrieves a product by its source tuple.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - workspaceID: owning workspace.
//   - connectionID: owning store connection.
//   - externalID: marketplace-native identifier.
// Returns:
//   - *domain.Product: product record if found.
//   - error: non-nil if lookup fails.
func (r *ProductRepository) GetByExternalID(ctx context.Context, workspaceID, connectionID, externalID string) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.WithContext(ctx).
		First(&product, "workspace_id = ? AND store_connection_id = ? AND external_id = ?",
			workspaceID, connectionID, externalID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListByConnection retrieves products for one store connection with pagination.
func (r *ProductRepository) ListByConnection(ctx context.Context, connectionID string, limit, offset int) ([]domain.Product, error) {
	var products []domain.Product
	if err := r.db.WithContext(ctx).
		Where("store_connection_id = ?", connectionID).
		Limit(limit).
		Offset(offset).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CountByConnection counts products owned by one store connection.
func (r *ProductRepository) CountByConnection(ctx context.Context, connectionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("store_connection_id = ?", connectionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteByConnection removes every product owned by a store connection. Used
// by disconnect-with-cascade.
func (r *ProductRepository) DeleteByConnection(ctx context.Context, connectionID string) error {
	return r.db.WithContext(ctx).
		Delete(&domain.Product{}, "store_connection_id = ?", connectionID).Error
}
