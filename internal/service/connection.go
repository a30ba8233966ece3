package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/logger"
	"github.com/syncline/marketsync/internal/marketplace"
	"github.com/syncline/marketsync/internal/repository"
)

// ErrConnectionTestFailed is returned by Connect when the marketplace
// rejects the supplied credentials.
var ErrConnectionTestFailed = errors.New("connection test failed")

// ConnectionService manages the lifecycle of store connections: credential
// testing, creation, and disconnect with optional data cleanup.
type ConnectionService struct {
	connections *repository.ConnectionRepository
	products    *repository.ProductRepository
	cache       *repository.CatalogCacheRepository
	registry    *marketplace.Registry
	logger      *logger.Logger
}

// NewConnectionService creates a new connection service.
func NewConnectionService(
	connections *repository.ConnectionRepository,
	products *repository.ProductRepository,
	cache *repository.CatalogCacheRepository,
	registry *marketplace.Registry,
	log *logger.Logger,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		products:    products,
		cache:       cache,
		registry:    registry,
		logger:      log,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *ConnectionService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Test checks the given credentials against the marketplace without
// persisting anything.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - marketplaceType: which marketplace to test against.
//   - creds: marketplace-specific credential bundle.
// Returns:
//   - marketplace.ConnectionTestResult: outcome with a human-readable message.
//   - error: non-nil only when the marketplace type is unknown.
func (s *ConnectionService) Test(ctx context.Context, marketplaceType domain.MarketplaceType, creds domain.Credentials) (marketplace.ConnectionTestResult, error) {
	adapter, err := s.registry.Get(marketplaceType)
	if err != nil {
		return marketplace.ConnectionTestResult{}, err
	}
	return adapter.TestConnection(ctx, creds), nil
}

// Connect tests the credentials and, on success, persists a new store
// connection for the workspace. A failed test creates nothing.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - workspaceID: owning workspace.
//   - marketplaceType: which marketplace the connection targets.
//   - creds: marketplace-specific credential bundle.
//   - displayName: label shown to the workspace; defaults from test metadata.
// Returns:
//   - *domain.StoreConnection: the persisted connection.
//   - error: ErrConnectionTestFailed when credentials are rejected.
func (s *ConnectionService) Connect(ctx context.Context, workspaceID string, marketplaceType domain.MarketplaceType, creds domain.Credentials, displayName string) (*domain.StoreConnection, error) {
	adapter, err := s.registry.Get(marketplaceType)
	if err != nil {
		return nil, err
	}

	result := adapter.TestConnection(ctx, creds)
	if !result.Success {
		s.log(ctx).WithFields(logger.Fields{
			logger.FieldWorkspaceID: workspaceID,
			logger.FieldMarketplace: string(marketplaceType),
			"message":               result.Message,
		}).Warn("Connection test failed")
		return nil, fmt.Errorf("%w: %s", ErrConnectionTestFailed, result.Message)
	}

	if displayName == "" {
		displayName = result.Metadata["shop_name"]
	}
	if displayName == "" {
		displayName = string(marketplaceType)
	}

	conn := &domain.StoreConnection{
		ID:              uuid.New().String(),
		WorkspaceID:     workspaceID,
		MarketplaceType: marketplaceType,
		Credentials:     creds,
		DisplayName:     displayName,
		SyncStatus:      domain.SyncStatusPending,
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldWorkspaceID:  workspaceID,
		logger.FieldConnectionID: conn.ID,
		logger.FieldMarketplace:  string(marketplaceType),
	}).Info("Store connected")

	return conn, nil
}

// Get returns one connection by ID.
func (s *ConnectionService) Get(ctx context.Context, id string) (*domain.StoreConnection, error) {
	return s.connections.GetByID(ctx, id)
}

// List returns all connections in a workspace.
func (s *ConnectionService) List(ctx context.Context, workspaceID string) ([]domain.StoreConnection, error) {
	return s.connections.ListByWorkspace(ctx, workspaceID)
}

// Disconnect removes a store connection. Catalog caches are always dropped;
// when purgeProducts is set the connection's synced products are deleted as
// well, otherwise they remain in the workspace as orphans.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: connection to remove.
//   - purgeProducts: also delete the products this connection synced.
// Returns:
//   - error: non-nil if any deletion fails.
func (s *ConnectionService) Disconnect(ctx context.Context, id string, purgeProducts bool) error {
	if _, err := s.connections.GetByID(ctx, id); err != nil {
		return fmt.Errorf("connection not found: %w", err)
	}

	if err := s.cache.DeleteByConnection(ctx, id); err != nil {
		return fmt.Errorf("failed to delete catalog caches: %w", err)
	}

	if purgeProducts {
		if err := s.products.DeleteByConnection(ctx, id); err != nil {
			return fmt.Errorf("failed to delete products: %w", err)
		}
	}

	if err := s.connections.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldConnectionID: id,
		"purged_products":        purgeProducts,
	}).Info("Store disconnected")

	return nil
}
