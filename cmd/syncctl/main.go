package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/syncline/marketsync/internal/config"
	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/logger"
	"github.com/syncline/marketsync/internal/marketplace"
	"github.com/syncline/marketsync/internal/marketplace/shopify"
	"github.com/syncline/marketsync/internal/marketplace/vtex"
	"github.com/syncline/marketsync/internal/queue"
	"github.com/syncline/marketsync/internal/repository"
	"github.com/syncline/marketsync/internal/service"
)

const usage = `Usage: syncctl <command> [flags]

Commands:
  test         Test marketplace credentials without persisting anything
  connect      Test credentials and create a store connection
  enqueue      Enqueue a sync job for a connection
  status       Show a sync job's status
  cancel       Request cancellation of a sync job
  refresh      Force-refresh a connection's catalog metadata cache
  disconnect   Remove a store connection
`

type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	registry *marketplace.Registry

	connections *repository.ConnectionRepository
	products    *repository.ProductRepository
	cache       *repository.CatalogCacheRepository
	queue       *queue.GormQueue
}

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "syncctl",
	})
	logger.SetDefaultLogger(appLogger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	registry := marketplace.NewRegistry()
	registry.Register(shopify.NewAdapter(&shopify.Config{
		APIVersion: cfg.Marketplaces.Shopify.APIVersion,
	}))
	registry.Register(vtex.NewAdapter(&vtex.Config{
		Environment: cfg.Marketplaces.VTEX.Environment,
	}))

	a := &app{
		cfg:         cfg,
		logger:      appLogger,
		registry:    registry,
		connections: repository.NewConnectionRepository(db),
		products:    repository.NewProductRepository(db),
		cache:       repository.NewCatalogCacheRepository(db),
		queue:       queue.NewGormQueue(repository.NewSyncJobRepository(db)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "test":
		err = a.runTest(ctx, os.Args[2:])
	case "connect":
		err = a.runConnect(ctx, os.Args[2:])
	case "enqueue":
		err = a.runEnqueue(ctx, os.Args[2:])
	case "status":
		err = a.runStatus(ctx, os.Args[2:])
	case "cancel":
		err = a.runCancel(ctx, os.Args[2:])
	case "refresh":
		err = a.runRefresh(ctx, os.Args[2:])
	case "disconnect":
		err = a.runDisconnect(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		appLogger.WithError(err).Fatal("Command failed")
	}
}

// parseCredentials turns "key=value,key=value" into a credential bundle.
func parseCredentials(raw string) (domain.Credentials, error) {
	creds := domain.Credentials{}
	if raw == "" {
		return creds, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed credential pair %q", pair)
		}
		creds[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return creds, nil
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func (a *app) connectionService() *service.ConnectionService {
	return service.NewConnectionService(a.connections, a.products, a.cache, a.registry, a.logger)
}

func (a *app) metadataService() *service.MetadataService {
	return service.NewMetadataService(a.connections, a.cache, a.registry, a.logger, &service.MetadataConfig{
		TTLHours:       a.cfg.Cache.TTLHours,
		ProbeBatchSize: a.cfg.Cache.ProbeBatchSize,
	})
}

func (a *app) runTest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	marketplaceType := fs.String("marketplace", "", "Marketplace type (shopify, vtex)")
	credsRaw := fs.String("credentials", "", "Credentials as key=value,key=value")
	fs.Parse(args)

	creds, err := parseCredentials(*credsRaw)
	if err != nil {
		return err
	}

	result, err := a.connectionService().Test(ctx, domain.MarketplaceType(*marketplaceType), creds)
	if err != nil {
		return err
	}
	printJSON(result)
	return nil
}

func (a *app) runConnect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	workspaceID := fs.String("workspace", "", "Workspace ID")
	marketplaceType := fs.String("marketplace", "", "Marketplace type (shopify, vtex)")
	credsRaw := fs.String("credentials", "", "Credentials as key=value,key=value")
	displayName := fs.String("name", "", "Display name for the connection")
	fs.Parse(args)

	creds, err := parseCredentials(*credsRaw)
	if err != nil {
		return err
	}

	conn, err := a.connectionService().Connect(ctx, *workspaceID, domain.MarketplaceType(*marketplaceType), creds, *displayName)
	if err != nil {
		return err
	}
	printJSON(conn)
	return nil
}

func (a *app) runEnqueue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	workspaceID := fs.String("workspace", "", "Workspace ID")
	connectionID := fs.String("connection", "", "Store connection ID")
	force := fs.Bool("force", false, "Re-sync items even when unchanged")
	active := fs.Bool("active", false, "Only include active products")
	inactive := fs.Bool("inactive", false, "Only include inactive products")
	brands := fs.String("brands", "", "Comma-separated brand IDs")
	categories := fs.String("categories", "", "Comma-separated category IDs")
	createdAfter := fs.String("created-after", "", "Only products created after this RFC3339 timestamp")
	fs.Parse(args)

	filters := domain.ProductSyncFilters{
		IncludeActive:   *active,
		IncludeInactive: *inactive,
	}
	if *brands != "" {
		filters.BrandIDs = strings.Split(*brands, ",")
	}
	if *categories != "" {
		filters.CategoryIDs = strings.Split(*categories, ",")
	}
	if *createdAfter != "" {
		t, err := time.Parse(time.RFC3339, *createdAfter)
		if err != nil {
			return fmt.Errorf("invalid -created-after: %w", err)
		}
		filters.CreatedAfter = &t
	}

	jobID, err := a.queue.Enqueue(ctx, queue.SyncRequest{
		WorkspaceID:       *workspaceID,
		StoreConnectionID: *connectionID,
		Filters:           filters,
		Force:             *force,
	}, queue.EnqueueOptions{})
	if err != nil {
		return err
	}

	fmt.Println(jobID)
	return nil
}

func (a *app) runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jobID := fs.String("job", "", "Sync job ID")
	fs.Parse(args)

	view, err := a.queue.GetStatus(ctx, *jobID)
	if err != nil {
		return err
	}
	printJSON(view)
	return nil
}

func (a *app) runCancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	jobID := fs.String("job", "", "Sync job ID")
	fs.Parse(args)

	return a.queue.Cancel(ctx, *jobID)
}

func (a *app) runRefresh(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	connectionID := fs.String("connection", "", "Store connection ID")
	kind := fs.String("kind", "category", "Catalog kind (category, brand)")
	fs.Parse(args)

	items, err := a.metadataService().Get(ctx, *connectionID, domain.CacheKind(*kind), true)
	if err != nil {
		return err
	}
	printJSON(items)
	return nil
}

func (a *app) runDisconnect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("disconnect", flag.ExitOnError)
	connectionID := fs.String("connection", "", "Store connection ID")
	purge := fs.Bool("purge-products", false, "Also delete the connection's synced products")
	fs.Parse(args)

	return a.connectionService().Disconnect(ctx, *connectionID, *purge)
}
