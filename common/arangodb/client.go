package arangodb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/arangodb/shared"
	"github.com/arangodb/go-driver/v2/connection"
)

const (
	CollectionWorkshops     = "workshops"
	CollectionWorkshopSteps = "workshop_steps"

	// IndexStepNumber keeps one step per number within a workshop, so two
	// processes seeding the same workshop cannot both insert a catalog.
	IndexStepNumber = "workshop_step_number"
)

type Client interface {
	// Setup operations
	EnsureDatabase(ctx context.Context) error
	EnsureCollections(ctx context.Context) error

	// Query runs an AQL statement. A single statement is applied atomically
	// on a single server, which is what batched workshop writes rely on.
	Query(ctx context.Context, query string, bindVars map[string]any) (Cursor, error)

	// Utility
	Close() error
}

// Cursor iterates over the documents returned by a query.
type Cursor interface {
	HasMore() bool
	ReadDocument(ctx context.Context, result any) error
	Close() error
}

type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

type client struct {
	conn         connection.Connection
	arangoClient arangodb.Client
	db           arangodb.Database
	cfg          Config
}

func New(ctx context.Context, cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	return &client{
		conn:         conn,
		arangoClient: arangodb.NewClient(conn),
		cfg:          cfg,
	}, nil
}

func (c *client) Close() error {
	return nil
}

func (c *client) EnsureDatabase(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arangoClient.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}

	if !exists {
		_, err = c.arangoClient.CreateDatabase(ctx, c.cfg.Database, nil)
		if err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		slog.InfoContext(ctx, "arangodb database created",
			"database", c.cfg.Database,
			"duration_ms", time.Since(start).Milliseconds())
	}

	db, err := c.arangoClient.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db

	return nil
}

func (c *client) EnsureCollections(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	for _, name := range []string{CollectionWorkshops, CollectionWorkshopSteps} {
		if err := c.ensureCollection(ctx, name); err != nil {
			return err
		}
	}

	return c.ensureStepNumberIndex(ctx)
}

func (c *client) ensureStepNumberIndex(ctx context.Context) error {
	col, err := c.db.GetCollection(ctx, CollectionWorkshopSteps, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", CollectionWorkshopSteps, err)
	}

	unique := true
	_, created, err := col.EnsurePersistentIndex(ctx, []string{"workshop_key", "step_number"}, &arangodb.CreatePersistentIndexOptions{
		Name:   IndexStepNumber,
		Unique: &unique,
	})
	if err != nil {
		return fmt.Errorf("ensure index %s: %w", IndexStepNumber, err)
	}
	if created {
		slog.InfoContext(ctx, "arangodb index created", "collection", CollectionWorkshopSteps, "index", IndexStepNumber)
	}
	return nil
}

func (c *client) ensureCollection(ctx context.Context, name string) error {
	exists, err := c.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s exists: %w", name, err)
	}
	if exists {
		return nil
	}

	colType := arangodb.CollectionTypeDocument
	_, err = c.db.CreateCollectionV2(ctx, name, &arangodb.CreateCollectionPropertiesV2{Type: &colType})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	slog.InfoContext(ctx, "arangodb collection created", "collection", name)

	return nil
}

func (c *client) Query(ctx context.Context, query string, bindVars map[string]any) (Cursor, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	start := time.Now()
	cur, err := c.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

	slog.DebugContext(ctx, "arangodb query executed",
		"duration_ms", time.Since(start).Milliseconds())

	return &cursor{cur: cur}, nil
}

type cursor struct {
	cur arangodb.Cursor
}

func (c *cursor) HasMore() bool {
	return c.cur.HasMore()
}

func (c *cursor) ReadDocument(ctx context.Context, result any) error {
	if _, err := c.cur.ReadDocument(ctx, result); err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	return nil
}

func (c *cursor) Close() error {
	return c.cur.Close()
}

// IsForbidden reports whether the server refused the request for lack of rights.
func IsForbidden(err error) bool {
	return shared.IsArangoErrorWithCode(err, http.StatusForbidden)
}

// IsConflict reports a unique constraint violation: a duplicate _key or a
// second step with the same number in one workshop.
func IsConflict(err error) bool {
	return shared.IsArangoErrorWithCode(err, http.StatusConflict) ||
		shared.IsArangoErrorWithErrorNum(err, shared.ErrArangoUniqueConstraintViolated)
}
