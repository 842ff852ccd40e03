package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/eapache/go-resiliency/retrier"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

const (
	// MaxHealthCheckRetries is the maximum number of retries for the health check.
	MaxHealthCheckRetries = 3

	healthCheckBackoff = 100 * time.Millisecond
	maxExecutionTime   = 60
)

// Config represents the configuration for the ClickHouse client.
type Config struct {
	Hosts           []string
	Database        string
	Username        string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	// AsyncInsert lets the server buffer small inserts, which suits the archive's frequent small batches.
	AsyncInsert bool
	Debug       bool
}

// Client represents a ClickHouse client.
type Client struct {
	conn driver.Conn
}

// healthCheck pings the server with exponential backoff.
func healthCheck(ctx context.Context, conn driver.Conn) error {
	r := retrier.New(retrier.ExponentialBackoff(MaxHealthCheckRetries-1, healthCheckBackoff), nil)
	return r.RunCtx(ctx, conn.Ping)
}

// New creates a new ClickHouse client.
func New(ctx context.Context, cfg *Config) (*Client, error) {
	options := &clickhouse.Options{
		Addr: cfg.Hosts,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: settings(cfg),
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:     cfg.DialTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		Debug:           cfg.Debug,
		Debugf:          loggerpkg.FromContext(ctx).Sugar().Debugf,
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{
					Name:    svcpkg.Info().GetName(),
					Version: svcpkg.Info().GetVersion(),
				},
			},
		},
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to open clickhouse connection: %v", err)
	}

	c := &Client{
		conn: conn,
	}

	if err := healthCheck(ctx, conn); err != nil {
		//nolint:errcheck // already failing
		_ = conn.Close()
		return nil, status.Errorf(codes.Unavailable, "initial health check failed: %v", err)
	}

	return c, nil
}

func settings(cfg *Config) clickhouse.Settings {
	s := clickhouse.Settings{
		"max_execution_time": maxExecutionTime,
	}
	if cfg.AsyncInsert {
		s["async_insert"] = 1
		s["wait_for_async_insert"] = 1
	}
	return s
}

// Close closes the ClickHouse connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Exec executes a query without returning any rows.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	return c.conn.Exec(ctx, query, args...)
}

// Query executes a query that returns rows.
func (c *Client) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return c.conn.Query(ctx, query, args...)
}

// BatchInsert prepares a batch for query, lets prepareFn append the rows and sends it.
func (c *Client) BatchInsert(ctx context.Context, query string, prepareFn func(batch driver.Batch) error) error {
	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to prepare batch: %v", err)
	}

	if err := prepareFn(batch); err != nil {
		//nolint:errcheck // already failing
		_ = batch.Abort()
		return status.Errorf(codes.Internal, "failed to prepare batch data: %v", err)
	}

	if err := batch.Send(); err != nil {
		return status.Errorf(codes.Internal, "failed to send batch: %v", err)
	}

	return nil
}
