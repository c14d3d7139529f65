package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	// Postgres driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/postmarket/postmarket/internal/storage"
	"github.com/pressly/goose/v3"
)

var _ storage.Storage = (*Storage)(nil)

type Storage struct {
	db *sql.DB
}

type Config struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

type Option func(s *Config)

func WithMaxOpenConns(conns int) Option {
	return func(c *Config) {
		c.maxOpenConns = conns
	}
}

func WithMaxIdleConns(conns int) Option {
	return func(c *Config) {
		c.maxIdleConns = conns
	}
}

func WithConnMaxIdleTime(idleTime time.Duration) Option {
	return func(c *Config) {
		c.connMaxIdleTime = idleTime
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *Config) {
		c.connMaxLifetime = lifetime
	}
}

func NewStorage(connStr string, opts ...Option) (*Storage, error) {
	cfg := &Config{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxIdleTime: 180 * time.Second,
		connMaxLifetime: 3600 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)

	return &Storage{
		db: db,
	}, nil
}

func (s *Storage) Bootstrap(ctx context.Context) error {
	provider, err := goose.NewProvider(
		goose.DialectPostgres,
		s.db,
		os.DirFS("internal/storage/pgstorage/migrations"),
	)
	if err != nil {
		return fmt.Errorf("goose.NewProvider: %w", err)
	}

	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("provider.Up: %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

// isRetryableError checks if error is retryable.
func isRetryableError(err error) bool {
	// Connection refused error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return true
	}

	return false
}

// WithRetry retries operations in case of retryable errors.
func WithRetry(operation func() error) error {
	// Retry count
	retryCount := 3

	// Initial retry wait time
	var retryWaitTime time.Duration

	// Define the interval between retries
	retryWaitInterval := 2

	var err error

	for i := 0; i < retryCount; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if isRetryableError(err) {
			retryWaitTime = time.Duration((i*retryWaitInterval + 1)) * time.Second // 1s, 3s, 5s, etc.

			time.Sleep(retryWaitTime)
		} else {
			return fmt.Errorf("%w", err)
		}
	}

	return fmt.Errorf("retry attempts exceeded: %w", err)
}

func (s *Storage) Ping(ctx context.Context) error {
	err := WithRetry(func() error {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.PingContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}
