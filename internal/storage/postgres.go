package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/iharalondon/storefront/internal/config"
)

// Postgres is a Store backed by a PostgreSQL blobs table, the server-side
// backend for order and subscriber records.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a new PostgreSQL-backed store
func NewPostgres(cfg config.PostgresConfig) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS blobs (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (namespace, key)
		);
	`
	_, err := p.db.Exec(schema)
	return err
}

func (p *Postgres) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM blobs WHERE namespace = $1 AND key = $2`, namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get failed: %w", err)
	}
	return value, nil
}

func (p *Postgres) Put(ctx context.Context, namespace, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO blobs (namespace, key, value, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("postgres put failed: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, namespace, key string) error {
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM blobs WHERE namespace = $1 AND key = $2`, namespace, key,
	); err != nil {
		return fmt.Errorf("postgres delete failed: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT key, value FROM blobs WHERE namespace = $1`, namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres list failed: %w", err)
	}
	defer rows.Close()

	out := map[string][]byte{}
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }

// Open selects and initializes the configured backend.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "redis":
		return NewRedis(cfg.RedisURL)
	case "postgres":
		return NewPostgres(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
