package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier abstracts the subset of pgxpool.Pool used by PostgresStore.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// MigrationPool is the minimal interface required to run migrations.
// *pgxpool.Pool satisfies this interface.
type MigrationPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps state records in the state_records JSONB table.
type PostgresStore struct {
	q         Querier
	namespace string
}

// NewPostgresStore constructs a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, namespace string) *PostgresStore {
	return &PostgresStore{q: pool, namespace: namespace}
}

// NewPostgresStoreWithQuerier constructs a PostgresStore with a custom Querier (for tests).
func NewPostgresStoreWithQuerier(q Querier, namespace string) *PostgresStore {
	return &PostgresStore{q: q, namespace: namespace}
}

// ConnectPostgres opens a pool tagged with the service's application_name
// and fails fast when the database cannot be reached.
func ConnectPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = "geoweather"
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) Load(ctx context.Context, key string, dst any) (bool, error) {
	const q = `SELECT value FROM state_records WHERE key = $1`

	var raw []byte
	if err := s.q.QueryRow(ctx, q, namespaced(s.namespace, key)).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("querying state record %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("unmarshaling state record %s: %w", key, err)
	}

	return true, nil
}

// Save upserts the JSON encoding of v under key.
func (s *PostgresStore) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling state record %s: %w", key, err)
	}

	const q = `
		INSERT INTO state_records (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value      = EXCLUDED.value,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := s.q.Exec(ctx, q, namespaced(s.namespace, key), raw); err != nil {
		return fmt.Errorf("upserting state record %s: %w", key, err)
	}

	return nil
}

// RunMigrations applies the .sql files in migrationsDir. See ApplyMigrations.
func RunMigrations(ctx context.Context, pool MigrationPool, migrationsDir string) error {
	if err := ApplyMigrations(ctx, pool, os.DirFS(migrationsDir)); err != nil {
		return fmt.Errorf("migrations in %s: %w", migrationsDir, err)
	}
	return nil
}

// ApplyMigrations executes every .sql file at the root of fsys in file name
// order, each inside its own transaction. Migrations must be idempotent: they
// run again on every start.
func ApplyMigrations(ctx context.Context, pool MigrationPool, fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}

		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", e.Name(), err)
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, string(body))
			return err
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", e.Name(), err)
		}
	}

	return nil
}
