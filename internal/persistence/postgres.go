package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB implements the Database interface for PostgreSQL.
type PostgresDB struct {
	db          *sql.DB
	newsletters NewsletterRepository
	users       UserRepository
}

var _ Database = (*PostgresDB)(nil)

// NewPostgresDB opens a connection pool, verifies it, and ensures the schema
// exists.
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{db: db}
	pgDB.newsletters = &postgresNewsletterRepo{db: db}
	pgDB.users = &postgresUserRepo{db: db}

	if err := pgDB.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return pgDB, nil
}

// migrate creates the tables when they do not exist yet.
func (p *PostgresDB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			hashed_password TEXT NOT NULL,
			is_subscribed BOOLEAN NOT NULL DEFAULT FALSE,
			stripe_customer_id TEXT NOT NULL DEFAULT '',
			stripe_subscription_id TEXT NOT NULL DEFAULT '',
			subscription_status TEXT NOT NULL DEFAULT '',
			subscription_end TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS newsletters (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_newsletters_created_at ON newsletters (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_users_stripe_customer_id ON users (stripe_customer_id)`,
	}

	for _, statement := range statements {
		if _, err := p.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}

	return nil
}

// Newsletters returns the newsletter repository.
func (p *PostgresDB) Newsletters() NewsletterRepository { return p.newsletters }

// Users returns the user repository.
func (p *PostgresDB) Users() UserRepository { return p.users }

// Ping verifies the database connection.
func (p *PostgresDB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Close closes the connection pool.
func (p *PostgresDB) Close() error { return p.db.Close() }
