package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"gazette/internal/core"
)

// psql builds queries with Postgres-style $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type postgresNewsletterRepo struct {
	db *sql.DB
}

var _ NewsletterRepository = (*postgresNewsletterRepo)(nil)

func (r *postgresNewsletterRepo) Create(ctx context.Context, newsletter *core.Newsletter) error {
	query, args, err := psql.Insert("newsletters").
		Columns("id", "title", "content", "created_at").
		Values(newsletter.ID, newsletter.Title, newsletter.Content, newsletter.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build newsletter insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert newsletter: %w", err)
	}

	return nil
}

func (r *postgresNewsletterRepo) Get(ctx context.Context, id string) (*core.Newsletter, error) {
	query, args, err := psql.Select("id", "title", "content", "created_at").
		From("newsletters").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build newsletter select: %w", err)
	}

	var newsletter core.Newsletter
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&newsletter.ID, &newsletter.Title, &newsletter.Content, &newsletter.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query newsletter: %w", err)
	}

	return &newsletter, nil
}

func (r *postgresNewsletterRepo) ListRecent(ctx context.Context, limit int) ([]core.Newsletter, error) {
	query, args, err := psql.Select("id", "title", "content", "created_at").
		From("newsletters").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build newsletter list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query newsletters: %w", err)
	}
	defer rows.Close()

	var newsletters []core.Newsletter
	for rows.Next() {
		var newsletter core.Newsletter
		if err := rows.Scan(&newsletter.ID, &newsletter.Title, &newsletter.Content, &newsletter.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan newsletter: %w", err)
		}
		newsletters = append(newsletters, newsletter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return newsletters, nil
}

type postgresUserRepo struct {
	db *sql.DB
}

var _ UserRepository = (*postgresUserRepo)(nil)

var userColumns = []string{
	"id", "email", "hashed_password", "is_subscribed",
	"stripe_customer_id", "stripe_subscription_id",
	"subscription_status", "subscription_end",
	"created_at", "updated_at",
}

func (r *postgresUserRepo) Create(ctx context.Context, user *core.User) error {
	query, args, err := psql.Insert("users").
		Columns("id", "email", "hashed_password", "is_subscribed", "created_at", "updated_at").
		Values(user.ID, user.Email, user.HashedPassword, user.IsSubscribed, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *postgresUserRepo) Get(ctx context.Context, id string) (*core.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *postgresUserRepo) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.getOne(ctx, sq.Eq{"email": email})
}

func (r *postgresUserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*core.User, error) {
	return r.getOne(ctx, sq.Eq{"stripe_customer_id": customerID})
}

func (r *postgresUserRepo) getOne(ctx context.Context, pred sq.Eq) (*core.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user select: %w", err)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

func (r *postgresUserRepo) List(ctx context.Context) ([]core.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return users, nil
}

func (r *postgresUserRepo) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	query, args, err := psql.Update("users").
		Set("stripe_customer_id", customerID).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build customer update: %w", err)
	}

	return r.execExpectingRow(ctx, query, args)
}

func (r *postgresUserRepo) UpdateSubscription(ctx context.Context, customerID, subscriptionID, status string) error {
	query, args, err := psql.Update("users").
		Set("stripe_subscription_id", subscriptionID).
		Set("subscription_status", status).
		Set("is_subscribed", status == "active").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"stripe_customer_id": customerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build subscription update: %w", err)
	}

	return r.execExpectingRow(ctx, query, args)
}

func (r *postgresUserRepo) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user delete: %w", err)
	}

	return r.execExpectingRow(ctx, query, args)
}

func (r *postgresUserRepo) execExpectingRow(ctx context.Context, query string, args []interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*core.User, error) {
	var user core.User
	var subscriptionEnd sql.NullTime
	err := row.Scan(
		&user.ID, &user.Email, &user.HashedPassword, &user.IsSubscribed,
		&user.StripeCustomerID, &user.StripeSubscriptionID,
		&user.SubscriptionStatus, &subscriptionEnd,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if subscriptionEnd.Valid {
		user.SubscriptionEnd = subscriptionEnd.Time
	}
	return &user, nil
}
