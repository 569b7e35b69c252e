package subscribers

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Postgres stores subscribers in the subscribers table created by the migrations.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open database.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Add(ctx context.Context, userID int64) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO subscribers (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return false, fmt.Errorf("subscribers: add %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("subscribers: add %d: %w", userID, err)
	}
	return n == 1, nil
}

func (p *Postgres) Remove(ctx context.Context, userID int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscribers WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("subscribers: remove %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("subscribers: remove %d: %w", userID, err)
	}
	return n == 1, nil
}

func (p *Postgres) IsMember(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := p.db.GetContext(ctx, &ok,
		`SELECT EXISTS (SELECT 1 FROM subscribers WHERE user_id = $1)`, userID)
	if err != nil {
		return false, fmt.Errorf("subscribers: check %d: %w", userID, err)
	}
	return ok, nil
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT count(*) FROM subscribers`); err != nil {
		return 0, fmt.Errorf("subscribers: count: %w", err)
	}
	return n, nil
}
