package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/db"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

const insertActivitySQL = `INSERT INTO user_activities (user_id, username_snapshot, event_code, message, created_at)
VALUES ($1, $2, $3, $4, $5)`

// Insert appends an activity using q. Inside a transaction the insert runs in
// a savepoint so a failed row leaves the outer transaction usable.
func Insert(ctx context.Context, q db.DBTX, a Activity) error {
	if tx, ok := q.(pgx.Tx); ok {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("audit: savepoint: %w", err)
		}
		if _, err := sp.Exec(ctx, insertActivitySQL, a.UserID, a.Username, string(a.EventCode), a.Message, a.CreatedAt); err != nil {
			_ = sp.Rollback(ctx)
			return fmt.Errorf("audit: insert activity: %w", err)
		}
		return sp.Commit(ctx)
	}
	if _, err := q.Exec(ctx, insertActivitySQL, a.UserID, a.Username, string(a.EventCode), a.Message, a.CreatedAt); err != nil {
		return fmt.Errorf("audit: insert activity: %w", err)
	}
	return nil
}

// TxWriter adapts a transaction handle to Writer.
type TxWriter struct {
	Q db.DBTX
}

// InsertActivity implements Writer.
func (w TxWriter) InsertActivity(ctx context.Context, a Activity) error {
	return Insert(ctx, w.Q, a)
}

// Filters narrows the activity listing.
type Filters struct {
	UserID *int64
	Page   shared.PageRequest
}

// Store reads the activity log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListActivities returns up to limit rows newest first.
func (s *Store) ListActivities(ctx context.Context, userID *int64, limit, offset int) ([]Activity, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_id, username_snapshot, event_code, message, created_at
FROM user_activities
WHERE ($1::bigint IS NULL OR user_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		var (
			a    Activity
			code string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Username, &code, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.EventCode = EventCode(code)
		out = append(out, a)
	}
	return out, rows.Err()
}
