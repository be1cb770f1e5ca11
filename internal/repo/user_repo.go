package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/xxxsen/justnotes/internal/model"
	"github.com/xxxsen/justnotes/internal/pkg/dbutil"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Upsert records the principal and returns the row id owning its data. The
// email is the identity key, so a second provider signing in with the same
// email maps onto the existing row and keeps its id. New rows get a fresh
// id; the provider subject is not unique across providers.
func (r *UserRepo) Upsert(ctx context.Context, p *model.Principal) (string, error) {
	now := timeutil.NowUnix()
	sqlStr, args := dbutil.Finalize(`INSERT INTO users (id, email, name, picture, provider, ctime, mtime)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, picture = EXCLUDED.picture, provider = EXCLUDED.provider, mtime = EXCLUDED.mtime
RETURNING id`, []interface{}{uuid.NewString(), model.NormalizeEmail(p.Email), p.Name, p.Picture, p.Provider, now, now})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", sql.ErrNoRows
	}
	var id string
	if err := rows.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
