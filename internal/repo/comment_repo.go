package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/justnotes/internal/model"
	"github.com/xxxsen/justnotes/internal/pkg/dbutil"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

type CommentRepo struct {
	db *sql.DB
}

func NewCommentRepo(db *sql.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) Create(ctx context.Context, userID string, comment *model.Comment) (*model.Comment, error) {
	data := map[string]interface{}{
		"id":              comment.ID,
		"user_id":         userID,
		"note_id":         comment.NoteID,
		"content":         comment.Content,
		"created_by":      comment.CreatedBy,
		"created_by_name": comment.CreatedByName,
		"created_at":      comment.CreatedAt,
	}
	sqlStr, args, err := builder.BuildInsert("comments", []map[string]interface{}{data})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+returning(commentFields), args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return nil, appErr.ErrConflict
		}
		if dbutil.IsForeignKeyViolation(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return first(rows, scanComment)
}

func (r *CommentRepo) ListByNote(ctx context.Context, noteID string) ([]model.Comment, error) {
	where := map[string]interface{}{
		"note_id":  noteID,
		"_orderby": "created_at asc",
	}
	sqlStr, args, err := builder.BuildSelect("comments", where, commentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanComment)
}
