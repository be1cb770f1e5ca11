package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/justnotes/internal/model"
	"github.com/xxxsen/justnotes/internal/pkg/dbutil"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

type NoteRepo struct {
	db *sql.DB
}

func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

func (r *NoteRepo) Create(ctx context.Context, userID string, note *model.Note) (*model.Note, error) {
	data := map[string]interface{}{
		"id":              note.ID,
		"user_id":         userID,
		"title":           note.Title,
		"content":         note.Content,
		"created_by":      note.CreatedBy,
		"created_by_name": note.CreatedByName,
		"created_at":      note.CreatedAt,
		"updated_at":      note.UpdatedAt,
	}
	if note.FolderID != nil {
		data["folder_id"] = *note.FolderID
	}
	sqlStr, args, err := builder.BuildInsert("notes", []map[string]interface{}{data})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+returning(noteFields), args)
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
	return first(rows, scanNote)
}

func (r *NoteRepo) list(ctx context.Context, where map[string]interface{}) ([]model.Note, error) {
	where["_orderby"] = "updated_at desc"
	sqlStr, args, err := builder.BuildSelect("notes", where, noteFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNote)
}

// ListVisible returns the notes email created or was directly shared on.
func (r *NoteRepo) ListVisible(ctx context.Context, email string) ([]model.Note, error) {
	return r.list(ctx, map[string]interface{}{"_custom_visible": visibleTo(email)})
}

func (r *NoteRepo) ListByFolder(ctx context.Context, folderID string) ([]model.Note, error) {
	return r.list(ctx, map[string]interface{}{"folder_id": folderID})
}

func (r *NoteRepo) GetVisible(ctx context.Context, id, email string) (*model.Note, error) {
	notes, err := r.list(ctx, map[string]interface{}{"id": id, "_custom_visible": visibleTo(email)})
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &notes[0], nil
}

func (r *NoteRepo) Update(ctx context.Context, id, email, title, content string, updatedAt time.Time) (*model.Note, error) {
	where := map[string]interface{}{"id": id, "created_by": email}
	update := map[string]interface{}{
		"title":      title,
		"content":    content,
		"updated_at": updatedAt,
	}
	sqlStr, args, err := builder.BuildUpdate("notes", where, update)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+returning(noteFields), args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return first(rows, scanNote)
}

func (r *NoteRepo) Delete(ctx context.Context, id, email string) error {
	where := map[string]interface{}{"id": id, "created_by": email}
	sqlStr, args, err := builder.BuildDelete("notes", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *NoteRepo) Share(ctx context.Context, id, actor, email string) (*model.Note, bool, error) {
	return shareRow(ctx, r.db, "notes", noteFields, scanNote, id, actor, email, r.GetVisible)
}

// Get loads a note without a visibility filter.
func (r *NoteRepo) Get(ctx context.Context, id string) (*model.Note, error) {
	notes, err := r.list(ctx, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &notes[0], nil
}
