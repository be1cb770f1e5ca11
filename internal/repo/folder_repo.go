package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/justnotes/internal/model"
	"github.com/xxxsen/justnotes/internal/pkg/dbutil"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

type FolderRepo struct {
	db *sql.DB
}

func NewFolderRepo(db *sql.DB) *FolderRepo {
	return &FolderRepo{db: db}
}

func visibleTo(email string) interface{} {
	return builder.Custom("(created_by = ? OR ? = ANY(shared_with))", email, email)
}

func (r *FolderRepo) Create(ctx context.Context, userID string, folder *model.Folder) (*model.Folder, error) {
	data := map[string]interface{}{
		"id":         folder.ID,
		"user_id":    userID,
		"name":       folder.Name,
		"created_by": folder.CreatedBy,
		"created_at": folder.CreatedAt,
	}
	sqlStr, args, err := builder.BuildInsert("folders", []map[string]interface{}{data})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+returning(folderFields), args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return nil, appErr.ErrConflict
		}
		return nil, err
	}
	return first(rows, scanFolder)
}

func (r *FolderRepo) ListVisible(ctx context.Context, email string) ([]model.Folder, error) {
	where := map[string]interface{}{
		"_custom_visible": visibleTo(email),
		"_orderby":        "created_at asc",
	}
	sqlStr, args, err := builder.BuildSelect("folders", where, folderFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanFolder)
}

func (r *FolderRepo) GetVisible(ctx context.Context, id, email string) (*model.Folder, error) {
	where := map[string]interface{}{
		"id":              id,
		"_custom_visible": visibleTo(email),
	}
	sqlStr, args, err := builder.BuildSelect("folders", where, folderFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return first(rows, scanFolder)
}

// Delete removes a folder created by email. Contained notes and their
// comments go with it through the foreign keys.
func (r *FolderRepo) Delete(ctx context.Context, id, email string) error {
	where := map[string]interface{}{"id": id, "created_by": email}
	sqlStr, args, err := builder.BuildDelete("folders", where)
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

// Share appends email to the folder's shared_with list in one statement.
// changed is false when email was already present.
func (r *FolderRepo) Share(ctx context.Context, id, actor, email string) (*model.Folder, bool, error) {
	return shareRow(ctx, r.db, "folders", folderFields, scanFolder, id, actor, email, r.GetVisible)
}

func shareRow[T any](ctx context.Context, db *sql.DB, table string, fields []string, scan func(*sql.Rows) (T, error),
	id, actor, email string, get func(ctx context.Context, id, email string) (*T, error)) (*T, bool, error) {
	query := "UPDATE " + table + " SET shared_with = array_append(shared_with, ?)" +
		" WHERE id = ? AND (created_by = ? OR ? = ANY(shared_with)) AND NOT (? = ANY(shared_with))" +
		returning(fields)
	sqlStr, args := dbutil.Finalize(query, []interface{}{email, id, actor, actor, email})
	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, false, err
	}
	item, err := first(rows, scan)
	if err == nil {
		return item, true, nil
	}
	if !appErr.IsNotFound(err) {
		return nil, false, err
	}
	item, err = get(ctx, id, actor)
	if err != nil {
		return nil, false, err
	}
	return item, false, nil
}
