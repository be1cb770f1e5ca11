package repo

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"

	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

var (
	folderFields  = []string{"id", "name", "created_by", "shared_with", "created_at"}
	noteFields    = []string{"id", "folder_id", "title", "content", "created_by", "created_by_name", "shared_with", "created_at", "updated_at"}
	commentFields = []string{"id", "note_id", "content", "created_by", "created_by_name", "created_at"}
)

func returning(fields []string) string {
	return " RETURNING " + strings.Join(fields, ", ")
}

func scanFolder(rows *sql.Rows) (model.Folder, error) {
	var folder model.Folder
	var shared pq.StringArray
	if err := rows.Scan(&folder.ID, &folder.Name, &folder.CreatedBy, &shared, &folder.CreatedAt); err != nil {
		return folder, err
	}
	folder.SharedWith = []string(shared)
	folder.CreatedAt = folder.CreatedAt.UTC()
	return folder, nil
}

func scanNote(rows *sql.Rows) (model.Note, error) {
	var note model.Note
	var folderID sql.NullString
	var shared pq.StringArray
	if err := rows.Scan(&note.ID, &folderID, &note.Title, &note.Content, &note.CreatedBy, &note.CreatedByName, &shared, &note.CreatedAt, &note.UpdatedAt); err != nil {
		return note, err
	}
	if folderID.Valid {
		id := folderID.String
		note.FolderID = &id
	}
	note.SharedWith = []string(shared)
	note.CreatedAt = note.CreatedAt.UTC()
	note.UpdatedAt = note.UpdatedAt.UTC()
	return note, nil
}

func scanComment(rows *sql.Rows) (model.Comment, error) {
	var comment model.Comment
	if err := rows.Scan(&comment.ID, &comment.NoteID, &comment.Content, &comment.CreatedBy, &comment.CreatedByName, &comment.CreatedAt); err != nil {
		return comment, err
	}
	comment.CreatedAt = comment.CreatedAt.UTC()
	return comment, nil
}

func collect[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()
	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func first[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) (*T, error) {
	items, err := collect(rows, scan)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}
