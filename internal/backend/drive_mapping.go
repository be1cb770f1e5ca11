package backend

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	drivev3 "google.golang.org/api/drive/v3"

	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

const (
	propCreatedBy     = "createdBy"
	propCreatedByName = "createdByName"
	propNoteTitle     = "noteTitle"

	noteExt = ".txt"
)

func noteFileName(title string) string {
	return title + noteExt
}

func commentsFileName(noteID string) string {
	return ".comments_" + noteID + ".json"
}

// commentsFile is the sidecar body holding one note's comments.
type commentsFile struct {
	Comments []model.Comment `json:"comments"`
}

func parseRemoteTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad %s %q", appErr.ErrMalformed, field, value)
	}
	return t.UTC(), nil
}

// creatorOf reads the creator property, falling back to the file owner.
func creatorOf(f *drivev3.File) (string, error) {
	if v := strings.TrimSpace(f.Properties[propCreatedBy]); v != "" {
		return v, nil
	}
	if len(f.Owners) > 0 && f.Owners[0].EmailAddress != "" {
		return f.Owners[0].EmailAddress, nil
	}
	return "", fmt.Errorf("%w: file %s has no creator", appErr.ErrMalformed, f.Id)
}

func folderFromFile(f *drivev3.File) (*model.Folder, error) {
	if f == nil || f.Id == "" {
		return nil, fmt.Errorf("%w: folder without id", appErr.ErrMalformed)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("%w: folder %s without name", appErr.ErrMalformed, f.Id)
	}
	createdBy, err := creatorOf(f)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseRemoteTime("createdTime", f.CreatedTime)
	if err != nil {
		return nil, err
	}
	return &model.Folder{
		ID:        f.Id,
		Name:      f.Name,
		RemoteID:  f.Id,
		CreatedAt: createdAt,
		CreatedBy: createdBy,
	}, nil
}

func noteFromFile(f *drivev3.File, folderID *string, content string) (*model.Note, error) {
	if f == nil || f.Id == "" {
		return nil, fmt.Errorf("%w: note without id", appErr.ErrMalformed)
	}
	title := f.Properties[propNoteTitle]
	if title == "" {
		title = strings.TrimSuffix(f.Name, noteExt)
	}
	createdBy, err := creatorOf(f)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseRemoteTime("createdTime", f.CreatedTime)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseRemoteTime("modifiedTime", f.ModifiedTime)
	if err != nil {
		return nil, err
	}
	return &model.Note{
		ID:            f.Id,
		FolderID:      folderID,
		Title:         title,
		Content:       content,
		RemoteID:      f.Id,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		CreatedBy:     createdBy,
		CreatedByName: f.Properties[propCreatedByName],
	}, nil
}

func decodeMetadata(data []byte) (*model.WorkspaceMetadata, error) {
	meta := &model.WorkspaceMetadata{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("%w: decode workspace metadata: %w", appErr.ErrMalformed, err)
	}
	return meta, nil
}

func validComment(c *model.Comment, noteID string) error {
	if c.ID == "" || c.CreatedBy == "" || c.CreatedAt.IsZero() {
		return fmt.Errorf("%w: comment missing id, author or time", appErr.ErrMalformed)
	}
	if c.NoteID != noteID {
		return fmt.Errorf("%w: comment %s belongs to note %s", appErr.ErrMalformed, c.ID, c.NoteID)
	}
	return nil
}

func decodeComments(data []byte) (*commentsFile, error) {
	out := &commentsFile{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("%w: decode comments: %w", appErr.ErrMalformed, err)
	}
	return out, nil
}
