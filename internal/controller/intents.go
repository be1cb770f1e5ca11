package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
	"github.com/xxxsen/justnotes/internal/state"
)

func (c *Controller) CreateFolder(ctx context.Context, name string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, c.fail(ctx, "create_folder", fmt.Errorf("%w: folder name required", appErr.ErrInvalid))
	}
	ctx, done := c.task(ctx)
	defer done()
	folder, err := c.backend.CreateFolder(ctx, name)
	if err != nil {
		return nil, c.fail(ctx, "create_folder", err)
	}
	if !c.dispatch(ctx, state.FolderCreated{Folder: *folder}) {
		return nil, appErr.ErrNotSignedIn
	}
	return folder, nil
}

func (c *Controller) DeleteFolder(ctx context.Context, folderID string) error {
	ctx, done := c.task(ctx)
	defer done()
	if err := c.backend.DeleteFolder(ctx, folderID); err != nil {
		return c.fail(ctx, "delete_folder", err)
	}
	if !c.dispatch(ctx, state.FolderDeleted{FolderID: folderID}) {
		return appErr.ErrNotSignedIn
	}
	return nil
}

// CreateNote creates a note in folderID, or at the root when nil. An
// empty title becomes the default title.
func (c *Controller) CreateNote(ctx context.Context, folderID *string, title, content string) (*model.Note, error) {
	if strings.TrimSpace(title) == "" {
		title = model.DefaultNoteTitle
	}
	ctx, done := c.task(ctx)
	defer done()
	note, err := c.backend.CreateNote(ctx, folderID, title, content)
	if err != nil {
		return nil, c.fail(ctx, "create_note", err)
	}
	if !c.dispatch(ctx, state.NoteCreated{Note: *note}) {
		return nil, appErr.ErrNotSignedIn
	}
	return note, nil
}

func (c *Controller) SaveNote(ctx context.Context, noteID, title, content string) (*model.Note, error) {
	var note *model.Note
	for _, item := range c.State().Notes {
		if item.ID == noteID {
			note = &item
			break
		}
	}
	if note == nil {
		return nil, c.fail(ctx, "save_note", fmt.Errorf("%w: note %s", appErr.ErrNotFound, noteID))
	}
	if strings.TrimSpace(title) == "" {
		title = model.DefaultNoteTitle
	}
	note.Title = title
	note.Content = content
	note.UpdatedAt = timeutil.After(note.UpdatedAt, timeutil.Now())

	ctx, done := c.task(ctx)
	defer done()
	saved, err := c.backend.UpdateNote(ctx, note)
	if err != nil {
		return nil, c.fail(ctx, "save_note", err)
	}
	if !c.dispatch(ctx, state.NoteUpdated{Note: *saved}) {
		return nil, appErr.ErrNotSignedIn
	}
	return saved, nil
}

func (c *Controller) DeleteNote(ctx context.Context, noteID string) error {
	ctx, done := c.task(ctx)
	defer done()
	if err := c.backend.DeleteNote(ctx, noteID); err != nil {
		return c.fail(ctx, "delete_note", err)
	}
	if !c.dispatch(ctx, state.NoteDeleted{NoteID: noteID}) {
		return appErr.ErrNotSignedIn
	}
	return nil
}

// AddComment assigns the comment id locally before the remote write.
func (c *Controller) AddComment(ctx context.Context, noteID, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, c.fail(ctx, "add_comment", fmt.Errorf("%w: comment is empty", appErr.ErrInvalid))
	}
	principal := c.State().Principal
	if principal == nil {
		return nil, appErr.ErrNotSignedIn
	}
	comment := &model.Comment{
		ID:            uuid.NewString(),
		NoteID:        noteID,
		Content:       content,
		CreatedAt:     timeutil.Now(),
		CreatedBy:     principal.Email,
		CreatedByName: principal.Name,
	}
	ctx, done := c.task(ctx)
	defer done()
	saved, err := c.backend.AddComment(ctx, comment)
	if err != nil {
		return nil, c.fail(ctx, "add_comment", err)
	}
	if !c.dispatch(ctx, state.CommentAdded{Comment: *saved}) {
		return nil, appErr.ErrNotSignedIn
	}
	return saved, nil
}

// Invite applies to the current selection: the selected note first, then
// the selected folder. The capacity model ignores the selection.
func (c *Controller) Invite(ctx context.Context, email string) (*model.InviteResult, error) {
	st := c.State()
	var scope model.InviteScope
	if st.SelectedNoteID != nil {
		scope.NoteID = *st.SelectedNoteID
	}
	if st.SelectedFolderID != nil {
		scope.FolderID = *st.SelectedFolderID
	}
	ctx, done := c.task(ctx)
	defer done()
	res, err := c.backend.Invite(ctx, scope, strings.TrimSpace(email))
	if err != nil {
		return nil, c.fail(ctx, "invite", err)
	}
	if !c.dispatch(ctx, state.Invited{Result: *res}) {
		return nil, appErr.ErrNotSignedIn
	}
	return res, nil
}

// Select sets both selections. Ids are not checked against the loaded
// collections.
func (c *Controller) Select(ctx context.Context, folderID, noteID *string) {
	c.dispatch(ctx, state.FolderSelected{FolderID: folderID})
	c.dispatch(ctx, state.NoteSelected{NoteID: noteID})
}

func (c *Controller) Search(ctx context.Context, query string) {
	c.dispatch(ctx, state.SearchChanged{Query: query})
}

func (c *Controller) DismissError(ctx context.Context) {
	c.dispatch(ctx, state.ErrorDismissed{})
}
