package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/db/dbtest"
	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
)

func TestPostgresShareScenario(t *testing.T) {
	conn := dbtest.OpenTestDB(t)
	ctx := context.Background()
	p, err := NewProvider(config.BackendPostgres, PostgresArgs{DB: conn, AppURL: "https://notes.example"})
	require.NoError(t, err)
	require.Equal(t, model.AccessShare, p.Model())

	owner, _, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)
	guest, _, err := signIn(t, p, "b@x.com")
	require.NoError(t, err)

	folder, err := owner.CreateFolder(ctx, "Work")
	require.NoError(t, err)
	note, err := owner.CreateNote(ctx, &folder.ID, "T", "B")
	require.NoError(t, err)
	loose, err := owner.CreateNote(ctx, nil, "Loose", "")
	require.NoError(t, err)

	folders, err := guest.ListFolders(ctx)
	require.NoError(t, err)
	require.Empty(t, folders)
	_, err = guest.AddComment(ctx, &model.Comment{ID: "c0", NoteID: note.ID, Content: "x", CreatedBy: "b@x.com", CreatedAt: timeutil.Now()})
	require.ErrorIs(t, err, appErr.ErrNotFound)

	res, err := owner.Invite(ctx, model.InviteScope{FolderID: folder.ID}, "b@x.com")
	require.NoError(t, err)
	require.Equal(t, model.InviteFolder, res.Kind)
	require.Equal(t, []string{"b@x.com"}, res.Folder.SharedWith)

	folders, err = guest.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	inFolder, err := guest.ListFolderNotes(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, inFolder, 1)
	direct, err := guest.ListDirectNotes(ctx)
	require.NoError(t, err)
	require.Empty(t, direct)

	_, err = guest.AddComment(ctx, &model.Comment{ID: "c1", NoteID: note.ID, Content: "nice note!", CreatedBy: "b@x.com", CreatedByName: "B", CreatedAt: timeutil.Now()})
	require.NoError(t, err)
	comments, err := owner.ListComments(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "b@x.com", comments[0].CreatedBy)

	_, err = guest.UpdateNote(ctx, &model.Note{ID: note.ID, Title: "x"})
	require.ErrorIs(t, err, appErr.ErrNotFound)

	res, err = owner.Invite(ctx, model.InviteScope{NoteID: loose.ID}, "b@x.com")
	require.NoError(t, err)
	require.Equal(t, model.InviteNote, res.Kind)
	direct, err = guest.ListDirectNotes(ctx)
	require.NoError(t, err)
	require.Len(t, direct, 1)

	res, err = owner.Invite(ctx, model.InviteScope{}, "")
	require.NoError(t, err)
	require.Equal(t, model.InviteLink, res.Kind)
	require.Equal(t, "https://notes.example", res.Link)
}
