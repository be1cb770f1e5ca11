package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/drive"
	"github.com/xxxsen/justnotes/internal/drive/drivetest"
	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

func newTestDriveProvider(t *testing.T, srv *drivetest.Server) Provider {
	t.Helper()
	p, err := NewProvider(config.BackendDrive, DriveArgs{Config: config.DriveConfig{
		APIBase:          srv.URL,
		RootFolderName:   "NotesData",
		MetadataFileName: ".app_metadata.json",
		MaxMembers:       2,
	}})
	require.NoError(t, err)
	return p
}

func signIn(t *testing.T, p Provider, email string) (Backend, *model.Workspace, error) {
	t.Helper()
	ctx := context.Background()
	b, err := p.Connect(ctx, &model.Principal{ID: email, Email: email, Name: email[:1], AccessToken: "token-" + email})
	require.NoError(t, err)
	ws, err := b.Bootstrap(ctx)
	return b, ws, err
}

func TestDriveBootstrapCreatesWorkspaceOnce(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)

	_, ws, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, model.AccessCapacity, ws.Model)
	require.Equal(t, "a@x.com", ws.Metadata.OwnerEmail)
	require.Equal(t, []string{"a@x.com"}, ws.Metadata.ConnectedUsers)
	require.Nil(t, ws.Metadata.InvitedUserEmail)

	_, again, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, ws.RootID, again.RootID)
	require.Equal(t, []string{drive.Boundary}, srv.Boundaries())
}

func TestDriveCapacityScenario(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)
	ctx := context.Background()

	owner, ws, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)

	_, _, err = signIn(t, p, "b@x.com")
	require.ErrorIs(t, err, appErr.ErrNotInvited)
	require.True(t, appErr.IsAccessDenied(err))

	res, err := owner.Invite(ctx, model.InviteScope{}, "b@x.com")
	require.NoError(t, err)
	require.Equal(t, model.InviteWorkspace, res.Kind)
	require.Equal(t, "b@x.com", *res.Metadata.InvitedUserEmail)
	perms := srv.Permissions()
	require.Len(t, perms, 1)
	require.Equal(t, ws.RootID, perms[0].FileID)

	guest, joined, err := signIn(t, p, "b@x.com")
	require.NoError(t, err)
	require.Equal(t, []string{"a@x.com", "b@x.com"}, joined.Metadata.ConnectedUsers)

	_, rejoined, err := signIn(t, p, "b@x.com")
	require.NoError(t, err)
	require.Equal(t, []string{"a@x.com", "b@x.com"}, rejoined.Metadata.ConnectedUsers)

	_, _, err = signIn(t, p, "c@x.com")
	require.ErrorIs(t, err, appErr.ErrWorkspaceFull)
	require.True(t, appErr.IsAccessDenied(err))

	_, err = owner.Invite(ctx, model.InviteScope{}, "c@x.com")
	require.ErrorIs(t, err, appErr.ErrWorkspaceFull)

	folder, err := owner.CreateFolder(ctx, "Shared")
	require.NoError(t, err)
	note, err := guest.CreateNote(ctx, &folder.ID, "from b", "hello")
	require.NoError(t, err)
	notes, err := owner.ListFolderNotes(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, note.ID, notes[0].ID)
	require.Equal(t, "b@x.com", notes[0].CreatedBy)
}

func TestDriveInviteRules(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)
	ctx := context.Background()

	owner, _, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)

	_, err = owner.Invite(ctx, model.InviteScope{}, "a@x.com")
	require.ErrorIs(t, err, appErr.ErrAlreadyConnected)
	_, err = owner.Invite(ctx, model.InviteScope{}, "not an email")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Empty(t, srv.Permissions())
}

func TestDriveNoteRoundTrip(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)
	ctx := context.Background()

	b, _, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)

	created, err := b.CreateNote(ctx, nil, "Groceries", "milk\neggs")
	require.NoError(t, err)
	require.Nil(t, created.FolderID)
	file, ok := srv.Lookup("Groceries.txt")
	require.True(t, ok)
	require.Equal(t, "Groceries", file.Properties["noteTitle"])

	reloaded, err := b.ListDirectNotes(ctx)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	require.Equal(t, "Groceries", reloaded[0].Title)
	require.Equal(t, "milk\neggs", reloaded[0].Content)
	require.Equal(t, "a@x.com", reloaded[0].CreatedBy)
	require.Nil(t, reloaded[0].FolderID)

	edited := reloaded[0]
	edited.Title = "Shopping"
	edited.Content = "bread"
	updated, err := b.UpdateNote(ctx, &edited)
	require.NoError(t, err)
	require.Equal(t, "Shopping", updated.Title)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	_, ok = srv.Lookup("Shopping.txt")
	require.True(t, ok)

	require.NoError(t, b.DeleteNote(ctx, updated.ID))
	reloaded, err = b.ListDirectNotes(ctx)
	require.NoError(t, err)
	require.Empty(t, reloaded)
}

func TestDriveCreatorOnlyChanges(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)
	ctx := context.Background()

	owner, _, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)
	_, err = owner.Invite(ctx, model.InviteScope{}, "b@x.com")
	require.NoError(t, err)
	guest, _, err := signIn(t, p, "b@x.com")
	require.NoError(t, err)

	folder, err := owner.CreateFolder(ctx, "Mine")
	require.NoError(t, err)
	note, err := owner.CreateNote(ctx, nil, "T", "B")
	require.NoError(t, err)

	_, err = guest.UpdateNote(ctx, &model.Note{ID: note.ID, Title: "x", Content: "y"})
	require.ErrorIs(t, err, appErr.ErrForbidden)
	require.ErrorIs(t, guest.DeleteNote(ctx, note.ID), appErr.ErrForbidden)
	require.ErrorIs(t, guest.DeleteFolder(ctx, folder.ID), appErr.ErrForbidden)

	require.NoError(t, owner.DeleteFolder(ctx, folder.ID))
	folders, err := owner.ListFolders(ctx)
	require.NoError(t, err)
	require.Empty(t, folders)
}

func TestDriveCommentScenario(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)
	ctx := context.Background()

	owner, _, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)
	_, err = owner.Invite(ctx, model.InviteScope{}, "b@x.com")
	require.NoError(t, err)
	guest, _, err := signIn(t, p, "b@x.com")
	require.NoError(t, err)

	note, err := owner.CreateNote(ctx, nil, "N", "")
	require.NoError(t, err)

	empty, err := guest.ListComments(ctx, note.ID)
	require.NoError(t, err)
	require.Empty(t, empty)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	_, err = owner.AddComment(ctx, &model.Comment{ID: "c1", NoteID: note.ID, Content: "nice note!", CreatedAt: at, CreatedBy: "a@x.com", CreatedByName: "A"})
	require.NoError(t, err)

	seen, err := guest.ListComments(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	require.Equal(t, "nice note!", seen[0].Content)
	require.Equal(t, "a@x.com", seen[0].CreatedBy)
	require.True(t, at.Equal(seen[0].CreatedAt))

	_, err = guest.AddComment(ctx, &model.Comment{ID: "c2", NoteID: note.ID, Content: "thanks", CreatedAt: at.Add(time.Minute), CreatedBy: "b@x.com"})
	require.NoError(t, err)
	seen, err = owner.ListComments(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	require.Equal(t, "c1", seen[0].ID)
	require.Equal(t, "c2", seen[1].ID)
	_, ok := srv.Lookup(".comments_" + note.ID + ".json")
	require.True(t, ok)
}

func TestDriveSkipsMalformedRecords(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)
	ctx := context.Background()

	b, ws, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)
	srv.Put("orphan.txt", drive.MimeText, ws.RootID, nil, []byte("no author"))
	srv.Put("ok.txt", drive.MimeText, ws.RootID, map[string]string{"createdBy": "a@x.com"}, []byte("fine"))
	srv.Put("Loose", drive.MimeFolder, ws.RootID, nil, nil)

	notes, err := b.ListDirectNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "ok", notes[0].Title)

	folders, err := b.ListFolders(ctx)
	require.NoError(t, err)
	require.Empty(t, folders)
}

func TestDriveRejectsBrokenMetadata(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)

	root := srv.Put("NotesData", drive.MimeFolder, "", nil, nil)
	srv.Put(".app_metadata.json", drive.MimeJSON, root, nil,
		[]byte(`{"ownerEmail":"a@x.com","invitedUserEmail":null,"connectedUsers":["a@x.com","b@x.com","c@x.com"],"createdAt":"2024-01-01T00:00:00Z"}`))

	_, _, err := signIn(t, p, "a@x.com")
	require.ErrorIs(t, err, appErr.ErrMalformed)
}

func TestDriveUpdateMetadataNeedsSidecar(t *testing.T) {
	srv := drivetest.NewServer(t)
	p := newTestDriveProvider(t, srv)
	ctx := context.Background()

	b, ws, err := signIn(t, p, "a@x.com")
	require.NoError(t, err)
	file, ok := srv.Lookup(".app_metadata.json")
	require.True(t, ok)
	srv.Remove(file.ID)

	err = b.(*DriveBackend).UpdateWorkspaceMetadata(ctx, ws.RootID, ws.Metadata)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
