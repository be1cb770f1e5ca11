package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/justnotes/internal/model"
)

func strPtr(v string) *string { return &v }

func seeded() State {
	s := New(&model.Principal{Email: "owner@x.com", Name: "Owner"})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ = Reduce(s, BulkLoaded{
		Folders: []model.Folder{
			{ID: "f1", Name: "Work", CreatedBy: "owner@x.com"},
			{ID: "f2", Name: "Home", CreatedBy: "owner@x.com"},
		},
		Notes: []model.Note{
			{ID: "n1", FolderID: strPtr("f1"), Title: "Plan", Content: "ship it", UpdatedAt: base},
			{ID: "n2", FolderID: strPtr("f1"), Title: "Retro", Content: "Went WELL", UpdatedAt: base},
			{ID: "n3", FolderID: strPtr("f2"), Title: "Groceries", Content: "milk", UpdatedAt: base},
			{ID: "n4", Title: "Loose", Content: "root level", UpdatedAt: base},
			{ID: "n4", Title: "Loose duplicate"},
		},
		Comments: map[string][]model.Comment{
			"n1": {{ID: "c1", NoteID: "n1", Content: "ok"}},
			"n3": {},
		},
		At: base,
	})
	return s
}

func noteIDs(notes []model.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.ID)
	}
	return out
}

func TestBulkLoadDedupesAndPersists(t *testing.T) {
	s := New(nil)
	next, effects := Reduce(s, BulkLoaded{
		Notes: []model.Note{{ID: "a"}, {ID: "a"}, {ID: "b"}},
		At:    time.Unix(10, 0).UTC(),
	})
	require.Equal(t, []string{"a", "b"}, noteIDs(next.Notes))
	require.NotNil(t, next.LastSync)
	require.False(t, next.Syncing)
	require.Len(t, effects, 1)
	persisted, ok := effects[0].(PersistCache)
	require.True(t, ok)
	require.Len(t, persisted.Snapshot.Notes, 2)
	require.Empty(t, s.Notes)
}

func TestFilteredNotes(t *testing.T) {
	s := seeded()
	require.Equal(t, []string{"n1", "n2", "n3", "n4"}, noteIDs(FilteredNotes(s)))

	s, _ = Reduce(s, FolderSelected{FolderID: strPtr("f1")})
	require.Equal(t, []string{"n1", "n2"}, noteIDs(FilteredNotes(s)))

	s, _ = Reduce(s, SearchChanged{Query: "well"})
	require.Equal(t, []string{"n2"}, noteIDs(FilteredNotes(s)))

	s, _ = Reduce(s, FolderSelected{FolderID: nil})
	s, _ = Reduce(s, SearchChanged{Query: "ROOT"})
	require.Equal(t, []string{"n4"}, noteIDs(FilteredNotes(s)))
}

func TestFolderDeleteCascades(t *testing.T) {
	s := seeded()
	s, _ = Reduce(s, FolderSelected{FolderID: strPtr("f1")})
	s, _ = Reduce(s, NoteSelected{NoteID: strPtr("n1")})

	before := s
	next, effects := Reduce(s, FolderDeleted{FolderID: "f1"})
	require.Len(t, effects, 1)
	require.Len(t, next.Folders, 1)
	require.Equal(t, []string{"n3", "n4"}, noteIDs(next.Notes))
	require.NotContains(t, next.Comments, "n1")
	require.Nil(t, next.SelectedFolderID)
	require.Nil(t, next.SelectedNoteID)

	require.Len(t, before.Folders, 2)
	require.Len(t, before.Notes, 4)
	require.Contains(t, before.Comments, "n1")
}

func TestFolderDeleteKeepsOtherSelection(t *testing.T) {
	s := seeded()
	s, _ = Reduce(s, FolderSelected{FolderID: strPtr("f2")})
	s, _ = Reduce(s, NoteSelected{NoteID: strPtr("n3")})
	s, _ = Reduce(s, FolderDeleted{FolderID: "f1"})
	require.Equal(t, "f2", *s.SelectedFolderID)
	require.Equal(t, "n3", SelectedNote(s).ID)
}

func TestCreateNoteSelectsIt(t *testing.T) {
	s := seeded()
	s, _ = Reduce(s, NoteCreated{Note: model.Note{ID: "n5", Title: model.DefaultNoteTitle}})
	require.Equal(t, "n5", *s.SelectedNoteID)
	require.Equal(t, model.DefaultNoteTitle, SelectedNote(s).Title)
	require.NotNil(t, s.Comments["n5"])
	require.Empty(t, SelectedComments(s))
}

func TestUpdateNoteBumpsTimestamp(t *testing.T) {
	s := seeded()
	prev := s.Notes[0].UpdatedAt
	s, _ = Reduce(s, NoteUpdated{Note: model.Note{ID: "n1", Title: "Plan v2", UpdatedAt: prev}})
	require.Equal(t, "Plan v2", s.Notes[0].Title)
	require.True(t, s.Notes[0].UpdatedAt.After(prev))

	later := prev.Add(time.Hour)
	s, _ = Reduce(s, NoteUpdated{Note: model.Note{ID: "n1", Title: "Plan v3", UpdatedAt: later}})
	require.Equal(t, later, s.Notes[0].UpdatedAt)
}

func TestDeleteNoteClearsSelection(t *testing.T) {
	s := seeded()
	s, _ = Reduce(s, NoteSelected{NoteID: strPtr("n3")})
	s, _ = Reduce(s, NoteDeleted{NoteID: "n1"})
	require.Nil(t, s.SelectedNoteID)
	require.NotContains(t, s.Comments, "n1")
	require.Len(t, s.Notes, 3)
}

func TestCommentAppendsWithoutSharingBacking(t *testing.T) {
	s := seeded()
	before := s
	s, _ = Reduce(s, CommentAdded{Comment: model.Comment{ID: "c2", NoteID: "n1", Content: "second"}})
	require.Len(t, s.Comments["n1"], 2)
	require.Equal(t, "c2", s.Comments["n1"][1].ID)
	require.Len(t, before.Comments["n1"], 1)
}

func TestFailedOnlySetsError(t *testing.T) {
	s := seeded()
	next, effects := Reduce(s, Failed{Message: "boom"})
	require.Empty(t, effects)
	require.Equal(t, "boom", next.Error)
	require.Equal(t, s.Notes, next.Notes)

	next, _ = Reduce(next, ErrorDismissed{})
	require.Empty(t, next.Error)
}

func TestSignOutClearsEverything(t *testing.T) {
	s := seeded()
	s, effects := Reduce(s, SignedOut{})
	require.Equal(t, []Effect{ClearCache{}}, effects)
	require.Nil(t, s.Principal)
	require.Empty(t, s.Notes)
	require.Empty(t, s.Folders)
}

func TestInviteUpdatesWorkspaceAndShares(t *testing.T) {
	s := seeded()
	s, _ = Reduce(s, WorkspaceReady{Workspace: &model.Workspace{
		Model:      model.AccessCapacity,
		MaxMembers: 2,
		Metadata:   &model.WorkspaceMetadata{OwnerEmail: "owner@x.com", ConnectedUsers: []string{"owner@x.com"}},
	}})
	require.True(t, CanInvite(s))

	invited := "guest@x.com"
	s, effects := Reduce(s, Invited{Result: model.InviteResult{
		Kind: model.InviteWorkspace,
		Metadata: &model.WorkspaceMetadata{
			OwnerEmail:       "owner@x.com",
			InvitedUserEmail: &invited,
			ConnectedUsers:   []string{"owner@x.com"},
		},
	}})
	require.Empty(t, effects)
	require.Equal(t, "guest@x.com", *s.Workspace.Metadata.InvitedUserEmail)
	require.True(t, CanInvite(s))

	guest := s
	guest.Principal = &model.Principal{Email: "guest@x.com"}
	require.False(t, CanInvite(guest))

	shared := model.Folder{ID: "f2", Name: "Home", CreatedBy: "owner@x.com", SharedWith: []string{"guest@x.com"}}
	s, effects = Reduce(s, Invited{Result: model.InviteResult{Kind: model.InviteFolder, Folder: &shared}})
	require.Len(t, effects, 1)
	require.Equal(t, []string{"guest@x.com"}, s.Folders[1].SharedWith)
}

func TestCacheLoadedDoesNotPersist(t *testing.T) {
	at := time.Unix(5, 0).UTC()
	s, effects := Reduce(New(nil), CacheLoaded{Snapshot: &model.Snapshot{
		Notes:    []model.Note{{ID: "x"}},
		LastSync: &at,
	}})
	require.Empty(t, effects)
	require.Len(t, s.Notes, 1)
	require.Equal(t, at, *s.LastSync)
	require.NotNil(t, s.Comments)
}
