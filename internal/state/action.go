package state

import (
	"time"

	"github.com/xxxsen/justnotes/internal/model"
)

type Action interface {
	action()
}

type (
	CacheLoaded struct {
		Snapshot *model.Snapshot
	}
	SyncStarted    struct{}
	WorkspaceReady struct {
		Workspace *model.Workspace
	}
	// BulkLoaded replaces the collections with a fresh remote listing.
	BulkLoaded struct {
		Folders  []model.Folder
		Notes    []model.Note
		Comments map[string][]model.Comment
		At       time.Time
	}
	SyncFailed struct {
		Message string
	}

	FolderCreated struct {
		Folder model.Folder
	}
	FolderDeleted struct {
		FolderID string
	}
	NoteCreated struct {
		Note model.Note
	}
	NoteUpdated struct {
		Note model.Note
	}
	NoteDeleted struct {
		NoteID string
	}
	CommentAdded struct {
		Comment model.Comment
	}
	Invited struct {
		Result model.InviteResult
	}

	FolderSelected struct {
		FolderID *string
	}
	NoteSelected struct {
		NoteID *string
	}
	SearchChanged struct {
		Query string
	}
	// Failed records a user visible error and changes nothing else.
	Failed struct {
		Message string
	}
	ErrorDismissed struct{}
	SignedOut      struct{}
)

func (CacheLoaded) action()    {}
func (SyncStarted) action()    {}
func (WorkspaceReady) action() {}
func (BulkLoaded) action()     {}
func (SyncFailed) action()     {}
func (FolderCreated) action()  {}
func (FolderDeleted) action()  {}
func (NoteCreated) action()    {}
func (NoteUpdated) action()    {}
func (NoteDeleted) action()    {}
func (CommentAdded) action()   {}
func (Invited) action()        {}
func (FolderSelected) action() {}
func (NoteSelected) action()   {}
func (SearchChanged) action()  {}
func (Failed) action()         {}
func (ErrorDismissed) action() {}
func (SignedOut) action()      {}
