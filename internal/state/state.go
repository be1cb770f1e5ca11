// Package state is the pure core of the application: Reduce takes the
// current State and an Action and returns the next State plus the side
// effects the caller must run. Nothing here performs I/O.
package state

import (
	"time"

	"github.com/xxxsen/justnotes/internal/model"
)

type State struct {
	Principal        *model.Principal           `json:"principal,omitempty"`
	Workspace        *model.Workspace           `json:"workspace,omitempty"`
	Folders          []model.Folder             `json:"folders"`
	Notes            []model.Note               `json:"notes"`
	Comments         map[string][]model.Comment `json:"comments"`
	SelectedFolderID *string                    `json:"selectedFolderId"`
	SelectedNoteID   *string                    `json:"selectedNoteId"`
	SearchQuery      string                     `json:"searchQuery"`
	Syncing          bool                       `json:"syncing"`
	LastSync         *time.Time                 `json:"lastSync,omitempty"`
	Error            string                     `json:"error,omitempty"`
}

func New(principal *model.Principal) State {
	return State{
		Principal: principal,
		Folders:   []model.Folder{},
		Notes:     []model.Note{},
		Comments:  map[string][]model.Comment{},
	}
}

// Snapshot is the part of the state mirrored by the local cache.
func (s State) Snapshot() *model.Snapshot {
	return &model.Snapshot{
		Folders:  s.Folders,
		Notes:    s.Notes,
		Comments: s.Comments,
		LastSync: s.LastSync,
	}
}

func (s State) email() string {
	if s.Principal == nil {
		return ""
	}
	return s.Principal.Email
}

func (s State) findNote(id string) (int, bool) {
	for i := range s.Notes {
		if s.Notes[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

type Effect interface {
	effect()
}

// PersistCache writes Snapshot through to the local cache.
type PersistCache struct {
	Snapshot *model.Snapshot
}

// ClearCache drops everything cached for the signed-out principal.
type ClearCache struct{}

func (PersistCache) effect() {}
func (ClearCache) effect()   {}
