package state

import (
	"github.com/xxxsen/justnotes/internal/model"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
)

// Reduce applies action to s. The input state is never modified; slices
// and maps that change are copied.
func Reduce(s State, action Action) (State, []Effect) {
	switch a := action.(type) {
	case CacheLoaded:
		if a.Snapshot == nil {
			return s, nil
		}
		s.Folders = copyFolders(a.Snapshot.Folders)
		s.Notes = dedupeNotes(a.Snapshot.Notes)
		s.Comments = copyComments(a.Snapshot.Comments)
		s.LastSync = a.Snapshot.LastSync
		return s, nil
	case SyncStarted:
		s.Syncing = true
		return s, nil
	case WorkspaceReady:
		s.Workspace = a.Workspace
		return s, nil
	case BulkLoaded:
		s.Folders = copyFolders(a.Folders)
		s.Notes = dedupeNotes(a.Notes)
		s.Comments = copyComments(a.Comments)
		at := a.At
		s.LastSync = &at
		s.Syncing = false
		s = s.dropDanglingSelection()
		return persist(s)
	case SyncFailed:
		s.Syncing = false
		s.Error = a.Message
		return s, nil
	case FolderCreated:
		s.Folders = append(copyFolders(s.Folders), a.Folder)
		return persist(s)
	case FolderDeleted:
		return persist(s.deleteFolder(a.FolderID))
	case NoteCreated:
		return persist(s.createNote(a.Note))
	case NoteUpdated:
		return persist(s.updateNote(a.Note))
	case NoteDeleted:
		return persist(s.deleteNote(a.NoteID))
	case CommentAdded:
		comments := copyComments(s.Comments)
		list := append([]model.Comment(nil), comments[a.Comment.NoteID]...)
		comments[a.Comment.NoteID] = append(list, a.Comment)
		s.Comments = comments
		return persist(s)
	case Invited:
		return s.applyInvite(a.Result)
	case FolderSelected:
		s.SelectedFolderID = a.FolderID
		return s, nil
	case NoteSelected:
		s.SelectedNoteID = a.NoteID
		return s, nil
	case SearchChanged:
		s.SearchQuery = a.Query
		return s, nil
	case Failed:
		s.Error = a.Message
		return s, nil
	case ErrorDismissed:
		s.Error = ""
		return s, nil
	case SignedOut:
		return New(nil), []Effect{ClearCache{}}
	}
	return s, nil
}

func persist(s State) (State, []Effect) {
	return s, []Effect{PersistCache{Snapshot: s.Snapshot()}}
}

func (s State) deleteFolder(folderID string) State {
	folders := make([]model.Folder, 0, len(s.Folders))
	for _, item := range s.Folders {
		if item.ID != folderID {
			folders = append(folders, item)
		}
	}
	notes := make([]model.Note, 0, len(s.Notes))
	comments := copyComments(s.Comments)
	for _, item := range s.Notes {
		if item.InFolder(folderID) {
			delete(comments, item.ID)
			continue
		}
		notes = append(notes, item)
	}
	s.Folders = folders
	s.Notes = notes
	s.Comments = comments
	if s.SelectedFolderID != nil && *s.SelectedFolderID == folderID {
		s.SelectedFolderID = nil
		s.SelectedNoteID = nil
	}
	return s.dropDanglingSelection()
}

func (s State) createNote(note model.Note) State {
	s.Notes = append(copyNotes(s.Notes), note)
	comments := copyComments(s.Comments)
	if _, ok := comments[note.ID]; !ok {
		comments[note.ID] = []model.Comment{}
	}
	s.Comments = comments
	id := note.ID
	s.SelectedNoteID = &id
	return s
}

func (s State) updateNote(note model.Note) State {
	idx, ok := s.findNote(note.ID)
	if !ok {
		return s
	}
	notes := copyNotes(s.Notes)
	note.UpdatedAt = timeutil.After(notes[idx].UpdatedAt, note.UpdatedAt)
	notes[idx] = note
	s.Notes = notes
	return s
}

func (s State) deleteNote(noteID string) State {
	notes := make([]model.Note, 0, len(s.Notes))
	for _, item := range s.Notes {
		if item.ID != noteID {
			notes = append(notes, item)
		}
	}
	comments := copyComments(s.Comments)
	delete(comments, noteID)
	s.Notes = notes
	s.Comments = comments
	s.SelectedNoteID = nil
	return s
}

func (s State) applyInvite(res model.InviteResult) (State, []Effect) {
	switch res.Kind {
	case model.InviteWorkspace:
		if s.Workspace == nil || res.Metadata == nil {
			return s, nil
		}
		ws := *s.Workspace
		ws.Metadata = res.Metadata.Clone()
		s.Workspace = &ws
		return s, nil
	case model.InviteFolder:
		if res.Folder == nil {
			return s, nil
		}
		folders := copyFolders(s.Folders)
		for i := range folders {
			if folders[i].ID == res.Folder.ID {
				folders[i] = *res.Folder
			}
		}
		s.Folders = folders
		return persist(s)
	case model.InviteNote:
		if res.Note == nil {
			return s, nil
		}
		idx, ok := s.findNote(res.Note.ID)
		if !ok {
			return s, nil
		}
		notes := copyNotes(s.Notes)
		notes[idx] = *res.Note
		s.Notes = notes
		return persist(s)
	}
	return s, nil
}

// dropDanglingSelection clears selections that point at entities no
// longer present.
func (s State) dropDanglingSelection() State {
	if s.SelectedFolderID != nil {
		found := false
		for _, item := range s.Folders {
			if item.ID == *s.SelectedFolderID {
				found = true
				break
			}
		}
		if !found {
			s.SelectedFolderID = nil
		}
	}
	if s.SelectedNoteID != nil {
		if _, ok := s.findNote(*s.SelectedNoteID); !ok {
			s.SelectedNoteID = nil
		}
	}
	return s
}

func dedupeNotes(in []model.Note) []model.Note {
	out := make([]model.Note, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, item := range in {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func copyFolders(in []model.Folder) []model.Folder {
	return append(make([]model.Folder, 0, len(in)+1), in...)
}

func copyNotes(in []model.Note) []model.Note {
	return append(make([]model.Note, 0, len(in)+1), in...)
}

func copyComments(in map[string][]model.Comment) map[string][]model.Comment {
	out := make(map[string][]model.Comment, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
