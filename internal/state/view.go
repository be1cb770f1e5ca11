package state

import (
	"strings"

	"github.com/xxxsen/justnotes/internal/access"
	"github.com/xxxsen/justnotes/internal/model"
)

// View is what the presentation layer renders.
type View struct {
	State
	FilteredNotes    []model.Note    `json:"filteredNotes"`
	SelectedNote     *model.Note     `json:"selectedNote"`
	SelectedComments []model.Comment `json:"selectedComments"`
	CanInvite        bool            `json:"canInvite"`
}

func ViewOf(s State) View {
	return View{
		State:            s,
		FilteredNotes:    FilteredNotes(s),
		SelectedNote:     SelectedNote(s),
		SelectedComments: SelectedComments(s),
		CanInvite:        CanInvite(s),
	}
}

// FilteredNotes returns the notes of the selected folder, or every note
// when no folder is selected, narrowed by the search query.
func FilteredNotes(s State) []model.Note {
	query := strings.ToLower(strings.TrimSpace(s.SearchQuery))
	out := make([]model.Note, 0, len(s.Notes))
	for _, item := range s.Notes {
		if s.SelectedFolderID != nil && !item.InFolder(*s.SelectedFolderID) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Title), query) &&
			!strings.Contains(strings.ToLower(item.Content), query) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func SelectedNote(s State) *model.Note {
	if s.SelectedNoteID == nil {
		return nil
	}
	idx, ok := s.findNote(*s.SelectedNoteID)
	if !ok {
		return nil
	}
	note := s.Notes[idx]
	return &note
}

func SelectedComments(s State) []model.Comment {
	if s.SelectedNoteID == nil {
		return []model.Comment{}
	}
	return append([]model.Comment{}, s.Comments[*s.SelectedNoteID]...)
}

func CanInvite(s State) bool {
	return access.CanInvite(s.Workspace, s.email())
}
