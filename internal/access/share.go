package access

import "github.com/xxxsen/justnotes/internal/model"

// AddShare appends the normalized email to list unless present. The input
// is not modified.
func AddShare(list []string, email string) ([]string, bool) {
	if contains(list, email) {
		return list, false
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, model.NormalizeEmail(email))
	return out, true
}

func CanSeeFolder(folder *model.Folder, email string) bool {
	return model.SameEmail(folder.CreatedBy, email) || contains(folder.SharedWith, email)
}

// CanSeeNote includes notes reached through a shared parent folder.
func CanSeeNote(note *model.Note, parent *model.Folder, email string) bool {
	if model.SameEmail(note.CreatedBy, email) || contains(note.SharedWith, email) {
		return true
	}
	return parent != nil && note.InFolder(parent.ID) && CanSeeFolder(parent, email)
}

func CanEditNote(note *model.Note, email string) bool {
	return model.SameEmail(note.CreatedBy, email)
}

func CanDeleteFolder(folder *model.Folder, email string) bool {
	return model.SameEmail(folder.CreatedBy, email)
}

// CanInvite is the derived view used by the presentation layer.
func CanInvite(ws *model.Workspace, email string) bool {
	if ws == nil {
		return false
	}
	switch ws.Model {
	case model.AccessCapacity:
		return NewCapacity(ws.MaxMembers).CanInvite(ws.Metadata, email)
	case model.AccessShare:
		return true
	}
	return false
}

func contains(list []string, email string) bool {
	for _, item := range list {
		if model.SameEmail(item, email) {
			return true
		}
	}
	return false
}
