package model

type InviteKind string

const (
	InviteWorkspace InviteKind = "workspace"
	InviteFolder    InviteKind = "folder"
	InviteNote      InviteKind = "note"
	InviteLink      InviteKind = "link"
)

// InviteScope is the current selection an invitation applies to. The
// capacity model ignores it.
type InviteScope struct {
	FolderID string
	NoteID   string
}

type InviteResult struct {
	Kind     InviteKind         `json:"kind"`
	Email    string             `json:"email,omitempty"`
	Metadata *WorkspaceMetadata `json:"metadata,omitempty"`
	Folder   *Folder            `json:"folder,omitempty"`
	Note     *Note              `json:"note,omitempty"`
	Link     string             `json:"link,omitempty"`
}
