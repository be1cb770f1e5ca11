package model

import "time"

type AccessModel string

const (
	AccessCapacity AccessModel = "capacity"
	AccessShare    AccessModel = "share"
)

// WorkspaceMetadata is the sidecar record kept next to the workspace root in
// the file-storage backend. The json names are the sidecar wire format.
type WorkspaceMetadata struct {
	OwnerEmail       string    `json:"ownerEmail"`
	InvitedUserEmail *string   `json:"invitedUserEmail"`
	ConnectedUsers   []string  `json:"connectedUsers"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (m *WorkspaceMetadata) IsConnected(email string) bool {
	for _, item := range m.ConnectedUsers {
		if SameEmail(item, email) {
			return true
		}
	}
	return false
}

func (m *WorkspaceMetadata) Clone() *WorkspaceMetadata {
	if m == nil {
		return nil
	}
	out := *m
	out.ConnectedUsers = append([]string(nil), m.ConnectedUsers...)
	if m.InvitedUserEmail != nil {
		invited := *m.InvitedUserEmail
		out.InvitedUserEmail = &invited
	}
	return &out
}

type Workspace struct {
	Backend    string             `json:"backend"`
	RootID     string             `json:"rootId,omitempty"`
	Model      AccessModel        `json:"model"`
	MaxMembers int                `json:"maxMembers,omitempty"`
	Metadata   *WorkspaceMetadata `json:"metadata,omitempty"`
}
