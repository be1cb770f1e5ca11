package model

import "time"

const DefaultNoteTitle = "Untitled Note"

type Note struct {
	ID            string    `json:"id"`
	FolderID      *string   `json:"folderId"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	RemoteID      string    `json:"driveFileId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByName string    `json:"createdByName"`
	SharedWith    []string  `json:"sharedWith,omitempty"`
}

func (n *Note) InFolder(folderID string) bool {
	return n.FolderID != nil && *n.FolderID == folderID
}
