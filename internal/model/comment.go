package model

import "time"

// Comment is append-only.
type Comment struct {
	ID            string    `json:"id"`
	NoteID        string    `json:"noteId"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByName string    `json:"createdByName"`
}
