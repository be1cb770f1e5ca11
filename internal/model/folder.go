package model

import "time"

type Folder struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RemoteID   string    `json:"driveId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	CreatedBy  string    `json:"createdBy"`
	SharedWith []string  `json:"sharedWith,omitempty"`
}
