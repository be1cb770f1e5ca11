package model

import "time"

// Snapshot is the last known server state as mirrored by the local cache.
type Snapshot struct {
	Folders  []Folder             `json:"folders"`
	Notes    []Note               `json:"notes"`
	Comments map[string][]Comment `json:"comments"`
	LastSync *time.Time           `json:"lastSync,omitempty"`
}

func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Folders) == 0 && len(s.Notes) == 0 && len(s.Comments) == 0 && s.LastSync == nil)
}
