package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/justnotes/internal/model"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
)

const (
	keyNotes    = "cache-notes"
	keyFolders  = "cache-folders"
	keyComments = "cache-comments"
	keyLastSync = "last-sync"
)

// Mirror stores a Snapshot as four blobs under one namespace: notes,
// folders, comments keyed by note id, and the last sync time as ISO-8601.
// The blobs carry no schema version.
type Mirror struct {
	store     Store
	namespace string
}

func NewMirror(store Store, namespace string) *Mirror {
	return &Mirror{store: store, namespace: namespace}
}

// NewUserMirror namespaces the mirror by the normalized email so every
// spelling of an address reaches the same blobs.
func NewUserMirror(store Store, email string) *Mirror {
	return NewMirror(store, model.NormalizeEmail(email))
}

func (m *Mirror) Key(name string) string {
	if m.namespace == "" {
		return name
	}
	return m.namespace + "-" + name
}

// Load never fails: a missing or undecodable blob yields an empty collection.
func (m *Mirror) Load(ctx context.Context) *model.Snapshot {
	snap := &model.Snapshot{
		Folders:  []model.Folder{},
		Notes:    []model.Note{},
		Comments: map[string][]model.Comment{},
	}
	if !m.loadJSON(ctx, keyNotes, &snap.Notes) {
		snap.Notes = nil
	}
	if !m.loadJSON(ctx, keyFolders, &snap.Folders) {
		snap.Folders = nil
	}
	if !m.loadJSON(ctx, keyComments, &snap.Comments) {
		snap.Comments = nil
	}
	if snap.Notes == nil {
		snap.Notes = []model.Note{}
	}
	if snap.Folders == nil {
		snap.Folders = []model.Folder{}
	}
	if snap.Comments == nil {
		snap.Comments = map[string][]model.Comment{}
	}
	raw, err := m.store.Get(ctx, m.Key(keyLastSync))
	if err != nil {
		logutil.GetLogger(ctx).Warn("read cached last sync failed", zap.Error(err))
		return snap
	}
	if len(raw) > 0 {
		ts, err := timeutil.ParseISO(string(raw))
		if err != nil {
			logutil.GetLogger(ctx).Warn("cached last sync is not a timestamp", zap.String("value", string(raw)))
			return snap
		}
		snap.LastSync = &ts
	}
	return snap
}

func (m *Mirror) loadJSON(ctx context.Context, name string, dst interface{}) bool {
	raw, err := m.store.Get(ctx, m.Key(name))
	if err != nil {
		logutil.GetLogger(ctx).Warn("read cache failed", zap.String("key", m.Key(name)), zap.Error(err))
		return false
	}
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logutil.GetLogger(ctx).Warn("decode cache failed", zap.String("key", m.Key(name)), zap.Error(err))
		return false
	}
	return true
}

func (m *Mirror) Save(ctx context.Context, snap *model.Snapshot) error {
	blobs := map[string]interface{}{
		keyNotes:    nonNilNotes(snap.Notes),
		keyFolders:  nonNilFolders(snap.Folders),
		keyComments: nonNilComments(snap.Comments),
	}
	for name, v := range blobs {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := m.store.Set(ctx, m.Key(name), data); err != nil {
			return err
		}
	}
	if snap.LastSync == nil {
		return m.store.Delete(ctx, m.Key(keyLastSync))
	}
	return m.store.Set(ctx, m.Key(keyLastSync), []byte(timeutil.FormatISO(*snap.LastSync)))
}

func (m *Mirror) Clear(ctx context.Context) error {
	for _, name := range []string{keyNotes, keyFolders, keyComments, keyLastSync} {
		if err := m.store.Delete(ctx, m.Key(name)); err != nil {
			return err
		}
	}
	return nil
}

func nonNilNotes(v []model.Note) []model.Note {
	if v == nil {
		return []model.Note{}
	}
	return v
}

func nonNilFolders(v []model.Folder) []model.Folder {
	if v == nil {
		return []model.Folder{}
	}
	return v
}

func nonNilComments(v map[string][]model.Comment) map[string][]model.Comment {
	if v == nil {
		return map[string][]model.Comment{}
	}
	return v
}
