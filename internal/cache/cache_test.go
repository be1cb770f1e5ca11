package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/model"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	cfgs := map[string]config.CacheConfig{
		"sqlite": {Type: "sqlite"},
		"badger": {Type: "badger"},
		"redis":  {Type: "redis", Data: map[string]interface{}{"addr": mr.Addr()}},
	}
	stores := make(map[string]Store, len(cfgs))
	for name, cfg := range cfgs {
		store, err := New(cfg)
		require.NoError(t, err, name)
		t.Cleanup(func() { _ = store.Close() })
		stores[name] = store
	}
	return stores
}

func TestStoresGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			v, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			require.Nil(t, v)

			require.NoError(t, store.Set(ctx, "k", []byte("one")))
			require.NoError(t, store.Set(ctx, "k", []byte("two")))
			v, err = store.Get(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, "two", string(v))

			require.NoError(t, store.Delete(ctx, "k"))
			v, err = store.Get(ctx, "k")
			require.NoError(t, err)
			require.Nil(t, v)
		})
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(config.CacheConfig{Type: "memcached"})
	require.Error(t, err)
}

func TestMirrorRoundTrip(t *testing.T) {
	ctx := context.Background()
	folderID := "f1"
	sync := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	snap := &model.Snapshot{
		Folders: []model.Folder{{ID: "f1", Name: "Work", CreatedBy: "a@x.com"}},
		Notes: []model.Note{
			{ID: "n1", FolderID: &folderID, Title: "T", Content: "B", CreatedBy: "a@x.com"},
			{ID: "n2", Title: "Root", CreatedBy: "a@x.com"},
		},
		Comments: map[string][]model.Comment{"n1": {{ID: "c1", NoteID: "n1", Content: "nice note!"}}},
		LastSync: &sync,
	}
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewMirror(store, "a@x.com")
			require.NoError(t, m.Save(ctx, snap))

			raw, err := store.Get(ctx, "a@x.com-last-sync")
			require.NoError(t, err)
			require.Equal(t, "2024-03-04T05:06:07Z", string(raw))

			got := m.Load(ctx)
			require.Equal(t, snap.Folders[0].ID, got.Folders[0].ID)
			require.Len(t, got.Notes, 2)
			require.Equal(t, "f1", *got.Notes[0].FolderID)
			require.Nil(t, got.Notes[1].FolderID)
			require.Equal(t, "nice note!", got.Comments["n1"][0].Content)
			require.True(t, sync.Equal(*got.LastSync))

			other := NewMirror(store, "b@x.com").Load(ctx)
			require.True(t, other.Empty())

			require.NoError(t, m.Clear(ctx))
			require.True(t, m.Load(ctx).Empty())
		})
	}
}

func TestMirrorLoadToleratesGarbage(t *testing.T) {
	ctx := context.Background()
	store, err := New(config.CacheConfig{Type: "sqlite"})
	require.NoError(t, err)
	defer store.Close()

	m := NewMirror(store, "ns")
	require.NoError(t, store.Set(ctx, m.Key("cache-notes"), []byte("{not json")))
	require.NoError(t, store.Set(ctx, m.Key("cache-folders"), []byte(`[{"id":"f1","name":"ok"}]`)))
	require.NoError(t, store.Set(ctx, m.Key("last-sync"), []byte("yesterday")))

	got := m.Load(ctx)
	require.Empty(t, got.Notes)
	require.NotNil(t, got.Notes)
	require.Len(t, got.Folders, 1)
	require.Nil(t, got.LastSync)
}

func TestUserMirrorIgnoresEmailCase(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			snap := &model.Snapshot{Notes: []model.Note{{ID: "n1", Title: "T", CreatedBy: "ann@x.com"}}}
			require.NoError(t, NewUserMirror(store, "Ann@X.com").Save(ctx, snap))

			got := NewUserMirror(store, " ann@x.com ").Load(ctx)
			require.Len(t, got.Notes, 1)
			require.Equal(t, "n1", got.Notes[0].ID)

			raw, err := store.Get(ctx, "ann@x.com-"+keyNotes)
			require.NoError(t, err)
			require.NotEmpty(t, raw)
		})
	}
}
