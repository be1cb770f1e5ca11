package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
	"github.com/xxxsen/justnotes/internal/state"
)

// LoadCache shows the last known state before any remote call.
func (c *Controller) LoadCache(ctx context.Context) {
	if c.mirror == nil {
		return
	}
	snap := c.mirror.Load(ctx)
	c.dispatch(ctx, state.CacheLoaded{Snapshot: snap})
}

// Bootstrap prepares the workspace. Authorization rejections are
// returned without touching state; the caller signs the principal out.
func (c *Controller) Bootstrap(ctx context.Context) (*model.Workspace, error) {
	ctx, done := c.task(ctx)
	defer done()
	ws, err := c.backend.Bootstrap(ctx)
	if err != nil {
		if appErr.IsAccessDenied(err) {
			return nil, err
		}
		return nil, c.fail(ctx, "bootstrap", err)
	}
	if !c.dispatch(ctx, state.WorkspaceReady{Workspace: ws}) {
		return nil, appErr.ErrNotSignedIn
	}
	return ws, nil
}

// Refresh reloads folders, notes and comments. Folders and direct notes
// must both load; failures of the per-folder and per-note listings are
// logged and leave those entries out.
func (c *Controller) Refresh(ctx context.Context) error {
	ctx, done := c.task(ctx)
	defer done()
	c.dispatch(ctx, state.SyncStarted{})

	// Each branch runs to completion so one failure does not cancel the other.
	var (
		g          errgroup.Group
		folders    []model.Folder
		direct     []model.Note
		foldersErr error
		notesErr   error
	)
	g.Go(func() error {
		folders, foldersErr = c.backend.ListFolders(ctx)
		return nil
	})
	g.Go(func() error {
		direct, notesErr = c.backend.ListDirectNotes(ctx)
		return nil
	})
	_ = g.Wait()
	if foldersErr != nil {
		foldersErr = fmt.Errorf("list folders: %w", foldersErr)
	}
	if notesErr != nil {
		notesErr = fmt.Errorf("list notes: %w", notesErr)
	}
	if err := errors.Join(foldersErr, notesErr); err != nil {
		if !c.alive() {
			return appErr.ErrNotSignedIn
		}
		logutil.GetLogger(ctx).Error("load workspace failed", zap.Error(err))
		c.dispatch(ctx, state.SyncFailed{Message: fmt.Sprintf("load workspace: %v", err)})
		return err
	}

	notes := c.loadFolderNotes(ctx, folders, direct)
	comments := c.loadComments(ctx, notes)
	if !c.dispatch(ctx, state.BulkLoaded{
		Folders:  folders,
		Notes:    notes,
		Comments: comments,
		At:       timeutil.Now(),
	}) {
		return appErr.ErrNotSignedIn
	}
	return nil
}

func (c *Controller) loadFolderNotes(ctx context.Context, folders []model.Folder, direct []model.Note) []model.Note {
	var (
		mu    sync.Mutex
		g     errgroup.Group
		notes = append([]model.Note(nil), direct...)
	)
	g.SetLimit(loadConcurrency)
	for _, folder := range folders {
		folderID := folder.ID
		g.Go(func() error {
			items, err := c.backend.ListFolderNotes(ctx, folderID)
			if err != nil {
				logutil.GetLogger(ctx).Warn("list folder notes failed", zap.String("folder_id", folderID), zap.Error(err))
				return nil
			}
			mu.Lock()
			notes = append(notes, items...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return notes
}

func (c *Controller) loadComments(ctx context.Context, notes []model.Note) map[string][]model.Comment {
	var (
		mu       sync.Mutex
		g        errgroup.Group
		comments = make(map[string][]model.Comment, len(notes))
		seen     = make(map[string]struct{}, len(notes))
	)
	g.SetLimit(loadConcurrency)
	for _, note := range notes {
		noteID := note.ID
		if _, ok := seen[noteID]; ok {
			continue
		}
		seen[noteID] = struct{}{}
		g.Go(func() error {
			items, err := c.backend.ListComments(ctx, noteID)
			if err != nil {
				logutil.GetLogger(ctx).Warn("list comments failed", zap.String("note_id", noteID), zap.Error(err))
				return nil
			}
			mu.Lock()
			comments[noteID] = items
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return comments
}
