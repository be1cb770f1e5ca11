// Package backend adapts the domain operations on folders, notes and
// comments to one of the remote stores. A Provider is configured once per
// process; Connect binds it to one principal's credential.
package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/justnotes/internal/model"
)

type Backend interface {
	// Bootstrap prepares the workspace and decides whether the principal
	// may use it.
	Bootstrap(ctx context.Context) (*model.Workspace, error)
	ListFolders(ctx context.Context) ([]model.Folder, error)
	// ListDirectNotes returns the notes reachable without walking folders.
	ListDirectNotes(ctx context.Context) ([]model.Note, error)
	ListFolderNotes(ctx context.Context, folderID string) ([]model.Note, error)
	ListComments(ctx context.Context, noteID string) ([]model.Comment, error)

	CreateFolder(ctx context.Context, name string) (*model.Folder, error)
	DeleteFolder(ctx context.Context, folderID string) error
	CreateNote(ctx context.Context, folderID *string, title, content string) (*model.Note, error)
	UpdateNote(ctx context.Context, note *model.Note) (*model.Note, error)
	DeleteNote(ctx context.Context, noteID string) error
	AddComment(ctx context.Context, comment *model.Comment) (*model.Comment, error)
	Invite(ctx context.Context, scope model.InviteScope, email string) (*model.InviteResult, error)
}

type Provider interface {
	Name() string
	Model() model.AccessModel
	Connect(ctx context.Context, principal *model.Principal) (Backend, error)
}

type ProviderFactory func(args interface{}) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("backend type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported backend type: %s", name)
	}
	return factory(args)
}
