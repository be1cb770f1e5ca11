package backend

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/justnotes/internal/access"
	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
	"github.com/xxxsen/justnotes/internal/repo"
)

type PostgresArgs struct {
	DB     *sql.DB
	AppURL string
}

type postgresProvider struct {
	users    *repo.UserRepo
	folders  *repo.FolderRepo
	notes    *repo.NoteRepo
	comments *repo.CommentRepo
	appURL   string
}

func init() {
	Register(config.BackendPostgres, newPostgresProvider)
}

func newPostgresProvider(args interface{}) (Provider, error) {
	in, ok := args.(PostgresArgs)
	if !ok {
		return nil, fmt.Errorf("postgres backend expects PostgresArgs, got %T", args)
	}
	if in.DB == nil {
		return nil, fmt.Errorf("postgres backend needs a db")
	}
	return &postgresProvider{
		users:    repo.NewUserRepo(in.DB),
		folders:  repo.NewFolderRepo(in.DB),
		notes:    repo.NewNoteRepo(in.DB),
		comments: repo.NewCommentRepo(in.DB),
		appURL:   in.AppURL,
	}, nil
}

func (p *postgresProvider) Name() string {
	return config.BackendPostgres
}

func (p *postgresProvider) Model() model.AccessModel {
	return model.AccessShare
}

func (p *postgresProvider) Connect(_ context.Context, principal *model.Principal) (Backend, error) {
	if principal == nil || principal.Email == "" {
		return nil, fmt.Errorf("%w: principal email required", appErr.ErrUnauthorized)
	}
	pc := *principal
	pc.Email = model.NormalizeEmail(pc.Email)
	return &PostgresBackend{provider: p, principal: pc}, nil
}

// PostgresBackend stores rows tagged with their creator and a shared_with
// list; visibility is decided per row.
type PostgresBackend struct {
	provider  *postgresProvider
	principal model.Principal
	userID    string
}

func (b *PostgresBackend) email() string {
	return b.principal.Email
}

func (b *PostgresBackend) Bootstrap(ctx context.Context) (*model.Workspace, error) {
	userID, err := b.provider.users.Upsert(ctx, &b.principal)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	b.userID = userID
	return &model.Workspace{Backend: config.BackendPostgres, Model: model.AccessShare}, nil
}

func (b *PostgresBackend) ListFolders(ctx context.Context) ([]model.Folder, error) {
	return b.provider.folders.ListVisible(ctx, b.email())
}

func (b *PostgresBackend) ListDirectNotes(ctx context.Context) ([]model.Note, error) {
	return b.provider.notes.ListVisible(ctx, b.email())
}

func (b *PostgresBackend) ListFolderNotes(ctx context.Context, folderID string) ([]model.Note, error) {
	return b.provider.notes.ListByFolder(ctx, folderID)
}

func (b *PostgresBackend) ListComments(ctx context.Context, noteID string) ([]model.Comment, error) {
	return b.provider.comments.ListByNote(ctx, noteID)
}

func (b *PostgresBackend) requireUser() error {
	if b.userID == "" {
		return fmt.Errorf("%w: workspace not bootstrapped", appErr.ErrInvalid)
	}
	return nil
}

func (b *PostgresBackend) CreateFolder(ctx context.Context, name string) (*model.Folder, error) {
	if err := b.requireUser(); err != nil {
		return nil, err
	}
	return b.provider.folders.Create(ctx, b.userID, &model.Folder{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: b.email(),
		CreatedAt: timeutil.Now(),
	})
}

func (b *PostgresBackend) DeleteFolder(ctx context.Context, folderID string) error {
	return b.provider.folders.Delete(ctx, folderID, b.email())
}

func (b *PostgresBackend) CreateNote(ctx context.Context, folderID *string, title, content string) (*model.Note, error) {
	if err := b.requireUser(); err != nil {
		return nil, err
	}
	if folderID != nil {
		if _, err := b.provider.folders.GetVisible(ctx, *folderID, b.email()); err != nil {
			return nil, err
		}
	}
	now := timeutil.Now()
	return b.provider.notes.Create(ctx, b.userID, &model.Note{
		ID:            uuid.NewString(),
		FolderID:      folderID,
		Title:         title,
		Content:       content,
		CreatedBy:     b.email(),
		CreatedByName: b.principal.Name,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (b *PostgresBackend) UpdateNote(ctx context.Context, note *model.Note) (*model.Note, error) {
	return b.provider.notes.Update(ctx, note.ID, b.email(), note.Title, note.Content, timeutil.Now())
}

func (b *PostgresBackend) DeleteNote(ctx context.Context, noteID string) error {
	return b.provider.notes.Delete(ctx, noteID, b.email())
}

// canSeeNote also admits notes reached through a shared folder.
func (b *PostgresBackend) canSeeNote(ctx context.Context, noteID string) error {
	note, err := b.provider.notes.GetVisible(ctx, noteID, b.email())
	if err == nil {
		return nil
	}
	if !appErr.IsNotFound(err) {
		return err
	}
	note, err = b.provider.notes.Get(ctx, noteID)
	if err != nil {
		return err
	}
	if note.FolderID == nil {
		return appErr.ErrNotFound
	}
	parent, err := b.provider.folders.GetVisible(ctx, *note.FolderID, b.email())
	if err != nil {
		return err
	}
	if !access.CanSeeNote(note, parent, b.email()) {
		return appErr.ErrNotFound
	}
	return nil
}

func (b *PostgresBackend) AddComment(ctx context.Context, comment *model.Comment) (*model.Comment, error) {
	if err := b.requireUser(); err != nil {
		return nil, err
	}
	if err := b.canSeeNote(ctx, comment.NoteID); err != nil {
		return nil, err
	}
	return b.provider.comments.Create(ctx, b.userID, comment)
}

// Invite shares the selected note, else the selected folder. With nothing
// selected there is nothing to share and the caller gets the app link.
func (b *PostgresBackend) Invite(ctx context.Context, scope model.InviteScope, email string) (*model.InviteResult, error) {
	if scope.NoteID == "" && scope.FolderID == "" {
		return &model.InviteResult{Kind: model.InviteLink, Link: b.link(scope)}, nil
	}
	email = model.NormalizeEmail(email)
	if err := access.ValidateEmail(email); err != nil {
		return nil, err
	}
	if scope.NoteID != "" {
		note, changed, err := b.provider.notes.Share(ctx, scope.NoteID, b.email(), email)
		if err != nil {
			return nil, err
		}
		logutil.GetLogger(ctx).Info("note shared", zap.String("note_id", note.ID), zap.String("with", email), zap.Bool("changed", changed))
		return &model.InviteResult{Kind: model.InviteNote, Email: email, Note: note, Link: b.link(scope)}, nil
	}
	folder, changed, err := b.provider.folders.Share(ctx, scope.FolderID, b.email(), email)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("folder shared", zap.String("folder_id", folder.ID), zap.String("with", email), zap.Bool("changed", changed))
	return &model.InviteResult{Kind: model.InviteFolder, Email: email, Folder: folder, Link: b.link(scope)}, nil
}

// link builds the deep link the invitee opens.
func (b *PostgresBackend) link(scope model.InviteScope) string {
	if b.provider.appURL == "" {
		return ""
	}
	params := url.Values{}
	if scope.FolderID != "" {
		params.Set("folderId", scope.FolderID)
	}
	if scope.NoteID != "" {
		params.Set("noteId", scope.NoteID)
	}
	if len(params) == 0 {
		return b.provider.appURL
	}
	return b.provider.appURL + "?" + params.Encode()
}
