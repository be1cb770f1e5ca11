package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	drivev3 "google.golang.org/api/drive/v3"

	"github.com/xxxsen/justnotes/internal/access"
	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/drive"
	"github.com/xxxsen/justnotes/internal/model"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
	"github.com/xxxsen/justnotes/internal/pkg/keylock"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
)

type DriveArgs struct {
	Config config.DriveConfig
}

type driveProvider struct {
	cfg      config.DriveConfig
	capacity access.Capacity
	locks    *keylock.KeyLock
}

func init() {
	Register(config.BackendDrive, newDriveProvider)
}

func newDriveProvider(args interface{}) (Provider, error) {
	in, ok := args.(DriveArgs)
	if !ok {
		return nil, fmt.Errorf("drive backend expects DriveArgs, got %T", args)
	}
	if in.Config.RootFolderName == "" || in.Config.MetadataFileName == "" {
		return nil, fmt.Errorf("drive root_folder_name and metadata_file_name are required")
	}
	return &driveProvider{
		cfg:      in.Config,
		capacity: access.NewCapacity(in.Config.MaxMembers),
		locks:    keylock.New(),
	}, nil
}

func (p *driveProvider) Name() string {
	return config.BackendDrive
}

func (p *driveProvider) Model() model.AccessModel {
	return model.AccessCapacity
}

func (p *driveProvider) Connect(ctx context.Context, principal *model.Principal) (Backend, error) {
	if principal == nil || principal.AccessToken == "" {
		return nil, fmt.Errorf("%w: drive backend needs an access token", appErr.ErrUnauthorized)
	}
	client, err := drive.NewClient(ctx, p.cfg.APIBase, principal.AccessToken)
	if err != nil {
		return nil, err
	}
	return &DriveBackend{
		client:    client,
		cfg:       p.cfg,
		capacity:  p.capacity,
		locks:     p.locks,
		principal: *principal,
	}, nil
}

// DriveBackend keeps the workspace as a directory tree: folders are
// directories under the root, notes are text files carrying their title and
// author as file properties, and workspace metadata and comments live in
// JSON sidecar files inside the root.
type DriveBackend struct {
	client    *drive.Client
	cfg       config.DriveConfig
	capacity  access.Capacity
	locks     *keylock.KeyLock
	principal model.Principal

	mu     sync.RWMutex
	rootID string
	meta   *model.WorkspaceMetadata
}

func (b *DriveBackend) root() (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.rootID == "" {
		return "", fmt.Errorf("%w: workspace not bootstrapped", appErr.ErrInvalid)
	}
	return b.rootID, nil
}

func (b *DriveBackend) setWorkspace(rootID string, meta *model.WorkspaceMetadata) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rootID = rootID
	b.meta = meta
}

func (b *DriveBackend) workspace() *model.Workspace {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &model.Workspace{
		Backend:    config.BackendDrive,
		RootID:     b.rootID,
		Model:      model.AccessCapacity,
		MaxMembers: b.capacity.MaxMembers,
		Metadata:   b.meta.Clone(),
	}
}

// InitializeWorkspace finds the root directory by name, creating it when
// absent. Repeated calls converge on the same directory.
func (b *DriveBackend) InitializeWorkspace(ctx context.Context) (string, error) {
	q := drive.NewQuery().Name(b.cfg.RootFolderName).MimeType(drive.MimeFolder)
	found, err := b.client.FindOne(ctx, q)
	if err != nil {
		return "", err
	}
	if found != nil {
		return found.Id, nil
	}
	created, err := b.client.Create(ctx, &drivev3.File{Name: b.cfg.RootFolderName, MimeType: drive.MimeFolder})
	if err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Info("workspace root created", zap.String("root_id", created.Id), zap.String("email", b.principal.Email))
	return created.Id, nil
}

func (b *DriveBackend) metadataQuery(rootID string) *drive.Query {
	return drive.NewQuery().Name(b.cfg.MetadataFileName).Parent(rootID)
}

// GetWorkspaceMetadata returns nil when no sidecar exists yet.
func (b *DriveBackend) GetWorkspaceMetadata(ctx context.Context, rootID string) (*model.WorkspaceMetadata, error) {
	file, err := b.client.FindOne(ctx, b.metadataQuery(rootID))
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, nil
	}
	data, err := b.client.Download(ctx, file.Id)
	if err != nil {
		return nil, err
	}
	meta, err := decodeMetadata(data)
	if err != nil {
		return nil, err
	}
	if err := b.capacity.Validate(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (b *DriveBackend) CreateWorkspaceMetadata(ctx context.Context, rootID, ownerEmail string) (*model.WorkspaceMetadata, error) {
	meta := access.NewMetadata(ownerEmail, timeutil.Now())
	body, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	_, err = b.client.CreateWithContent(ctx, &drivev3.File{
		Name:     b.cfg.MetadataFileName,
		Parents:  []string{rootID},
		MimeType: drive.MimeJSON,
	}, drive.MimeJSON, body)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// UpdateWorkspaceMetadata re-locates the sidecar before overwriting it and
// fails with ErrNotFound if it was removed out of band.
func (b *DriveBackend) UpdateWorkspaceMetadata(ctx context.Context, rootID string, meta *model.WorkspaceMetadata) error {
	file, err := b.client.FindOne(ctx, b.metadataQuery(rootID))
	if err != nil {
		return err
	}
	if file == nil {
		return fmt.Errorf("workspace metadata: %w", appErr.ErrNotFound)
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = b.client.Overwrite(ctx, file.Id, drive.MimeJSON, body)
	return err
}

func (b *DriveBackend) ShareDirectory(ctx context.Context, id, email string) error {
	return b.client.GrantWriter(ctx, id, email)
}

func (b *DriveBackend) Bootstrap(ctx context.Context) (*model.Workspace, error) {
	email := b.principal.Email
	rootID, err := b.InitializeWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := b.GetWorkspaceMetadata(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta, err = b.CreateWorkspaceMetadata(ctx, rootID, email)
		if err != nil {
			return nil, err
		}
		logutil.GetLogger(ctx).Info("workspace metadata created", zap.String("owner", email))
	} else {
		next, changed, err := b.capacity.Admit(meta, email)
		if err != nil {
			logutil.GetLogger(ctx).Warn("workspace admission rejected", zap.String("email", email), zap.Error(err))
			return nil, err
		}
		if changed {
			if err := b.UpdateWorkspaceMetadata(ctx, rootID, next); err != nil {
				return nil, err
			}
			logutil.GetLogger(ctx).Info("invited user joined workspace", zap.String("email", email))
		}
		meta = next
	}
	b.setWorkspace(rootID, meta)
	return b.workspace(), nil
}

func (b *DriveBackend) ListFolders(ctx context.Context) ([]model.Folder, error) {
	rootID, err := b.root()
	if err != nil {
		return nil, err
	}
	files, err := b.client.Search(ctx, drive.NewQuery().Parent(rootID).MimeType(drive.MimeFolder))
	if err != nil {
		return nil, err
	}
	folders := make([]model.Folder, 0, len(files))
	for _, f := range files {
		folder, err := folderFromFile(f)
		if err != nil {
			logutil.GetLogger(ctx).Warn("skip malformed folder", zap.String("file_id", f.Id), zap.Error(err))
			continue
		}
		folders = append(folders, *folder)
	}
	return folders, nil
}

// ListNotes lists the text files under parentID and downloads each one; the
// API has no batch read.
func (b *DriveBackend) ListNotes(ctx context.Context, parentID string, folderID *string) ([]model.Note, error) {
	files, err := b.client.Search(ctx, drive.NewQuery().Parent(parentID).MimeType(drive.MimeText))
	if err != nil {
		return nil, err
	}
	notes := make([]model.Note, 0, len(files))
	for _, f := range files {
		content, err := b.GetNoteContent(ctx, f.Id)
		if err != nil {
			return nil, err
		}
		note, err := noteFromFile(f, folderID, content)
		if err != nil {
			logutil.GetLogger(ctx).Warn("skip malformed note", zap.String("file_id", f.Id), zap.Error(err))
			continue
		}
		notes = append(notes, *note)
	}
	return notes, nil
}

func (b *DriveBackend) ListDirectNotes(ctx context.Context) ([]model.Note, error) {
	rootID, err := b.root()
	if err != nil {
		return nil, err
	}
	return b.ListNotes(ctx, rootID, nil)
}

func (b *DriveBackend) ListFolderNotes(ctx context.Context, folderID string) ([]model.Note, error) {
	id := folderID
	return b.ListNotes(ctx, folderID, &id)
}

func (b *DriveBackend) GetNoteContent(ctx context.Context, fileID string) (string, error) {
	data, err := b.client.Download(ctx, fileID)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (b *DriveBackend) CreateFolder(ctx context.Context, name string) (*model.Folder, error) {
	rootID, err := b.root()
	if err != nil {
		return nil, err
	}
	created, err := b.client.Create(ctx, &drivev3.File{
		Name:       name,
		MimeType:   drive.MimeFolder,
		Parents:    []string{rootID},
		Properties: map[string]string{propCreatedBy: b.principal.Email},
	})
	if err != nil {
		return nil, err
	}
	return folderFromFile(created)
}

// requireCreator loads fileID and fails unless the principal created it.
func (b *DriveBackend) requireCreator(ctx context.Context, fileID string) (*drivev3.File, error) {
	file, err := b.client.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	creator, err := creatorOf(file)
	if err != nil {
		return nil, err
	}
	if creator != b.principal.Email {
		return nil, fmt.Errorf("%w: only %s may change %s", appErr.ErrForbidden, creator, fileID)
	}
	return file, nil
}

func (b *DriveBackend) DeleteFolder(ctx context.Context, folderID string) error {
	if _, err := b.requireCreator(ctx, folderID); err != nil {
		return err
	}
	return b.client.Delete(ctx, folderID)
}

func (b *DriveBackend) CreateNote(ctx context.Context, folderID *string, title, content string) (*model.Note, error) {
	parent, err := b.root()
	if err != nil {
		return nil, err
	}
	if folderID != nil {
		parent = *folderID
	}
	created, err := b.client.CreateWithContent(ctx, &drivev3.File{
		Name:     noteFileName(title),
		Parents:  []string{parent},
		MimeType: drive.MimeText,
		Properties: map[string]string{
			propCreatedBy:     b.principal.Email,
			propCreatedByName: b.principal.Name,
			propNoteTitle:     title,
		},
	}, drive.MimeText, []byte(content))
	if err != nil {
		return nil, err
	}
	return noteFromFile(created, folderID, content)
}

// UpdateNote patches the title properties and then uploads the body. The two
// requests are not atomic; a failure between them leaves the new title with
// the old body.
func (b *DriveBackend) UpdateNote(ctx context.Context, note *model.Note) (*model.Note, error) {
	if _, err := b.requireCreator(ctx, note.ID); err != nil {
		return nil, err
	}
	_, err := b.client.UpdateMetadata(ctx, note.ID, &drivev3.File{
		Name:       noteFileName(note.Title),
		Properties: map[string]string{propNoteTitle: note.Title},
	})
	if err != nil {
		return nil, err
	}
	updated, err := b.client.Overwrite(ctx, note.ID, drive.MimeText, []byte(note.Content))
	if err != nil {
		return nil, err
	}
	return noteFromFile(updated, note.FolderID, note.Content)
}

func (b *DriveBackend) DeleteNote(ctx context.Context, noteID string) error {
	if _, err := b.requireCreator(ctx, noteID); err != nil {
		return err
	}
	return b.client.Delete(ctx, noteID)
}

// Invite records email as the pending invitee and shares the root directory
// with them. The selection scope does not apply to the capacity model.
func (b *DriveBackend) Invite(ctx context.Context, _ model.InviteScope, email string) (*model.InviteResult, error) {
	rootID, err := b.root()
	if err != nil {
		return nil, err
	}
	meta, err := b.GetWorkspaceMetadata(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("workspace metadata: %w", appErr.ErrNotFound)
	}
	if err := b.capacity.CheckInvite(meta, b.principal.Email, email); err != nil {
		return nil, err
	}
	next := b.capacity.Invite(meta, email)
	if err := b.UpdateWorkspaceMetadata(ctx, rootID, next); err != nil {
		return nil, err
	}
	if err := b.ShareDirectory(ctx, rootID, email); err != nil {
		return nil, err
	}
	b.setWorkspace(rootID, next)
	logutil.GetLogger(ctx).Info("workspace invite sent", zap.String("owner", b.principal.Email), zap.String("invitee", email))
	return &model.InviteResult{Kind: model.InviteWorkspace, Email: email, Metadata: next.Clone()}, nil
}
