package backend

import (
	"context"
	"encoding/json"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	drivev3 "google.golang.org/api/drive/v3"

	"github.com/xxxsen/justnotes/internal/drive"
	"github.com/xxxsen/justnotes/internal/model"
)

func (b *DriveBackend) commentsQuery(rootID, noteID string) *drive.Query {
	return drive.NewQuery().Name(commentsFileName(noteID)).Parent(rootID)
}

// GetComments reads the note's sidecar; a missing sidecar means no comments.
func (b *DriveBackend) GetComments(ctx context.Context, noteID, rootID string) ([]model.Comment, error) {
	file, err := b.client.FindOne(ctx, b.commentsQuery(rootID, noteID))
	if err != nil {
		return nil, err
	}
	if file == nil {
		return []model.Comment{}, nil
	}
	return b.readComments(ctx, file.Id, noteID)
}

func (b *DriveBackend) readComments(ctx context.Context, fileID, noteID string) ([]model.Comment, error) {
	data, err := b.client.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	decoded, err := decodeComments(data)
	if err != nil {
		return nil, err
	}
	comments := make([]model.Comment, 0, len(decoded.Comments))
	for i := range decoded.Comments {
		c := decoded.Comments[i]
		if err := validComment(&c, noteID); err != nil {
			logutil.GetLogger(ctx).Warn("skip malformed comment", zap.String("note_id", noteID), zap.Error(err))
			continue
		}
		c.CreatedAt = c.CreatedAt.UTC()
		comments = append(comments, c)
	}
	return comments, nil
}

// AddComment appends to the sidecar with search, read, append, overwrite.
// Writers in this process are serialised per note; writers elsewhere are
// not, and the later overwrite wins.
func (b *DriveBackend) AddComment(ctx context.Context, comment *model.Comment) (*model.Comment, error) {
	rootID, err := b.root()
	if err != nil {
		return nil, err
	}
	unlock := b.locks.Lock(rootID + "/" + comment.NoteID)
	defer unlock()

	file, err := b.client.FindOne(ctx, b.commentsQuery(rootID, comment.NoteID))
	if err != nil {
		return nil, err
	}
	if file == nil {
		body, err := json.Marshal(commentsFile{Comments: []model.Comment{*comment}})
		if err != nil {
			return nil, err
		}
		_, err = b.client.CreateWithContent(ctx, &drivev3.File{
			Name:     commentsFileName(comment.NoteID),
			Parents:  []string{rootID},
			MimeType: drive.MimeJSON,
		}, drive.MimeJSON, body)
		if err != nil {
			return nil, err
		}
		return comment, nil
	}
	existing, err := b.readComments(ctx, file.Id, comment.NoteID)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(commentsFile{Comments: append(existing, *comment)})
	if err != nil {
		return nil, err
	}
	if _, err := b.client.Overwrite(ctx, file.Id, drive.MimeJSON, body); err != nil {
		return nil, err
	}
	return comment, nil
}

func (b *DriveBackend) ListComments(ctx context.Context, noteID string) ([]model.Comment, error) {
	rootID, err := b.root()
	if err != nil {
		return nil, err
	}
	return b.GetComments(ctx, noteID, rootID)
}
