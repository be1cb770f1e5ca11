package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/xxxsen/justnotes/internal/filestore"
	"github.com/xxxsen/justnotes/internal/model"
	"github.com/xxxsen/justnotes/internal/pkg/timeutil"
)

type ExportPayload struct {
	Owner      string                     `json:"owner"`
	ExportedAt time.Time                  `json:"exported_at"`
	LastSync   *time.Time                 `json:"last_sync,omitempty"`
	Folders    []model.Folder             `json:"folders"`
	Notes      []model.Note               `json:"notes"`
	Comments   map[string][]model.Comment `json:"comments"`
}

type ExportResult struct {
	Key   string `json:"key"`
	URL   string `json:"url,omitempty"`
	Notes int    `json:"notes"`
	Size  int64  `json:"size"`
}

type ExportService struct {
	store filestore.Store
	md    goldmark.Markdown
}

func NewExportService(store filestore.Store) *ExportService {
	return &ExportService{
		store: store,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Export writes snap as a zip with workspace.json and one html page per
// note, and stores it under a key derived from owner.
func (s *ExportService) Export(ctx context.Context, owner string, snap *model.Snapshot) (*ExportResult, error) {
	if snap == nil {
		snap = &model.Snapshot{}
	}
	tmp, err := os.CreateTemp("", "justnotes-export-*.zip")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	now := timeutil.Now()
	if err := s.writeArchive(tmp, owner, now, snap); err != nil {
		return nil, err
	}
	size, err := tmp.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	key := exportKey(owner, now)
	if err := s.store.Save(ctx, key, tmp, size); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}
	return &ExportResult{Key: key, Notes: len(snap.Notes), Size: size}, nil
}

func (s *ExportService) URL(ctx context.Context, key, baseURL string) (string, error) {
	return s.store.URL(ctx, key, baseURL)
}

func (s *ExportService) writeArchive(w io.Writer, owner string, now time.Time, snap *model.Snapshot) error {
	writer := zip.NewWriter(w)
	payload := ExportPayload{
		Owner:      owner,
		ExportedAt: now,
		LastSync:   snap.LastSync,
		Folders:    snap.Folders,
		Notes:      snap.Notes,
		Comments:   snap.Comments,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		_ = writer.Close()
		return err
	}
	if err := writeEntry(writer, "workspace.json", data); err != nil {
		_ = writer.Close()
		return err
	}

	folderNames := make(map[string]string, len(snap.Folders))
	for _, folder := range snap.Folders {
		folderNames[folder.ID] = folder.Name
	}
	used := make(map[string]bool, len(snap.Notes))
	for _, note := range snap.Notes {
		dir := "notes"
		if note.FolderID != nil {
			if name, ok := folderNames[*note.FolderID]; ok {
				dir += "/" + slug(name)
			}
		}
		filename := uniqueName(used, dir+"/"+slug(note.Title))
		page, err := s.renderNote(note, snap.Comments[note.ID])
		if err != nil {
			_ = writer.Close()
			return fmt.Errorf("render note %s: %w", note.ID, err)
		}
		if err := writeEntry(writer, filename+".html", page); err != nil {
			_ = writer.Close()
			return err
		}
	}
	return writer.Close()
}

func (s *ExportService) renderNote(note model.Note, comments []model.Comment) ([]byte, error) {
	var body bytes.Buffer
	if err := s.md.Convert([]byte(note.Content), &body); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	title := html.EscapeString(note.Title)
	fmt.Fprintf(&out, "<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n", title)
	fmt.Fprintf(&out, "<h1>%s</h1>\n<p class=\"meta\">%s &middot; %s</p>\n", title,
		html.EscapeString(note.CreatedByName), timeutil.FormatISO(note.UpdatedAt))
	out.Write(body.Bytes())
	if len(comments) > 0 {
		out.WriteString("<h2>Comments</h2>\n<ul class=\"comments\">\n")
		for _, comment := range comments {
			fmt.Fprintf(&out, "<li><strong>%s</strong> <time>%s</time><p>%s</p></li>\n",
				html.EscapeString(comment.CreatedByName),
				timeutil.FormatISO(comment.CreatedAt),
				html.EscapeString(comment.Content))
		}
		out.WriteString("</ul>\n")
	}
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}

func writeEntry(writer *zip.Writer, name string, data []byte) error {
	entry, err := writer.Create(name)
	if err != nil {
		return err
	}
	_, err = entry.Write(data)
	return err
}

// uniqueName returns base, or base-N with the smallest N >= 2, whichever
// is not yet in used, and records it.
func uniqueName(used map[string]bool, base string) string {
	name := base
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s-%d", base, n)
	}
	used[name] = true
	return name
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

func slug(value string) string {
	out := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(value), "-"), "-")
	if out == "" {
		return "untitled"
	}
	if len(out) > 64 {
		out = strings.TrimRight(out[:64], "-")
	}
	return out
}

func exportKey(owner string, now time.Time) string {
	hash := sha256.Sum256([]byte(strings.ToLower(owner)))
	return fmt.Sprintf("exports/%s/%s-%s.zip", hex.EncodeToString(hash[:8]), now.Format("20060102T150405Z"), uuid.NewString()[:8])
}
