// Package drive is a thin client for the Drive v3 REST surface: search,
// metadata create/update, permission grants, downloads and the two upload
// encodings (multipart/related create, media-only overwrite).
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const DefaultAPIBase = "https://www.googleapis.com"

const fileFields = "id,name,mimeType,parents,createdTime,modifiedTime,properties,owners(emailAddress)"

type Client struct {
	svc     *drivev3.Service
	http    *http.Client
	apiBase string
}

// NewClient builds a client bound to one access token.
func NewClient(ctx context.Context, apiBase, accessToken string) (*Client, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return NewClientWithHTTP(ctx, apiBase, oauth2.NewClient(ctx, src))
}

func NewClientWithHTTP(ctx context.Context, apiBase string, httpClient *http.Client) (*Client, error) {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	apiBase = strings.TrimSuffix(apiBase, "/")
	svc, err := drivev3.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(apiBase+"/drive/v3/"),
	)
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}
	return &Client{svc: svc, http: httpClient, apiBase: apiBase}, nil
}

// Search lists every file matching q across all result pages.
func (c *Client) Search(ctx context.Context, q *Query) ([]*drivev3.File, error) {
	files := make([]*drivev3.File, 0)
	call := c.svc.Files.List().
		Q(q.String()).
		Fields(googleapi.Field("nextPageToken,files(" + fileFields + ")"))
	err := call.Pages(ctx, func(page *drivev3.FileList) error {
		files = append(files, page.Files...)
		return nil
	})
	if err != nil {
		return nil, wrapErr("search files", err)
	}
	return files, nil
}

// FindOne returns the first match or nil.
func (c *Client) FindOne(ctx context.Context, q *Query) (*drivev3.File, error) {
	files, err := c.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

// Create creates a metadata-only file, e.g. a directory.
func (c *Client) Create(ctx context.Context, file *drivev3.File) (*drivev3.File, error) {
	out, err := c.svc.Files.Create(file).Fields(googleapi.Field(fileFields)).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("create file", err)
	}
	return out, nil
}

// CreateWithContent creates a file and its content in one multipart/related
// request; the API has no separate metadata+content creation for new files.
func (c *Client) CreateWithContent(ctx context.Context, file *drivev3.File, contentType string, content []byte) (*drivev3.File, error) {
	meta, err := JSONPart(file)
	if err != nil {
		return nil, err
	}
	body, ct, err := BuildRelated(meta, Part{ContentType: contentType, Body: content})
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("uploadType", "multipart")
	params.Set("fields", fileFields)
	endpoint := c.apiBase + "/upload/drive/v3/files?" + params.Encode()
	out := &drivev3.File{}
	if err := c.upload(ctx, http.MethodPost, endpoint, ct, body, out); err != nil {
		return nil, wrapErr("create file with content", err)
	}
	return out, nil
}

// Overwrite replaces the content of an existing file (single-part upload).
func (c *Client) Overwrite(ctx context.Context, fileID, contentType string, content []byte) (*drivev3.File, error) {
	params := url.Values{}
	params.Set("uploadType", "media")
	params.Set("fields", fileFields)
	endpoint := c.apiBase + "/upload/drive/v3/files/" + url.PathEscape(fileID) + "?" + params.Encode()
	out := &drivev3.File{}
	if err := c.upload(ctx, http.MethodPatch, endpoint, contentType, content, out); err != nil {
		return nil, wrapErr("overwrite file", err)
	}
	return out, nil
}

func (c *Client) UpdateMetadata(ctx context.Context, fileID string, patch *drivev3.File) (*drivev3.File, error) {
	out, err := c.svc.Files.Update(fileID, patch).Fields(googleapi.Field(fileFields)).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("update file metadata", err)
	}
	return out, nil
}

// Get fetches file metadata.
func (c *Client) Get(ctx context.Context, fileID string) (*drivev3.File, error) {
	out, err := c.svc.Files.Get(fileID).Fields(googleapi.Field(fileFields)).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("get file", err)
	}
	return out, nil
}

func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, wrapErr("download file", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapErr("read file content", err)
	}
	return data, nil
}

func (c *Client) Delete(ctx context.Context, fileID string) error {
	if err := c.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return wrapErr("delete file", err)
	}
	return nil
}

// GrantWriter gives email write access to fileID.
func (c *Client) GrantWriter(ctx context.Context, fileID, email string) error {
	perm := &drivev3.Permission{Type: "user", Role: "writer", EmailAddress: email}
	if _, err := c.svc.Permissions.Create(fileID, perm).Context(ctx).Do(); err != nil {
		return wrapErr("grant permission", err)
	}
	return nil
}

func (c *Client) upload(ctx context.Context, method, endpoint, contentType string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
