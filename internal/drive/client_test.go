package drive

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	drivev3 "google.golang.org/api/drive/v3"

	"github.com/xxxsen/justnotes/internal/drive/drivetest"
	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

func newTestClient(t *testing.T) (*Client, *drivetest.Server) {
	t.Helper()
	srv := drivetest.NewServer(t)
	client, err := NewClient(context.Background(), srv.URL, "token")
	require.NoError(t, err)
	return client, srv
}

func TestBuildRelatedFraming(t *testing.T) {
	body, ct, err := BuildRelated(
		Part{ContentType: MimeJSON, Body: []byte(`{"name":"a"}`)},
		Part{ContentType: MimeText, Body: []byte("hello")},
	)
	require.NoError(t, err)
	require.Equal(t, `multipart/related; boundary="-------314159265358979323846"`, ct)
	want := "--" + Boundary + "\r\nContent-Type: application/json\r\n\r\n{\"name\":\"a\"}" +
		"\r\n--" + Boundary + "\r\nContent-Type: text/plain\r\n\r\nhello" +
		"\r\n--" + Boundary + "--\r\n"
	require.Equal(t, want, string(body))
}

func TestQueryString(t *testing.T) {
	q := NewQuery().Name("it's").Parent("root-1").MimeType(MimeFolder).String()
	require.Equal(t, `name='it\'s' and 'root-1' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false`, q)
}

func TestSearchAndCreate(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	found, err := client.FindOne(ctx, NewQuery().Name("NotesData").MimeType(MimeFolder))
	require.NoError(t, err)
	require.Nil(t, found)

	created, err := client.Create(ctx, &drivev3.File{Name: "NotesData", MimeType: MimeFolder})
	require.NoError(t, err)
	require.NotEmpty(t, created.Id)

	found, err = client.FindOne(ctx, NewQuery().Name("NotesData").MimeType(MimeFolder))
	require.NoError(t, err)
	require.Equal(t, created.Id, found.Id)
}

func TestCreateWithContentUsesFixedBoundary(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	file, err := client.CreateWithContent(ctx, &drivev3.File{
		Name:       "hello.txt",
		MimeType:   MimeText,
		Parents:    []string{"root"},
		Properties: map[string]string{"noteTitle": "hello"},
	}, MimeText, []byte("body"))
	require.NoError(t, err)
	require.Equal(t, "hello.txt", file.Name)
	require.Equal(t, "hello", file.Properties["noteTitle"])
	require.Equal(t, []string{Boundary}, srv.Boundaries())

	data, err := client.Download(ctx, file.Id)
	require.NoError(t, err)
	require.Equal(t, "body", string(data))
}

func TestOverwriteAndUpdateMetadata(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()
	id := srv.Put("a.txt", MimeText, "root", map[string]string{"noteTitle": "a"}, []byte("old"))

	_, err := client.Overwrite(ctx, id, MimeText, []byte("new"))
	require.NoError(t, err)
	content, _ := srv.Content(id)
	require.Equal(t, "new", string(content))

	updated, err := client.UpdateMetadata(ctx, id, &drivev3.File{Name: "b.txt", Properties: map[string]string{"noteTitle": "b"}})
	require.NoError(t, err)
	require.Equal(t, "b.txt", updated.Name)
	require.Equal(t, "b", updated.Properties["noteTitle"])
}

func TestErrorsAreClassified(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	_, err := client.Download(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	id := srv.Put("root", MimeFolder, "", nil, nil)
	err = client.GrantWriter(ctx, id, "not-an-email")
	require.ErrorIs(t, err, appErr.ErrRemote)
	require.True(t, strings.Contains(err.Error(), "Invalid email"))

	srv.FailNext["GET /drive/v3/files"] = http.StatusInternalServerError
	_, err = client.Search(ctx, NewQuery().Name("x"))
	require.ErrorIs(t, err, appErr.ErrRemote)
}

func TestDeleteAndGrant(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()
	id := srv.Put("root", MimeFolder, "", nil, nil)

	require.NoError(t, client.GrantWriter(ctx, id, "guest@x.com"))
	perms := srv.Permissions()
	require.Len(t, perms, 1)
	require.Equal(t, "writer", perms[0].Role)
	require.Equal(t, "guest@x.com", perms[0].Email)

	require.NoError(t, client.Delete(ctx, id))
	require.ErrorIs(t, client.Delete(ctx, id), appErr.ErrNotFound)
}
