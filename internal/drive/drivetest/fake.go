// Package drivetest runs an in-memory stand-in for the subset of the Drive
// v3 REST surface the drive client uses.
package drivetest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type File struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	MimeType     string            `json:"mimeType"`
	Parents      []string          `json:"parents,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
	CreatedTime  string            `json:"createdTime"`
	ModifiedTime string            `json:"modifiedTime"`
	Owners       []Owner           `json:"owners,omitempty"`
	content      []byte
	trashed      bool
}

type Owner struct {
	EmailAddress string `json:"emailAddress"`
}

type Permission struct {
	FileID string
	Email  string
	Role   string
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	seq         int
	clock       time.Time
	files       map[string]*File
	permissions []Permission
	boundaries  []string
	requests    map[string]int
	// Owner is reported as the owner of files created through the fake.
	Owner string
	// FailNext makes the next request whose "METHOD path" matches the key
	// fail with the given status.
	FailNext map[string]int
}

func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		files:    make(map[string]*File),
		requests: make(map[string]int),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FailNext: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) now() string {
	s.clock = s.clock.Add(time.Second)
	return s.clock.Format(time.RFC3339Nano)
}

func (s *Server) nextID() string {
	s.seq++
	return fmt.Sprintf("file-%d", s.seq)
}

// Put seeds a file directly and returns its id.
func (s *Server) Put(name, mimeType, parent string, props map[string]string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now()
	f := &File{ID: s.nextID(), Name: name, MimeType: mimeType, Properties: props, CreatedTime: ts, ModifiedTime: ts, content: content}
	if parent != "" {
		f.Parents = []string{parent}
	}
	s.files[f.ID] = f
	return f.ID
}

func (s *Server) Content(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.content...), true
}

func (s *Server) Lookup(name string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.Name == name && !f.trashed {
			return *f, true
		}
	}
	return File{}, false
}

func (s *Server) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
}

func (s *Server) Permissions() []Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Permission(nil), s.permissions...)
}

// Boundaries lists the multipart boundaries seen so far.
func (s *Server) Boundaries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.boundaries...)
}

func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := r.URL.Path
	route := routeKey(r.Method, path)
	s.requests[route]++
	if code, ok := s.FailNext[route]; ok {
		delete(s.FailNext, route)
		writeError(w, code, "injected failure")
		return
	}

	switch {
	case path == "/drive/v3/files" && r.Method == http.MethodGet:
		s.list(w, r)
	case path == "/drive/v3/files" && r.Method == http.MethodPost:
		s.createMeta(w, r)
	case path == "/upload/drive/v3/files" && r.Method == http.MethodPost:
		s.createMultipart(w, r)
	case strings.HasPrefix(path, "/upload/drive/v3/files/") && r.Method == http.MethodPatch:
		s.overwrite(w, r, strings.TrimPrefix(path, "/upload/drive/v3/files/"))
	case strings.HasSuffix(path, "/permissions") && r.Method == http.MethodPost:
		s.grant(w, r, strings.TrimSuffix(strings.TrimPrefix(path, "/drive/v3/files/"), "/permissions"))
	case strings.HasPrefix(path, "/drive/v3/files/"):
		id := strings.TrimPrefix(path, "/drive/v3/files/")
		switch r.Method {
		case http.MethodGet:
			s.get(w, r, id)
		case http.MethodPatch:
			s.patch(w, r, id)
		case http.MethodDelete:
			s.delete(w, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "unknown route "+path)
	}
}

func routeKey(method, path string) string {
	switch {
	case path == "/drive/v3/files", path == "/upload/drive/v3/files":
		return method + " " + path
	case strings.HasSuffix(path, "/permissions"):
		return method + " /drive/v3/files/:id/permissions"
	case strings.HasPrefix(path, "/upload/drive/v3/files/"):
		return method + " /upload/drive/v3/files/:id"
	case strings.HasPrefix(path, "/drive/v3/files/"):
		return method + " /drive/v3/files/:id"
	}
	return method + " " + path
}

var (
	eqClause     = regexp.MustCompile(`^(name|mimeType)\s*=\s*'((?:[^'\\]|\\.)*)'$`)
	parentClause = regexp.MustCompile(`^'((?:[^'\\]|\\.)*)' in parents$`)
)

func unescape(v string) string {
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(v)
}

func (s *Server) matches(f *File, q string) bool {
	for _, clause := range strings.Split(q, " and ") {
		clause = strings.TrimSpace(clause)
		if clause == "trashed=false" {
			if f.trashed {
				return false
			}
			continue
		}
		if m := eqClause.FindStringSubmatch(clause); m != nil {
			value := unescape(m[2])
			if (m[1] == "name" && f.Name != value) || (m[1] == "mimeType" && f.MimeType != value) {
				return false
			}
			continue
		}
		if m := parentClause.FindStringSubmatch(clause); m != nil {
			parent := unescape(m[1])
			found := false
			for _, p := range f.Parents {
				if p == parent {
					found = true
				}
			}
			if !found {
				return false
			}
			continue
		}
		return false
	}
	return true
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	out := make([]*File, 0)
	for _, f := range s.files {
		if s.matches(f, q) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTime < out[j].CreatedTime })
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": out})
}

func (s *Server) newFile(meta File, content []byte) *File {
	ts := s.now()
	f := &File{
		ID:           s.nextID(),
		Name:         meta.Name,
		MimeType:     meta.MimeType,
		Parents:      meta.Parents,
		Properties:   meta.Properties,
		CreatedTime:  ts,
		ModifiedTime: ts,
		content:      content,
	}
	if s.Owner != "" {
		f.Owners = []Owner{{EmailAddress: s.Owner}}
	}
	s.files[f.ID] = f
	return f
}

func (s *Server) createMeta(w http.ResponseWriter, r *http.Request) {
	var meta File
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.newFile(meta, nil))
}

func (s *Server) createMultipart(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("uploadType") != "multipart" {
		writeError(w, http.StatusBadRequest, "uploadType must be multipart")
		return
	}
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/related" {
		writeError(w, http.StatusBadRequest, "expected multipart/related")
		return
	}
	s.boundaries = append(s.boundaries, params["boundary"])
	reader := multipart.NewReader(r.Body, params["boundary"])
	metaPart, err := reader.NextPart()
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing metadata part")
		return
	}
	var meta File
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "bad metadata part")
		return
	}
	contentPart, err := reader.NextPart()
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing content part")
		return
	}
	content, err := io.ReadAll(contentPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.newFile(meta, content))
}

func (s *Server) overwrite(w http.ResponseWriter, r *http.Request, id string) {
	f, ok := s.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id)
		return
	}
	content, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.content = content
	f.ModifiedTime = s.now()
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request, id string) {
	f, ok := s.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id)
		return
	}
	if r.URL.Query().Get("alt") == "media" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(f.content)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request, id string) {
	f, ok := s.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id)
		return
	}
	var meta File
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if meta.Name != "" {
		f.Name = meta.Name
	}
	if len(meta.Properties) > 0 {
		if f.Properties == nil {
			f.Properties = map[string]string{}
		}
		for k, v := range meta.Properties {
			f.Properties[k] = v
		}
	}
	f.ModifiedTime = s.now()
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) delete(w http.ResponseWriter, id string) {
	if _, ok := s.files[id]; !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id)
		return
	}
	s.deleteTree(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTree(id string) {
	delete(s.files, id)
	for childID, f := range s.files {
		for _, p := range f.Parents {
			if p == id {
				s.deleteTree(childID)
			}
		}
	}
}

func (s *Server) grant(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.files[id]; !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id)
		return
	}
	var body struct {
		Type         string `json:"type"`
		Role         string `json:"role"`
		EmailAddress string `json:"emailAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !strings.Contains(body.EmailAddress, "@") {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	s.permissions = append(s.permissions, Permission{FileID: id, Email: body.EmailAddress, Role: body.Role})
	writeJSON(w, http.StatusOK, map[string]string{"id": fmt.Sprintf("perm-%d", len(s.permissions)), "role": body.Role, "type": body.Type})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": msg},
	})
}
