package drive

import (
	"fmt"
	"strings"
)

const (
	MimeFolder = "application/vnd.google-apps.folder"
	MimeText   = "text/plain"
	MimeJSON   = "application/json"
)

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quote(v string) string {
	return "'" + queryEscaper.Replace(v) + "'"
}

// Query builds a files.list filter. Clauses are joined with "and"; trashed
// entries are always excluded.
type Query struct {
	clauses []string
}

func NewQuery() *Query {
	return &Query{}
}

func (q *Query) Name(name string) *Query {
	q.clauses = append(q.clauses, "name="+quote(name))
	return q
}

func (q *Query) MimeType(mime string) *Query {
	q.clauses = append(q.clauses, "mimeType="+quote(mime))
	return q
}

func (q *Query) Parent(id string) *Query {
	q.clauses = append(q.clauses, fmt.Sprintf("%s in parents", quote(id)))
	return q
}

func (q *Query) String() string {
	return strings.Join(append(append([]string{}, q.clauses...), "trashed=false"), " and ")
}
