package drive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// Boundary is the fixed multipart/related boundary used for combined
// metadata + content uploads.
const Boundary = "-------314159265358979323846"

type Part struct {
	ContentType string
	Body        []byte
}

func JSONPart(v interface{}) (Part, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Part{}, fmt.Errorf("encode multipart json part: %w", err)
	}
	return Part{ContentType: MimeJSON, Body: raw}, nil
}

// BuildRelated frames parts as
// --boundary CRLF Content-Type: ... CRLF CRLF <part> ... --boundary--
// and returns the body and the request Content-Type.
func BuildRelated(parts ...Part) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.SetBoundary(Boundary); err != nil {
		return nil, "", err
	}
	for _, part := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", part.ContentType)
		pw, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := pw.Write(part.Body); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf(`multipart/related; boundary="%s"`, Boundary), nil
}
