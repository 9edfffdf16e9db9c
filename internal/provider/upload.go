package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
)

// Field is a plain form field of a multipart upload.
type Field struct {
	Name  string
	Value string
}

// Upload is a buffered multipart body containing text fields followed by one
// audio file. Reading it through Request reports bytes as they are sent.
type Upload struct {
	body        []byte
	contentType string
}

// NewUpload encodes fields and the file at path under fileField.
func NewUpload(fields []Field, fileField, path string) (*Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, fld := range fields {
		if err := mw.WriteField(fld.Name, fld.Value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", fld.Name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filepath.Base(path)))
	h.Set("Content-Type", audioContentType(path))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read sample: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return &Upload{body: buf.Bytes(), contentType: mw.FormDataContentType()}, nil
}

// Size returns the encoded body length in bytes.
func (u *Upload) Size() int64 { return int64(len(u.body)) }

// ContentType returns the multipart content type including the boundary.
func (u *Upload) ContentType() string { return u.contentType }

// Request builds a POST request streaming the body. onSent, if not nil, is
// called with cumulative bytes as the transport reads the body.
func (u *Upload) Request(ctx context.Context, url string, onSent func(sent, total int64)) (*http.Request, error) {
	var body io.Reader = bytes.NewReader(u.body)
	if onSent != nil {
		body = &progressReader{r: body, total: u.Size(), onSent: onSent}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = u.Size()
	req.Header.Set("Content-Type", u.contentType)
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}

// progressReader passes reads through and reports the running byte count.
type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	onSent func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.onSent(p.sent, p.total)
	}
	return n, err
}

func audioContentType(path string) string {
	switch ext := filepath.Ext(path); ext {
	case ".mp3", "":
		return "audio/mpeg"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
