package httpclient

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// DefaultUploadMIMEType is used for parts that do not name a content type.
const DefaultUploadMIMEType = "application/octet-stream"

// UploadPart is one binary part of a multipart/form-data body.
type UploadPart struct {
	// FieldName is the form field name (e.g., "media").
	FieldName string
	// FileName is sent as the filename attribute when non-empty.
	FileName string
	// MIMEType defaults to application/octet-stream.
	MIMEType string
	// Data is the part content.
	Data []byte
}

// NewBoundary returns a fresh multipart boundary.
func NewBoundary() string {
	return "birdkit-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// EncodeMultipart builds a multipart/form-data body: one part per upload,
// then one field per wire parameter, then the closing delimiter.
func EncodeMultipart(boundary string, parts []UploadPart, params Params) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, err
	}

	for _, part := range parts {
		disposition := `form-data; name="` + escapeQuotes(part.FieldName) + `"`
		if part.FileName != "" {
			disposition += `; filename="` + escapeQuotes(part.FileName) + `"`
		}
		mimeType := part.MIMEType
		if mimeType == "" {
			mimeType = DefaultUploadMIMEType
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", disposition)
		header.Set("Content-Type", mimeType)

		pw, err := w.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write(part.Data); err != nil {
			return nil, err
		}
	}

	for _, kv := range params.WireParams() {
		if err := w.WriteField(kv.Key, FormatValue(kv.Value)); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MultipartContentType is the Content-Type header value for boundary.
func MultipartContentType(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}

// escapeQuotes replaces special characters in header values.
func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
