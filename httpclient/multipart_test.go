package httpclient

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMultipart_Layout(t *testing.T) {
	body, err := EncodeMultipart("BOUNDARY",
		[]UploadPart{{FieldName: "media", FileName: "a.png", MIMEType: "image/png", Data: []byte("PNG")}},
		Params{{Key: "status", Value: "hi"}, {Key: "oauth_nonce", Value: "n"}},
	)
	require.NoError(t, err)

	want := "--BOUNDARY\r\n" +
		"Content-Disposition: form-data; name=\"media\"; filename=\"a.png\"\r\n" +
		"Content-Type: image/png\r\n" +
		"\r\n" +
		"PNG\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Disposition: form-data; name=\"status\"\r\n" +
		"\r\n" +
		"hi\r\n" +
		"--BOUNDARY--\r\n"
	assert.Equal(t, want, string(body))
}

func TestEncodeMultipart_Defaults(t *testing.T) {
	boundary := NewBoundary()
	assert.True(t, strings.HasPrefix(boundary, "birdkit-"))

	body, err := EncodeMultipart(boundary, []UploadPart{{FieldName: "media", Data: []byte{0, 1, 2}}}, nil)
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(MultipartContentType(boundary))
	require.NoError(t, err)
	assert.Equal(t, boundary, params["boundary"])

	r := multipart.NewReader(bytes.NewReader(body), boundary)
	part, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "media", part.FormName())
	assert.Empty(t, part.FileName())
	assert.Equal(t, DefaultUploadMIMEType, part.Header.Get("Content-Type"))
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)

	_, err = r.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewBoundary_Unique(t *testing.T) {
	assert.NotEqual(t, NewBoundary(), NewBoundary())
}
