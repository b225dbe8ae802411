package main

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kbukum/birdkit/httpclient"
	"github.com/kbukum/birdkit/jsonvalue"
)

// parseParams turns key=value arguments into ordered parameters.
func parseParams(args []string) (httpclient.Params, error) {
	params := make(httpclient.Params, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q must have the form key=value", arg)
		}
		params = append(params, httpclient.Param{Key: key, Value: value})
	}
	return params, nil
}

// parseUploads reads field=path arguments into upload parts.
func parseUploads(specs []string, readFile func(string) ([]byte, error)) ([]httpclient.UploadPart, error) {
	parts := make([]httpclient.UploadPart, 0, len(specs))
	for _, spec := range specs {
		field, path, ok := strings.Cut(spec, "=")
		if !ok || field == "" || path == "" {
			return nil, fmt.Errorf("file %q must have the form field=path", spec)
		}
		data, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = httpclient.DefaultUploadMIMEType
		}
		parts = append(parts, httpclient.UploadPart{
			Data:      data,
			FieldName: field,
			FileName:  filepath.Base(path),
			MIMEType:  mimeType,
		})
	}
	return parts, nil
}

func readFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// printDocument writes doc on one line, or indented when pretty is set. An
// absent document prints nothing.
func printDocument(w io.Writer, doc jsonvalue.Value, pretty bool) error {
	if !doc.Exists() {
		return nil
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
