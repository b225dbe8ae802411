package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	birderrors "github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/jsonvalue"
)

var crlf = []byte("\r\n")

// StreamDecoder turns a byte stream of CRLF-delimited JSON documents into
// values. Partial documents stay buffered until the rest arrives; malformed
// segments are dropped through the next CRLF. It is not safe for concurrent
// use; feed it from a single delivery context.
type StreamDecoder struct {
	buf     []byte
	emit    func(jsonvalue.Value)
	onError func(error)
}

// NewStreamDecoder returns a decoder that calls emit for every document.
func NewStreamDecoder(emit func(jsonvalue.Value)) *StreamDecoder {
	return &StreamDecoder{emit: emit}
}

// OnError registers a hook for dropped segments. Each call receives an
// ErrCodeDecode error carrying the dropped bytes.
func (d *StreamDecoder) OnError(fn func(error)) *StreamDecoder {
	d.onError = fn
	return d
}

// Write appends p and emits every complete document. It never fails.
func (d *StreamDecoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	d.drain(false)
	return len(p), nil
}

// Pending returns the number of buffered bytes not yet decoded.
func (d *StreamDecoder) Pending() int { return len(d.buf) }

// Flush decodes whatever is buffered as if the stream ended, then resets.
// Complete segments are still delivered; only the unterminated tail is
// reported as dropped.
func (d *StreamDecoder) Flush() {
	d.drain(true)
	if len(bytes.TrimSpace(d.buf)) > 0 {
		d.drop(d.buf, io.ErrUnexpectedEOF)
	}
	d.buf = nil
}

// Reset discards buffered bytes.
func (d *StreamDecoder) Reset() { d.buf = nil }

func (d *StreamDecoder) drain(final bool) {
	for {
		d.buf = bytes.TrimLeft(d.buf, " \t\r\n")
		if len(d.buf) == 0 {
			d.buf = nil
			return
		}

		dec := json.NewDecoder(bytes.NewReader(d.buf))
		dec.UseNumber()
		var v any
		err := dec.Decode(&v)
		switch {
		case err == nil:
			end := int(dec.InputOffset())
			// A number at the very end may still be growing.
			if !final && end == len(d.buf) && isScalar(v) {
				return
			}
			d.emit(jsonvalue.Wrap(v))
			d.buf = d.buf[end:]
		case errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF):
			// The decoder reads CRLF as whitespace, so a fragment followed by
			// CRLF swallows the next document. Segments end at CRLF.
			idx := bytes.Index(d.buf, crlf)
			if idx < 0 {
				// Incomplete; wait for more bytes or let Flush report it.
				return
			}
			d.drop(d.buf[:idx], err)
			d.buf = d.buf[idx+len(crlf):]
		default:
			idx := bytes.Index(d.buf, crlf)
			if idx < 0 {
				if final {
					d.drop(d.buf, err)
					d.buf = nil
				}
				return
			}
			d.drop(d.buf[:idx], err)
			d.buf = d.buf[idx+len(crlf):]
		}
	}
}

func (d *StreamDecoder) drop(segment []byte, cause error) {
	if d.onError == nil {
		return
	}
	d.onError(birderrors.Decode(bytes.Clone(segment), cause))
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}
