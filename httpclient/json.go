package httpclient

import (
	"bytes"
	"context"
	"net/http"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/jsonvalue"
)

// JSONHandlers are the callbacks of a JSON execution.
type JSONHandlers struct {
	// OnUploadProgress reports request body bytes handed to the transport.
	OnUploadProgress func(written, totalWritten, totalExpected int64)
	// OnDocument switches the execution to streaming mode: every
	// CRLF-delimited document is delivered as it arrives and OnSuccess
	// receives an absent value once the stream ends.
	OnDocument func(doc jsonvalue.Value)
	// OnDecodeError receives malformed stream segments, which are dropped.
	OnDecodeError func(err error)
	// OnSuccess receives the decoded body. An empty body decodes to an
	// absent value.
	OnSuccess func(doc jsonvalue.Value, env *ResponseEnvelope)
	// OnFailure receives transport, status and decode failures.
	OnFailure func(err error)
}

// NewJSONExecutor prepares an execution whose body is decoded as JSON. The
// whole-body decode runs on a worker goroutine; stream documents are decoded
// on the delivery context as chunks arrive.
func (c *Client) NewJSONExecutor(spec RequestSpec, h JSONHandlers) *Executor {
	handlers := Handlers{
		OnUploadProgress: h.OnUploadProgress,
		OnFailure:        h.OnFailure,
	}

	if h.OnDocument != nil {
		dec := NewStreamDecoder(func(doc jsonvalue.Value) {
			c.metrics.StreamDocument(context.Background())
			h.OnDocument(doc)
		}).OnError(func(err error) {
			c.metrics.StreamDropped(context.Background())
			c.log.Debug("stream segment dropped")
			if h.OnDecodeError != nil {
				h.OnDecodeError(err)
			}
		})
		handlers.OnProgress = func(chunk []byte, _, _ int64) {
			_, _ = dec.Write(chunk)
		}
		handlers.OnSuccess = func(env *ResponseEnvelope) {
			dec.Flush()
			if h.OnSuccess != nil {
				h.OnSuccess(jsonvalue.Value{}, env)
			}
		}
		return c.NewExecutor(spec, handlers)
	}

	var doc jsonvalue.Value
	handlers.Decode = func(env *ResponseEnvelope) error {
		if len(bytes.TrimSpace(env.Body)) == 0 {
			return nil
		}
		v, err := jsonvalue.Parse(env.Body)
		if err != nil {
			return errors.Decode(env.Body, err)
		}
		doc = v
		return nil
	}
	handlers.OnSuccess = func(env *ResponseEnvelope) {
		if h.OnSuccess != nil {
			h.OnSuccess(doc, env)
		}
	}
	return c.NewExecutor(spec, handlers)
}

// JSONRequest starts a JSON execution of spec.
func (c *Client) JSONRequest(ctx context.Context, spec RequestSpec, h JSONHandlers) (*Executor, error) {
	ex := c.NewJSONExecutor(spec, h)
	if err := ex.Start(ctx); err != nil {
		return nil, err
	}
	return ex, nil
}

// GetJSON is the GET-with-params call shape.
func (c *Client) GetJSON(ctx context.Context, base Base, path string, params Params, h JSONHandlers) (*Executor, error) {
	return c.JSONRequest(ctx, RequestSpec{
		Method: http.MethodGet,
		URL:    c.ResolveURL(base, path),
		Params: params,
	}, h)
}

// PostJSON is the POST-with-params call shape. Parameters are sent as a
// urlencoded form body; build a RequestSpec for raw or multipart bodies.
func (c *Client) PostJSON(ctx context.Context, base Base, path string, params Params, h JSONHandlers) (*Executor, error) {
	return c.JSONRequest(ctx, RequestSpec{
		Method:           http.MethodPost,
		URL:              c.ResolveURL(base, path),
		Params:           params,
		EncodeParameters: true,
	}, h)
}
