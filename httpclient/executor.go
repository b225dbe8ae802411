package httpclient

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/logger"
	"github.com/kbukum/birdkit/observability"
)

var (
	// ErrAlreadyStarted is returned by Start on an executor that left Idle.
	ErrAlreadyStarted = stderrors.New("httpclient: executor already started")
	// ErrCancelled is returned by Client.Do when the execution was cancelled.
	ErrCancelled = stderrors.New("httpclient: execution cancelled")
	// ErrClientClosed is returned for executions started or cut short by
	// Client.Close.
	ErrClientClosed = stderrors.New("httpclient: client closed")

	errIdleTimeout = stderrors.New("httpclient: idle timeout")
)

// Handlers are the callbacks of one execution. All of them run on the
// client's Dispatcher except Decode, which runs on a worker goroutine.
type Handlers struct {
	// OnUploadProgress reports request body bytes handed to the transport.
	OnUploadProgress func(written, totalWritten, totalExpected int64)
	// OnProgress reports each received chunk. expected is UnknownLength when
	// the server sent no length.
	OnProgress func(chunk []byte, received, expected int64)
	// Decode post-processes a successful response before OnSuccess. An error
	// turns the outcome into a failure.
	Decode func(env *ResponseEnvelope) error
	// OnSuccess receives responses with status < 400.
	OnSuccess func(env *ResponseEnvelope)
	// OnFailure receives every other outcome except cancellation.
	OnFailure func(err error)
}

// Executor runs one request. Exactly one of OnSuccess or OnFailure fires,
// once, unless the execution is cancelled first, in which case nothing fires.
type Executor struct {
	id     string
	client *Client
	spec   RequestSpec
	h      Handlers
	log    *logger.Logger

	mu      sync.Mutex
	state   ExecutionState
	cancel  context.CancelCauseFunc
	stop    func() bool
	env     *ResponseEnvelope
	started time.Time
	status  int

	terminalOnce sync.Once
	doneOnce     sync.Once
	done         chan struct{}
}

// NewExecutor prepares an execution of spec. Nothing happens until Start.
func (c *Client) NewExecutor(spec RequestSpec, h Handlers) *Executor {
	id := uuid.NewString()
	return &Executor{
		id:     id,
		client: c,
		spec:   spec,
		h:      h,
		log:    c.log.WithFields(logger.Fields(logger.FieldExecutionID, id)),
		done:   make(chan struct{}),
	}
}

// ID returns the execution id used in logs and spans.
func (e *Executor) ID() string { return e.id }

// State returns the current lifecycle state.
func (e *Executor) State() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Response returns the envelope once the body has been fully received.
func (e *Executor) Response() *ResponseEnvelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.env
}

// Done is closed after the terminal callback has returned, on cancellation,
// or when a closed client drops the callback.
func (e *Executor) Done() <-chan struct{} { return e.done }

// Start begins the exchange on its own goroutine and returns immediately.
// Cancelling ctx is equivalent to calling Cancel.
func (e *Executor) Start(ctx context.Context) error {
	if e.client.Closed() {
		return ErrClientClosed
	}
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.state = StateSending
	e.started = time.Now()
	execCtx, cancel := context.WithCancelCause(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	e.client.metrics.ExecutionStarted(execCtx, e.spec.Method)
	e.stop = context.AfterFunc(ctx, e.Cancel)
	go e.run(execCtx)
	return nil
}

// Cancel stops the execution. It is a no-op once a terminal state is reached;
// otherwise no callback fires after it returns, including ones already queued.
func (e *Executor) Cancel() {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return
	}
	wasIdle := e.state == StateIdle
	e.state = StateCancelled
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel(ErrCancelled)
	}
	if !wasIdle {
		e.client.metrics.ExecutionFinished(context.Background(), e.spec.Method,
			observability.OutcomeCancelled, 0, time.Since(e.started))
	}
	e.log.Debug("execution cancelled", logger.Fields(logger.FieldState, StateCancelled.String()))
	e.markDone()
}

func (e *Executor) markDone() {
	e.doneOnce.Do(func() { close(e.done) })
}

func (e *Executor) cancelled() bool {
	return e.State() == StateCancelled
}

// transition moves to a non-terminal state unless the execution already ended.
func (e *Executor) transition(to ExecutionState) bool {
	e.mu.Lock()
	if e.state.Terminal() || e.state == to {
		terminal := e.state.Terminal()
		e.mu.Unlock()
		return !terminal
	}
	e.state = to
	e.mu.Unlock()
	e.log.Debug("execution state changed", logger.Fields(logger.FieldState, to.String()))
	return true
}

func (e *Executor) deliver(fn func()) {
	e.client.dispatch(func() {
		if e.cancelled() {
			return
		}
		fn()
	})
}

func (e *Executor) timeout() time.Duration {
	if e.spec.Timeout > 0 {
		return e.spec.Timeout
	}
	return e.client.config.Timeout
}

func (e *Executor) run(ctx context.Context) {
	defer e.stop()

	method := e.spec.Method
	ctx, span := observability.StartSpan(ctx, observability.SpanExecute,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.HTTPAttributes(method, e.spec.URL)...),
		trace.WithAttributes(
			observability.AttrExecutionID.String(e.id),
			observability.AttrEncoding.String(e.spec.ResolveEncoding().String()),
		),
	)
	log := e.log.WithContext(ctx)
	log.Debug("execution started", logger.Fields(
		logger.FieldMethod, method,
		logger.FieldURL, e.spec.URL,
		logger.FieldEncoding, e.spec.ResolveEncoding().String(),
	))

	if lim := e.client.limiter; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			e.fail(ctx, span, e.transportError(ctx, err))
			return
		}
	}

	timeout := e.timeout()
	idle := time.AfterFunc(timeout, func() { e.cancel(errIdleTimeout) })
	defer idle.Stop()

	req, body, err := e.client.buildRequest(ctx, &e.spec)
	if err != nil {
		e.fail(ctx, span, err)
		return
	}
	if body != nil {
		req.Body = &progressReader{
			r:      bytes.NewReader(body),
			onRead: func(n int, written int64) {
				idle.Reset(timeout)
				e.client.metrics.BytesSent(ctx, n)
				if e.h.OnUploadProgress != nil {
					total := int64(len(body))
					e.deliver(func() { e.h.OnUploadProgress(int64(n), written, total) })
				}
			},
			onEOF: func() { e.transition(StateAwaitingResponse) },
		}
	} else {
		e.transition(StateAwaitingResponse)
	}

	resp, err := e.client.clientFor(&e.spec).Do(req)
	if err != nil {
		e.fail(ctx, span, e.transportError(ctx, err))
		return
	}
	defer func() { _ = resp.Body.Close() }()
	idle.Reset(timeout)

	env := &ResponseEnvelope{
		StatusCode:    resp.StatusCode,
		Headers:       flattenHeaders(resp.Header),
		ContentLength: resp.ContentLength,
	}
	if env.ContentLength < 0 {
		env.ContentLength = UnknownLength
	}
	span.SetAttributes(observability.StatusAttribute(resp.StatusCode))
	e.mu.Lock()
	e.status = resp.StatusCode
	e.mu.Unlock()

	if !e.transition(StateReceivingBody) {
		e.fail(ctx, span, nil)
		return
	}

	buf := make([]byte, e.client.config.ChunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			idle.Reset(timeout)
			chunk := bytes.Clone(buf[:n])
			env.Body = append(env.Body, chunk...)
			received := int64(len(env.Body))
			e.client.metrics.BytesReceived(ctx, n)
			if e.h.OnProgress != nil {
				e.deliver(func() { e.h.OnProgress(chunk, received, env.ContentLength) })
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			e.fail(ctx, span, e.transportError(ctx, rerr))
			return
		}
	}
	idle.Stop()
	e.complete(ctx, span, env)
}

// transportError classifies a failed exchange. It returns nil when the
// failure is the result of cancellation.
func (e *Executor) transportError(ctx context.Context, err error) error {
	if stderrors.Is(context.Cause(ctx), errIdleTimeout) {
		return errors.Timeout(e.spec.Method+" "+e.spec.URL, err)
	}
	if ctx.Err() != nil {
		e.Cancel()
		return nil
	}
	return errors.Transport(err)
}

func (e *Executor) complete(ctx context.Context, span trace.Span, env *ResponseEnvelope) {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		span.End()
		return
	}
	e.state = StateCompleted
	e.env = env
	e.mu.Unlock()

	span.SetAttributes(observability.AttrBytes.Int64(int64(len(env.Body))))
	if err := Classify(env); err != nil {
		e.finish(ctx, span, err, nil)
		return
	}
	if e.h.Decode == nil {
		e.finish(ctx, span, nil, env)
		return
	}
	go func() {
		if err := e.h.Decode(env); err != nil {
			e.finish(ctx, span, err, nil)
			return
		}
		e.finish(ctx, span, nil, env)
	}()
}

// fail moves to Failed and reports err. A nil err means the execution was
// cancelled and nothing is reported.
func (e *Executor) fail(ctx context.Context, span trace.Span, err error) {
	if err == nil {
		span.SetAttributes(observability.AttrOutcome.String(observability.OutcomeCancelled))
		span.End()
		return
	}
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		span.End()
		return
	}
	e.state = StateFailed
	e.mu.Unlock()
	e.finish(ctx, span, err, nil)
}

func (e *Executor) finish(ctx context.Context, span trace.Span, err error, env *ResponseEnvelope) {
	e.terminalOnce.Do(func() {
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeFailure
		}
		e.mu.Lock()
		status := e.status
		e.mu.Unlock()

		elapsed := time.Since(e.started)
		e.client.metrics.ExecutionFinished(ctx, e.spec.Method, outcome, status, elapsed)
		span.SetAttributes(observability.AttrOutcome.String(outcome))
		observability.EndSpan(span, err)

		fields := logger.Fields(
			logger.FieldState, e.State().String(),
			logger.FieldStatus, status,
			logger.FieldDuration, elapsed.Milliseconds(),
		)
		if err != nil {
			e.log.WithError(err).Debug("execution failed", fields)
		} else {
			fields[logger.FieldBytes] = len(env.Body)
			e.log.Debug("execution completed", fields)
		}

		accepted := e.client.dispatch(func() {
			defer e.markDone()
			if e.cancelled() {
				return
			}
			switch {
			case err != nil && e.h.OnFailure != nil:
				e.h.OnFailure(err)
			case err == nil && e.h.OnSuccess != nil:
				e.h.OnSuccess(env)
			}
		})
		if !accepted {
			e.log.Debug("dispatcher closed, callback dropped")
			e.markDone()
		}
	})
}

// progressReader meters the request body as the transport consumes it.
type progressReader struct {
	r       io.Reader
	written int64
	eof     bool
	onRead  func(n int, written int64)
	onEOF   func()
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.onRead(n, p.written)
	}
	if err == io.EOF && !p.eof {
		p.eof = true
		p.onEOF()
	}
	return n, err
}

func (p *progressReader) Close() error { return nil }
