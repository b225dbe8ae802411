// Package callback serves the OAuth authorization callback on a loopback
// address and hands each received URL to a delivery function, typically
// auth.Authenticator.HandleCallback.
package callback

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/birdkit/logger"
)

const (
	receivedPage = "<html><body><p>Authorization received. You can close this window.</p></body></html>"
	conflictPage = "<html><body><p>No authorization is pending.</p></body></html>"
)

// DeliverFunc receives the full callback URL and reports whether a pending
// authorization accepted it.
type DeliverFunc func(u *url.URL) bool

// Listener is a one-route gin server for authorization callbacks.
type Listener struct {
	config  Config
	deliver DeliverFunc
	engine  *gin.Engine
	log     *logger.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a listener. Nothing is bound until Start.
func New(cfg Config, deliver DeliverFunc, log *logger.Logger) *Listener {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	l := &Listener{
		config:  cfg,
		deliver: deliver,
		engine:  gin.New(),
		log:     log.WithComponent("callback"),
	}
	l.engine.Use(recovery(l.log), requestLogger(l.log))
	l.engine.GET(cfg.Path, l.handleCallback)
	return l
}

// Handler exposes the routes, e.g. for httptest.
func (l *Listener) Handler() http.Handler {
	return l.engine
}

// Start binds the address and serves in the background. It returns once the
// port is bound.
func (l *Listener) Start(_ context.Context) error {
	if err := l.config.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.server != nil {
		return fmt.Errorf("callback listener already started on %s", l.listener.Addr())
	}

	addr := net.JoinHostPort(l.config.Host, strconv.Itoa(l.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("callback listener failed to bind %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           l.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	l.server, l.listener = srv, ln

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			l.log.Error("callback listener error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	l.log.Info("callback listener started", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down with a 5-second deadline.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	srv := l.server
	l.server, l.listener = nil, nil
	l.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("callback listener shutdown: %w", err)
	}
	l.log.Debug("callback listener stopped")
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener != nil {
		return l.listener.Addr().String()
	}
	return net.JoinHostPort(l.config.Host, strconv.Itoa(l.config.Port))
}

// CallbackURL is the URL to register as oauth_callback.
func (l *Listener) CallbackURL() string {
	return (&url.URL{Scheme: "http", Host: l.Addr(), Path: l.config.Path}).String()
}

func (l *Listener) handleCallback(c *gin.Context) {
	u := *c.Request.URL
	u.Scheme = "http"
	u.Host = c.Request.Host

	if l.deliver == nil || !l.deliver(&u) {
		c.Data(http.StatusConflict, "text/html; charset=utf-8", []byte(conflictPage))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(receivedPage))
}
