// Package proxyserver is the MITM proxy's listener, dispatcher, plain-HTTP
// engine, and CONNECT/TLS interceptor (spec §4.1-§4.4). It is the
// integration point wiring internal/certauthority, internal/policy,
// internal/rewrite, and internal/auditlog together around a single
// net/http.Server with a hijacking handler.
package proxyserver

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mrorigo/blanktrace/internal/auditlog"
	"github.com/mrorigo/blanktrace/internal/certauthority"
	"github.com/mrorigo/blanktrace/internal/policy"
	"github.com/mrorigo/blanktrace/internal/rewrite"
)

// maxHeaderBytes bounds the request line + headers net/http will parse.
// net/http adds 4 KiB of read slack to this limit and answers a request
// that exceeds it with 431 Request Header Fields Too Large, not 400.
const maxHeaderBytes = 16 * 1024

// Server owns the proxy's TCP listener and the shared dependencies every
// connection goroutine consults.
type Server struct {
	httpServer *http.Server
	transport  *http.Transport
	handler    *handler
}

// Options bundles everything NewServer needs beyond the listen address.
type Options struct {
	Addr      string
	CA        *certauthority.CA
	State     *policy.State
	Chain     rewrite.Chain
	Recorder  *auditlog.Sink
	Logger    *slog.Logger
}

// NewServer wires the dispatcher and returns a ready-to-run proxy server.
func NewServer(opts Options) (*Server, error) {
	if opts.CA == nil {
		return nil, errors.New("proxyserver: CA must not be nil")
	}
	if opts.State == nil {
		return nil, errors.New("proxyserver: policy state must not be nil")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:               nil,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	h := &handler{
		ca:        opts.CA,
		state:     opts.State,
		chain:     opts.Chain,
		recorder:  opts.Recorder,
		transport: transport,
		logger:    opts.Logger,
	}

	httpSrv := &http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(io.Discard, "", 0),
	}

	return &Server{httpServer: httpSrv, transport: transport, handler: h}, nil
}

// ListenAndServe starts the proxy and blocks until it exits.
func (s *Server) ListenAndServe() error {
	if s == nil || s.httpServer == nil {
		return errors.New("proxyserver: server not initialized")
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve runs the proxy over an already-bound listener, letting tests pick
// an ephemeral port instead of parsing Addr.
func (s *Server) Serve(l net.Listener) error {
	if s == nil || s.httpServer == nil {
		return errors.New("proxyserver: server not initialized")
	}
	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the proxy server, draining in-flight requests
// until ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	s.transport.CloseIdleConnections()
	return s.httpServer.Shutdown(ctx)
}

// handler is the single http.Handler that both the plain-HTTP path and the
// CONNECT/MITM path run through.
type handler struct {
	ca        *certauthority.CA
	state     *policy.State
	chain     rewrite.Chain
	recorder  *auditlog.Sink
	transport *http.Transport
	logger    *slog.Logger
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		h.handleConnect(w, r)
		return
	}
	h.handleHTTP(w, r)
}

func (h *handler) record(e auditlog.Entry) {
	if h.recorder != nil {
		h.recorder.Record(e)
	}
}
