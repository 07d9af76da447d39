package proxyserver

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrorigo/blanktrace/internal/auditlog"
	"github.com/mrorigo/blanktrace/internal/rewrite"
)

// handleHTTP serves a plain (non-CONNECT) proxied request: the browser sent
// an absolute-form request URI directly to us (spec §4.4).
func (h *handler) handleHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	outbound, host, err := cloneRequest(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// requestID correlates this request's log lines only; it is not part of
	// the persisted audit schema (spec §6 fixes that shape).
	requestLog := h.logger.With("request_id", uuid.NewString(), "host", host)

	ctx := &rewrite.Context{Host: host, ClientIP: clientIPFromRequest(r), Now: start}

	shortCircuit, err := h.chain.ApplyRequest(ctx, outbound)
	if err != nil {
		http.Error(w, "request rejected", http.StatusBadGateway)
		requestLog.Debug("proxyserver: request rewrite rejected", "error", err)
		return
	}
	if shortCircuit != nil {
		writeResponse(w, shortCircuit)
		return
	}

	resp, err := h.transport.RoundTrip(outbound)
	if err != nil {
		http.Error(w, "upstream error", http.StatusBadGateway)
		requestLog.Debug("proxyserver: upstream round trip failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if err := h.chain.ApplyResponse(ctx, resp); err != nil {
		http.Error(w, "response rejected", http.StatusBadGateway)
		return
	}

	writeResponse(w, resp)

	h.record(auditlog.RequestEntry(start, host, outbound.URL.Path, outbound.Header.Get("User-Agent"), ctx.ClientIP))
}

// cloneRequest builds the outbound request BlankTrace forwards, stripping
// hop-by-hop proxy headers, and reports the destination host (adapted from
// the teacher's proxy.cloneRequest).
func cloneRequest(r *http.Request) (*http.Request, string, error) {
	if r.URL == nil {
		return nil, "", errors.New("missing URL")
	}
	outbound := r.Clone(r.Context())
	if outbound.URL.Scheme == "" {
		u := *outbound.URL
		u.Scheme = "http"
		outbound.URL = &u
	}
	if outbound.URL.Host == "" {
		outbound.URL.Host = r.Host
	}
	outbound.RequestURI = ""
	outbound.Header = cloneHeader(r.Header)
	outbound.Header.Del("Proxy-Connection")
	outbound.Header.Del("Proxy-Authenticate")
	outbound.Header.Del("Proxy-Authorization")

	host := hostOnly(outbound.URL.Host)
	return outbound, host, nil
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return make(http.Header)
	}
	out := make(http.Header, len(h))
	for k, vv := range h {
		dup := make([]string, len(vv))
		copy(dup, vv)
		out[k] = dup
	}
	return out
}

func hostOnly(hostport string) string {
	if !strings.Contains(hostport, ":") {
		return hostport
	}
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}
	return host
}

func clientIPFromRequest(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeResponse(w http.ResponseWriter, resp *http.Response) {
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if resp.Body != nil {
		_, _ = io.Copy(w, resp.Body)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func copyHeaders(dst, src http.Header) {
	for k := range dst {
		dst.Del(k)
	}
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
