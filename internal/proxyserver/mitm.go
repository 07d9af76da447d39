package proxyserver

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrorigo/blanktrace/internal/auditlog"
	"github.com/mrorigo/blanktrace/internal/rewrite"
)

// handleConnect implements the CONNECT/MITM path (spec §4.3): reply 200,
// hijack, forge a leaf for the target host, terminate TLS twice, and run
// the HTTP engine over the decrypted stream.
func (h *handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	target := r.Host
	host := hostOnly(target)

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}
	clientConn, clientBuf, err := hijacker.Hijack()
	if err != nil {
		h.logger.Debug("proxyserver: hijack failed", "host", host, "error", err)
		return
	}
	defer clientConn.Close()

	if _, err := clientBuf.WriteString("HTTP/1.1 200 Connection established\r\n\r\n"); err != nil {
		return
	}
	if err := clientBuf.Flush(); err != nil {
		return
	}

	if err := h.serveMITMTunnel(clientConn, target, host, clientIPFromRequest(r)); err != nil {
		h.logger.Debug("proxyserver: mitm tunnel ended", "host", host, "error", err)
	}
}

// serveMITMTunnel performs both TLS terminations and loops the HTTP engine
// over the decrypted client stream until the connection closes.
func (h *handler) serveMITMTunnel(clientConn net.Conn, target, host, clientIP string) error {
	leaf, err := h.ca.Issue(host)
	if err != nil {
		return fmt.Errorf("issue leaf cert: %w", err)
	}

	serverTLS := tls.Server(clientConn, &tls.Config{
		Certificates: []tls.Certificate{*leaf},
		NextProtos:   []string{"http/1.1"},
	})
	defer serverTLS.Close()

	// Inbound TLS failure is a silent close (spec §4.3).
	if err := serverTLS.Handshake(); err != nil {
		return nil
	}

	reader := bufio.NewReader(serverTLS)
	for {
		inbound, err := http.ReadRequest(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		if err := h.processMITMRequest(serverTLS, inbound, target, host, clientIP); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// processMITMRequest forwards one decrypted request to the origin through
// the shared transport (the same one handleHTTP uses) and writes the
// (rewritten) response back to the client TLS stream.
func (h *handler) processMITMRequest(clientConn net.Conn, inbound *http.Request, target, host, clientIP string) error {
	start := time.Now()
	requestLog := h.logger.With("request_id", uuid.NewString(), "host", host)

	if inbound.Body == nil {
		inbound.Body = http.NoBody
	}
	inbound.URL.Scheme = "https"
	inbound.URL.Host = target
	inbound.Host = target
	inbound.RequestURI = ""

	ctx := &rewrite.Context{Host: host, ClientIP: clientIP, Now: start}

	shortCircuit, err := h.chain.ApplyRequest(ctx, inbound)
	if err != nil {
		requestLog.Debug("proxyserver: mitm request rewrite rejected", "error", err)
		return h.writeMITMStatus(clientConn, http.StatusBadGateway, fmt.Sprintf("request rejected: %v", err))
	}
	if shortCircuit != nil {
		return h.writeMITMResponse(clientConn, shortCircuit)
	}

	resp, err := h.transport.RoundTrip(inbound)
	if err != nil {
		requestLog.Debug("proxyserver: mitm upstream round trip failed", "error", err)
		return h.writeMITMStatus(clientConn, http.StatusBadGateway, fmt.Sprintf("upstream error: %v", err))
	}
	defer resp.Body.Close()

	if err := h.chain.ApplyResponse(ctx, resp); err != nil {
		return h.writeMITMStatus(clientConn, http.StatusBadGateway, fmt.Sprintf("response rejected: %v", err))
	}

	if err := h.writeMITMResponse(clientConn, resp); err != nil {
		return err
	}

	h.record(auditlog.RequestEntry(start, host, inbound.URL.Path, inbound.Header.Get("User-Agent"), clientIP))
	return nil
}

func (h *handler) writeMITMResponse(clientConn net.Conn, resp *http.Response) error {
	if err := resp.Write(clientConn); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (h *handler) writeMITMStatus(clientConn net.Conn, status int, message string) error {
	resp := &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:          io.NopCloser(strings.NewReader(message + "\n")),
		ContentLength: int64(len(message) + 1),
	}
	return h.writeMITMResponse(clientConn, resp)
}
