package proxyserver

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrorigo/blanktrace/internal/certauthority"
	"github.com/mrorigo/blanktrace/internal/config"
	"github.com/mrorigo/blanktrace/internal/policy"
	"github.com/mrorigo/blanktrace/internal/rewrite"
	"github.com/mrorigo/blanktrace/internal/trackercat"
)

func newTestServer(t *testing.T, cfg config.Config) (*Server, net.Listener) {
	t.Helper()
	dir := t.TempDir()
	ca, err := certauthority.LoadOrCreate(filepath.Join(dir, "ca_cert.pem"), filepath.Join(dir, "ca_key.pem"))
	if err != nil {
		t.Fatalf("LoadOrCreate() error = %v", err)
	}

	st := policy.NewState(policy.Seed{}, cfg)
	chain := rewrite.NewChain(
		rewrite.NewBlockRewriter(st, cfg.Blocking, trackercat.Default(), nil),
		rewrite.NewFingerprintRewriter(st.Fingerprint, cfg.Fingerprint, nil),
		rewrite.NewCookieRewriter(st, cfg.Cookies, nil),
	)

	srv, err := NewServer(Options{CA: ca, State: st, Chain: chain})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	go srv.Serve(l)
	t.Cleanup(func() { l.Close() })
	return srv, l
}

func TestHandleHTTPProxiesPlainRequests(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "tracker=1")
		w.Write([]byte("hello"))
	}))
	defer origin.Close()

	cfg := config.Default()
	_, l := newTestServer(t, cfg)

	client := &http.Client{
		Transport: &http.Transport{
			Proxy: func(*http.Request) (*url.URL, error) {
				return url.Parse("http://" + l.Addr().String())
			},
		},
	}

	resp, err := client.Get(origin.URL)
	if err != nil {
		t.Fatalf("client.Get() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello" {
		t.Fatalf("unexpected body: %q", body)
	}
	if resp.Header.Get("Set-Cookie") != "" {
		t.Fatalf("expected Set-Cookie to be stripped by default cookie policy")
	}
}

func TestHandleHTTPBlockedHostReturns403(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("should not be reached"))
	}))
	defer origin.Close()

	cfg := config.Default()
	originHost := mustHost(t, origin.URL)
	cfg.Blocking.BlockList = []string{originHost}
	_, l := newTestServer(t, cfg)

	client := &http.Client{
		Transport: &http.Transport{
			Proxy: func(*http.Request) (*url.URL, error) {
				return url.Parse("http://" + l.Addr().String())
			},
		},
	}

	resp, err := client.Get(origin.URL)
	if err != nil {
		t.Fatalf("client.Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestHandleConnectMITMInterceptsHTTPS(t *testing.T) {
	origin := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure-hello"))
	}))
	defer origin.Close()

	cfg := config.Default()
	srv, l := newTestServer(t, cfg)

	// The proxy's outbound leg dials the origin through the shared
	// *http.Transport (the same one handleHTTP uses), so it verifies the
	// origin's certificate against whatever trust roots that transport
	// carries. httptest.NewTLSServer's leaf is self-signed and absent from
	// the system trust store, so substitute a transport that trusts it --
	// exactly how the origin's own test client would.
	srv.handler.transport = origin.Client().Transport.(*http.Transport).Clone()

	caPool := x509.NewCertPool()
	caPool.AddCert(srv.handler.ca.Certificate().Leaf)

	client := &http.Client{
		Transport: &http.Transport{
			Proxy: func(*http.Request) (*url.URL, error) {
				return url.Parse("http://" + l.Addr().String())
			},
			TLSClientConfig: &tls.Config{
				RootCAs:    caPool,
				ServerName: mustHost(t, origin.URL),
			},
		},
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(origin.URL)
	if err != nil {
		t.Fatalf("client.Get() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "secure-hello" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func mustHost(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", rawURL, err)
	}
	return hostOnly(u.Host)
}
