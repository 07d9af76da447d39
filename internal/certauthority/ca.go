// Package certauthority owns the local root CA and mints per-host leaf
// certificates for the MITM TLS interceptor (spec §4.2).
package certauthority

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	rootValidity = 10 * 365 * 24 * time.Hour
	leafValidity = 365 * 24 * time.Hour
	leafCacheCap = 1024
)

// CA owns the persisted root certificate/key and mints leaf certificates
// signed by it. A CA is safe for concurrent use.
type CA struct {
	cert *tls.Certificate // root cert chain [0] + PrivateKey

	cache  *lru.Cache[string, *tls.Certificate]
	flight singleflight.Group
}

// LoadOrCreate loads a root CA from certPath/keyPath, generating a fresh one
// if both files are absent. If exactly one is present, or if the files
// exist but key/cert don't match, startup must abort fatally: spec §3/§9
// forbid silently regenerating a CA that users may already trust.
func LoadOrCreate(certPath, keyPath string) (*CA, error) {
	certExists := fileExists(certPath)
	keyExists := fileExists(keyPath)

	switch {
	case certExists && keyExists:
		return load(certPath, keyPath)
	case !certExists && !keyExists:
		slog.Info("generating new root CA", "cert_path", certPath, "key_path", keyPath)
		if err := generate(certPath, keyPath); err != nil {
			return nil, fmt.Errorf("generate root CA: %w", err)
		}
		return load(certPath, keyPath)
	default:
		return nil, fmt.Errorf("root CA is incomplete: exactly one of %s / %s exists; refusing to regenerate", certPath, keyPath)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func load(certPath, keyPath string) (*CA, error) {
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load CA keypair: %w", err)
	}
	if pair.Leaf == nil {
		leaf, err := x509.ParseCertificate(pair.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("parse CA cert: %w", err)
		}
		pair.Leaf = leaf
	}

	cache, err := lru.New[string, *tls.Certificate](leafCacheCap)
	if err != nil {
		return nil, fmt.Errorf("allocate leaf cache: %w", err)
	}

	return &CA{cert: &pair, cache: cache}, nil
}

func generate(certPath, keyPath string) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generate root key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "BlankTrace Local CA",
			Organization: []string{"BlankTrace"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(rootValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create root certificate: %w", err)
	}

	if err := writeAtomic(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644); err != nil {
		return fmt.Errorf("write root cert: %w", err)
	}
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal root key: %w", err)
	}
	if err := writeAtomic(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes}), 0o600); err != nil {
		return fmt.Errorf("write root key: %w", err)
	}
	return nil
}

// writeAtomic writes data to path via a temp file + rename so a crash
// mid-write never leaves a half-written CA file for LoadOrCreate to trip on.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup if rename fails

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Certificate exposes the root CA's certificate+key, e.g. for trust export.
func (ca *CA) Certificate() *tls.Certificate {
	return ca.cert
}

func randomSerial() (*big.Int, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}
	return n, nil
}

var errIssuerNotReady = errors.New("certauthority: CA not initialised")
