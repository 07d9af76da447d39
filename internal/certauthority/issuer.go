package certauthority

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"net"
	"strings"
	"time"
)

// Issue returns a leaf certificate for host, signed by the root CA, with
// subject/SAN set to host (spec §4.2). A cached, non-expired leaf is reused.
// Concurrent callers for the same host are single-flighted so that browser
// parallelism (~6 connections per origin) mints at most one certificate.
func (ca *CA) Issue(host string) (*tls.Certificate, error) {
	if ca == nil {
		return nil, errIssuerNotReady
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return nil, fmt.Errorf("certauthority: host must not be empty")
	}

	if cached, ok := ca.cache.Get(host); ok {
		if cached.Leaf != nil && time.Until(cached.Leaf.NotAfter) > time.Hour {
			return cached, nil
		}
		ca.cache.Remove(host)
	}

	v, err, _ := ca.flight.Do(host, func() (any, error) {
		if cached, ok := ca.cache.Get(host); ok {
			if cached.Leaf != nil && time.Until(cached.Leaf.NotAfter) > time.Hour {
				return cached, nil
			}
		}
		leaf, err := ca.mintLeaf(host)
		if err != nil {
			return nil, err
		}
		ca.cache.Add(host, leaf)
		return leaf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tls.Certificate), nil
}

func (ca *CA) mintLeaf(host string) (*tls.Certificate, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: host},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(leafValidity),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	if ip := net.ParseIP(host); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{host}
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate leaf key: %w", err)
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert.Leaf, &leafKey.PublicKey, ca.cert.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sign leaf certificate for %s: %w", host, err)
	}

	leaf := &tls.Certificate{
		Certificate: [][]byte{der, ca.cert.Certificate[0]},
		PrivateKey:  leafKey,
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse minted leaf for %s: %w", host, err)
	}
	leaf.Leaf = parsed
	return leaf, nil
}
