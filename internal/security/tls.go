// Package security loads TLS material for outbound connections, such as
// the MQTT broker link.
package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientTLSConfig holds client TLS configuration.
type ClientTLSConfig struct {
	CertFile           string // Client certificate file, for brokers that require mTLS
	KeyFile            string // Client private key file
	CAFile             string // CA certificate for verifying the server; empty uses system roots
	InsecureSkipVerify bool   // Skip server certificate verification (dev only)
}

// Enabled reports whether any TLS option is set.
func (c *ClientTLSConfig) Enabled() bool {
	return c.CertFile != "" || c.KeyFile != "" || c.CAFile != "" || c.InsecureSkipVerify
}

// LoadClientTLS builds a client tls.Config. The certificate and key must be
// given together or not at all.
func LoadClientTLS(cfg *ClientTLSConfig) (*tls.Config, error) {
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, fmt.Errorf("client certificate and key must be set together")
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	if cfg.CertFile != "" {
		clientCert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	if cfg.CAFile != "" && !cfg.InsecureSkipVerify {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}

		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to add CA certificate")
		}
		tlsConfig.RootCAs = caPool
	}

	return tlsConfig, nil
}
