// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// ServerTLSConfig builds the collector-side [*tls.Config] for a session:
// the CA is the sole trust root and any peer without a chain rooted in it
// is rejected at handshake.
func ServerTLSConfig(pki *PKI) (*tls.Config, error) {
	mustNonEmpty(pki.CACertPEM, pki.ServerCertPEM, pki.ServerKeyPEM)

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pki.CACertPEM) {
		return nil, fmt.Errorf("transport: failed to parse session CA certificate")
	}
	cert, err := tls.X509KeyPair(pki.ServerCertPEM, pki.ServerKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("transport: parse server leaf: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientTLSConfig builds the agent-side [*tls.Config]: the session CA is
// the sole trust root for the collector's server leaf, and the client
// presents its own leaf during the handshake.
func ClientTLSConfig(pki *PKI, serverName string) (*tls.Config, error) {
	mustNonEmpty(pki.CACertPEM, pki.ClientCertPEM, pki.ClientKeyPEM)

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pki.CACertPEM) {
		return nil, fmt.Errorf("transport: failed to parse session CA certificate")
	}
	cert, err := tls.X509KeyPair(pki.ClientCertPEM, pki.ClientKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("transport: parse client leaf: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS13,
	}, nil
}
