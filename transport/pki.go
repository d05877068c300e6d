// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/bassosimone/runtimex"
)

// PKI holds the per-session certificate authority and the two leaf
// certificate+key pairs the session needs: a server leaf for the collector
// and a client leaf for the agent.
//
// No certificate-authority library is present in the retrieval pack this
// module was built from; PKI issuance is implemented directly on
// [crypto/x509] (see DESIGN.md for the standard-library justification).
type PKI struct {
	CACertPEM []byte

	ServerCertPEM []byte
	ServerKeyPEM  []byte

	ClientCertPEM []byte
	ClientKeyPEM  []byte

	caCert *x509.Certificate
	caKey  *ecdsa.PrivateKey
}

// leafLifetime bounds every issued leaf certificate. Sessions are
// ephemeral, so a
// short, fixed validity window is sufficient; there is no renewal path.
const leafLifetime = 24 * time.Hour

// IssuePKI generates a fresh CA and issues a server leaf (bound to
// bindAddr and "127.0.0.1") and a client leaf, as required once per
// session.
//
// PKI generation failures are never partial: on any error no
// [PKI] is returned.
func IssuePKI(bindAddr string) (*PKI, error) {
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("transport: generate CA key: %w", err)
	}
	caSerial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          caSerial,
		Subject:               pkix.Name{CommonName: "loonaro session CA"},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(leafLifetime),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("transport: create CA certificate: %w", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return nil, fmt.Errorf("transport: parse CA certificate: %w", err)
	}

	serverCertPEM, serverKeyPEM, err := issueLeaf(caCert, caKey, "loonaro collector", []string{"127.0.0.1", bindAddr}, x509.ExtKeyUsageServerAuth)
	if err != nil {
		return nil, fmt.Errorf("transport: issue server leaf: %w", err)
	}
	clientCertPEM, clientKeyPEM, err := issueLeaf(caCert, caKey, "loonaro agent", nil, x509.ExtKeyUsageClientAuth)
	if err != nil {
		return nil, fmt.Errorf("transport: issue client leaf: %w", err)
	}

	return &PKI{
		CACertPEM:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER}),
		ServerCertPEM: serverCertPEM,
		ServerKeyPEM:  serverKeyPEM,
		ClientCertPEM: clientCertPEM,
		ClientKeyPEM:  clientKeyPEM,
		caCert:        caCert,
		caKey:         caKey,
	}, nil
}

func issueLeaf(
	caCert *x509.Certificate, caKey *ecdsa.PrivateKey, cn string, ipSANs []string, eku x509.ExtKeyUsage,
) (certPEM, keyPEM []byte, err error) {
	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(leafLifetime),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{eku},
	}
	for _, host := range ipSANs {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if host != "" {
			template.DNSNames = append(template.DNSNames, host)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, template, caCert, &leafKey.PublicKey, caKey)
	if err != nil {
		return nil, nil, err
	}
	keyDER, err := x509.MarshalECPrivateKey(leafKey)
	if err != nil {
		return nil, nil, err
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("transport: generate serial: %w", err)
	}
	return serial, nil
}

// mustNonEmpty panics if any of the given PEM blobs is empty. Used by
// [ServerTLSConfig]/[ClientTLSConfig] to fail fast on a caller that
// constructed a zero-value [PKI] instead of going through [IssuePKI].
func mustNonEmpty(blobs ...[]byte) {
	for _, b := range blobs {
		runtimex.Assert(len(b) > 0)
	}
}
