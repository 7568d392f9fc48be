package certificates

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"
)

const (
	defaultOrganization = "restquery"
	defaultKeyBits      = 4096
)

// Options of a self signed certificate. Zero values fall back to defaults.
type Options struct {
	Organization string
	// Hosts are added as DNS or IP subject alternative names.
	Hosts    []string
	NotAfter time.Time
	KeyBits  int
}

func GenerateSelfSignedCertificate(opts Options) (*x509.Certificate, *rsa.PrivateKey, error) {
	if opts.Organization == "" {
		opts.Organization = defaultOrganization
	}
	if opts.KeyBits == 0 {
		opts.KeyBits = defaultKeyBits
	}
	if opts.NotAfter.IsZero() {
		opts.NotAfter = time.Now().AddDate(1, 0, 0)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	csr := &x509.Certificate{
		SerialNumber: serial,
		Issuer: pkix.Name{
			Organization: []string{opts.Organization},
		},
		Subject: pkix.Name{
			Organization:       []string{opts.Organization},
			OrganizationalUnit: []string{"Query API"},
		},
		NotBefore:             time.Now(),
		NotAfter:              opts.NotAfter,
		IsCA:                  true,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	for _, h := range opts.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			csr.IPAddresses = append(csr.IPAddresses, ip)
		} else {
			csr.DNSNames = append(csr.DNSNames, h)
		}
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, opts.KeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate rsa private key: %w", err)
	}

	certData, err := x509.CreateCertificate(rand.Reader, csr, csr, privateKey.Public(), privateKey)
	if err != nil {
		return nil, nil, err
	}

	cert, err := x509.ParseCertificate(certData)
	if err != nil {
		return nil, nil, err
	}

	return cert, privateKey, nil
}

// TLSCertificate pairs cert and key for a tls.Config.
func TLSCertificate(cert *x509.Certificate, privateKey *rsa.PrivateKey) (tls.Certificate, error) {
	certPEM := new(bytes.Buffer)
	if err := pem.Encode(certPEM, &pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Raw,
	}); err != nil {
		return tls.Certificate{}, err
	}

	privKeyPEM := new(bytes.Buffer)
	if err := pem.Encode(privKeyPEM, &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}); err != nil {
		return tls.Certificate{}, err
	}

	return tls.X509KeyPair(certPEM.Bytes(), privKeyPEM.Bytes())
}
