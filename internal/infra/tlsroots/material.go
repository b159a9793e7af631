package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrPassphrase is returned when an encrypted key cannot be decrypted.
var ErrPassphrase = errors.New("tlsroots: cannot decrypt private key")

// Material is the TLS configuration of a listener. Each field holds a file
// path or inline PEM content.
type Material struct {
	Certificate string
	Key         string
	CA          string
	Passphrase  string
}

// Enabled reports whether a certificate and key are both configured.
func (m Material) Enabled() bool {
	return m.Certificate != "" && m.Key != ""
}

// IsInline reports whether value is PEM content rather than a path.
func IsInline(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "-----BEGIN ")
}

// ReadMaterial returns inline PEM content as is and reads anything else as
// a file path.
func ReadMaterial(value string) ([]byte, error) {
	if IsInline(value) {
		return []byte(value), nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read %s: %w", value, err)
	}
	return data, nil
}

// LoadKeyPair loads a certificate chain and private key. A non-empty
// passphrase decrypts a legacy encrypted PEM key (Proc-Type: 4,ENCRYPTED).
func LoadKeyPair(certificate, key, passphrase string) (tls.Certificate, error) {
	certPEM, err := ReadMaterial(certificate)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM, err := ReadMaterial(key)
	if err != nil {
		return tls.Certificate{}, err
	}

	if passphrase != "" {
		if keyPEM, err = decryptKey(keyPEM, passphrase); err != nil {
			return tls.Certificate{}, err
		}
	}

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	return pair, nil
}

// ServerConfig builds the listener's tls.Config. With a CA configured,
// client certificates are requested and verified against it when presented.
func ServerConfig(m Material) (*tls.Config, error) {
	pair, err := LoadKeyPair(m.Certificate, m.Key, m.Passphrase)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}
	if m.CA != "" {
		pool, err := LoadPool(m.CA)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool.Pool()
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	}
	return cfg, nil
}

func decryptKey(keyPEM []byte, passphrase string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	//nolint:staticcheck // SA1019
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}
	//nolint:staticcheck
	der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPassphrase, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}
