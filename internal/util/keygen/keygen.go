package keygen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// Curve names an ECDSA curve.
type Curve string

const (
	// CurveP256 is NIST P-256, the curve used for every deploy key by default.
	CurveP256 Curve = "P256"
	// CurveP384 is NIST P-384.
	CurveP384 Curve = "P384"
)

// KeyPair holds an ECDSA key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKeyPEM is the private key in PEM-encoded SEC1 format.
	PrivateKeyPEM []byte
	// PublicKeyPEM is the public key in PEM-encoded PKIX format.
	PublicKeyPEM []byte
	// PublicKeyOpenSSH is the public key in OpenSSH authorized_keys format.
	PublicKeyOpenSSH []byte
}

func (c Curve) elliptic() (elliptic.Curve, error) {
	switch c {
	case CurveP256, "":
		return elliptic.P256(), nil
	case CurveP384:
		return elliptic.P384(), nil
	default:
		return nil, fmt.Errorf("unsupported ECDSA curve %q", c)
	}
}

// GenerateECDSAKeyPair generates a new ECDSA key pair on the given curve.
// An empty curve selects P-256.
func GenerateECDSAKeyPair(curve Curve) (*KeyPair, error) {
	ec, err := curve.elliptic()
	if err != nil {
		return nil, err
	}

	privateKey, err := ecdsa.GenerateKey(ec, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA private key: %w", err)
	}

	return fromPrivateKey(privateKey)
}

// ParseKeyPair rebuilds a KeyPair from a PEM-encoded ECDSA private key, for
// example one read back from an existing credentials secret.
func ParseKeyPair(privateKeyPEM []byte) (*KeyPair, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode private key PEM")
	}

	var privateKey *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC private key: %w", err)
		}
		privateKey = key
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS8 private key: %w", err)
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T, not ECDSA", key)
		}
		privateKey = ecKey
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	return fromPrivateKey(privateKey)
}

func fromPrivateKey(privateKey *ecdsa.PrivateKey) (*KeyPair, error) {
	privDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal EC private key: %w", err)
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privDER,
	})

	pubDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})

	sshPublicKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		PrivateKeyPEM:    privateKeyPEM,
		PublicKeyPEM:     publicKeyPEM,
		PublicKeyOpenSSH: ssh.MarshalAuthorizedKey(sshPublicKey),
	}, nil
}
