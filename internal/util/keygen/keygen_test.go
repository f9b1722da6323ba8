package keygen

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestGenerateECDSAKeyPair_Curves(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		curve      Curve
		wantPrefix string
	}{
		{"default curve", "", "ecdsa-sha2-nistp256 "},
		{"P256", CurveP256, "ecdsa-sha2-nistp256 "},
		{"P384", CurveP384, "ecdsa-sha2-nistp384 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			keyPair, err := GenerateECDSAKeyPair(tt.curve)
			if err != nil {
				t.Fatalf("GenerateECDSAKeyPair(%q) failed: %v", tt.curve, err)
			}

			if !strings.HasPrefix(string(keyPair.PublicKeyOpenSSH), tt.wantPrefix) {
				t.Errorf("expected OpenSSH key with prefix %q, got %q", tt.wantPrefix, keyPair.PublicKeyOpenSSH)
			}
		})
	}
}

func TestGenerateECDSAKeyPair_UnsupportedCurve(t *testing.T) {
	t.Parallel()
	if _, err := GenerateECDSAKeyPair("P521K"); err == nil {
		t.Error("expected error for unsupported curve")
	}
}

func TestKeyPair_PEMFormats(t *testing.T) {
	t.Parallel()
	keyPair, err := GenerateECDSAKeyPair(CurveP256)
	if err != nil {
		t.Fatalf("GenerateECDSAKeyPair failed: %v", err)
	}

	block, _ := pem.Decode(keyPair.PrivateKeyPEM)
	if block == nil {
		t.Fatal("failed to decode private key PEM")
	}
	if block.Type != "EC PRIVATE KEY" { //nolint:staticcheck // t.Fatal above ensures block is not nil
		t.Errorf("expected PEM type 'EC PRIVATE KEY', got %q", block.Type)
	}
	if _, err := x509.ParseECPrivateKey(block.Bytes); err != nil {
		t.Errorf("failed to parse EC private key: %v", err)
	}

	pubBlock, _ := pem.Decode(keyPair.PublicKeyPEM)
	if pubBlock == nil {
		t.Fatal("failed to decode public key PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(pubBlock.Bytes) //nolint:staticcheck // t.Fatal above ensures pubBlock is not nil
	if err != nil {
		t.Fatalf("failed to parse PKIX public key: %v", err)
	}
	if _, ok := pub.(*ecdsa.PublicKey); !ok {
		t.Errorf("expected *ecdsa.PublicKey, got %T", pub)
	}
}

func TestKeyPair_PublicKeySSHFormat(t *testing.T) {
	t.Parallel()
	keyPair, err := GenerateECDSAKeyPair(CurveP256)
	if err != nil {
		t.Fatalf("GenerateECDSAKeyPair failed: %v", err)
	}

	if !strings.HasSuffix(string(keyPair.PublicKeyOpenSSH), "\n") {
		t.Error("public key should end with newline")
	}

	if _, _, _, _, err := ssh.ParseAuthorizedKey(keyPair.PublicKeyOpenSSH); err != nil {
		t.Errorf("failed to parse public key as authorized key: %v", err)
	}
}

func TestGenerateECDSAKeyPair_Uniqueness(t *testing.T) {
	t.Parallel()
	first, err := GenerateECDSAKeyPair(CurveP256)
	if err != nil {
		t.Fatalf("first GenerateECDSAKeyPair failed: %v", err)
	}
	second, err := GenerateECDSAKeyPair(CurveP256)
	if err != nil {
		t.Fatalf("second GenerateECDSAKeyPair failed: %v", err)
	}

	if bytes.Equal(first.PrivateKeyPEM, second.PrivateKeyPEM) {
		t.Error("two generated key pairs should have different private keys")
	}
	if bytes.Equal(first.PublicKeyOpenSSH, second.PublicKeyOpenSSH) {
		t.Error("two generated key pairs should have different public keys")
	}
}

func TestParseKeyPair_RoundTrip(t *testing.T) {
	t.Parallel()
	original, err := GenerateECDSAKeyPair(CurveP256)
	if err != nil {
		t.Fatalf("GenerateECDSAKeyPair failed: %v", err)
	}

	parsed, err := ParseKeyPair(original.PrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParseKeyPair failed: %v", err)
	}

	if !bytes.Equal(original.PublicKeyOpenSSH, parsed.PublicKeyOpenSSH) {
		t.Error("parsed key pair should have the same OpenSSH public key")
	}
	if !bytes.Equal(original.PublicKeyPEM, parsed.PublicKeyPEM) {
		t.Error("parsed key pair should have the same PEM public key")
	}
}

func TestParseKeyPair_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not PEM", []byte("hello")},
		{"wrong block type", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1, 2, 3}})},
		{"garbage EC key", pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1, 2, 3}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseKeyPair(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}
