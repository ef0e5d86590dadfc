package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// es256Signer signs with ECDSA over P-256.
type es256Signer struct {
	kid string
	key *ecdsa.PrivateKey
}

// newES256Signer loads an ECDSA P-256 private key from PEM (PKCS8) bytes.
func newES256Signer(kid string, pemKey []byte) (*es256Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for ECDSA key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY block, got %q", block.Type)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an ECDSA private key")
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("jwtx: ES256 requires P-256, got %s", key.Curve.Params().Name)
	}

	return &es256Signer{kid: kid, key: key}, nil
}

func (s *es256Signer) Alg() string { return jwt.SigningMethodES256.Alg() }
func (s *es256Signer) KID() string { return s.kid }

func (s *es256Signer) Sign(claims jwt.Claims) (string, error) {
	return signCompact(jwt.SigningMethodES256, s.kid, s.key, claims)
}

func (s *es256Signer) Public() crypto.PublicKey { return &s.key.PublicKey }
