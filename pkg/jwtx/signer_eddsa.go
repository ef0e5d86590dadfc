package jwtx

import (
	"crypto"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// edDSASigner signs with Ed25519. This is the deployment default: small
// keys, fast constant-time signatures, no parameter choices to get wrong.
type edDSASigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// newEdDSASigner loads an Ed25519 private key from PEM (PKCS8) bytes.
func newEdDSASigner(kid string, pemKey []byte) (*edDSASigner, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY block, got %q", block.Type)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an Ed25519 private key")
	}

	return &edDSASigner{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

func (s *edDSASigner) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (s *edDSASigner) KID() string { return s.kid }

func (s *edDSASigner) Sign(claims jwt.Claims) (string, error) {
	return signCompact(jwt.SigningMethodEdDSA, s.kid, s.key, claims)
}

func (s *edDSASigner) Public() crypto.PublicKey { return s.pub }
