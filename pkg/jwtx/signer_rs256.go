package jwtx

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// rs256Signer signs with RSASSA-PKCS1-v1_5 over SHA-256. Kept for
// deployments that must interoperate with RSA-only verifiers.
type rs256Signer struct {
	kid string
	key *rsa.PrivateKey
}

// newRS256Signer loads an RSA private key from PEM bytes. Both PKCS1
// ("RSA PRIVATE KEY") and PKCS8 ("PRIVATE KEY") blocks are accepted.
func newRS256Signer(kid string, pemKey []byte) (*rs256Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA key")
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		parsed, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		key = parsed
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: not an RSA private key")
		}
		key = rsaKey
	default:
		return nil, fmt.Errorf("jwtx: unexpected PEM block %q", block.Type)
	}

	if key.N.BitLen() < 2048 {
		return nil, fmt.Errorf("jwtx: RSA key too small (%d bits)", key.N.BitLen())
	}

	return &rs256Signer{kid: kid, key: key}, nil
}

func (s *rs256Signer) Alg() string { return jwt.SigningMethodRS256.Alg() }
func (s *rs256Signer) KID() string { return s.kid }

func (s *rs256Signer) Sign(claims jwt.Claims) (string, error) {
	return signCompact(jwt.SigningMethodRS256, s.kid, s.key, claims)
}

func (s *rs256Signer) Public() crypto.PublicKey { return &s.key.PublicKey }
