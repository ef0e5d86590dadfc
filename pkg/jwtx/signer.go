package jwtx

import (
	"crypto"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs claim payloads with one private key. Implementations are
// read-only after construction and safe for concurrent use.
type Signer interface {
	// Alg returns the JWA algorithm name (e.g. "EdDSA").
	Alg() string

	// KID returns the key id written into the token header.
	KID() string

	// Sign produces the compact serialized, signed token.
	Sign(claims jwt.Claims) (string, error)

	// Public returns the verification key to register in a KeySet.
	Public() crypto.PublicKey
}

// NewSigner creates a signer for the given algorithm from PEM key bytes.
// RSA keys use PKCS1, ECDSA and Ed25519 keys use PKCS8.
func NewSigner(algorithm, kid string, pemKey []byte) (Signer, error) {
	switch algorithm {
	case AlgorithmRS256:
		return newRS256Signer(kid, pemKey)
	case AlgorithmES256:
		return newES256Signer(kid, pemKey)
	case AlgorithmEdDSA:
		return newEdDSASigner(kid, pemKey)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", algorithm)
	}
}

// signCompact is the shared signing path: build the token, stamp the kid
// header, sign with the private key.
func signCompact(method jwt.SigningMethod, kid string, key any, claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(method, claims)
	t.Header["kid"] = kid
	return t.SignedString(key)
}
