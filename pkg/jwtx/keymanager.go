package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/bifrostlabs/heimdall/pkg/cryptox"
	"github.com/bifrostlabs/heimdall/pkg/idx"
)

// Supported signing algorithms. The algorithm is fixed per deployment and
// never negotiated from token contents.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// KeyManager owns the signing keys for one process and the KeySet used to
// verify what they produce. Key material is read-only after startup except
// through the explicit Add/Retire rotation calls.
type KeyManager struct {
	algorithm string
	keys      *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures key generation.
type KeyManagerOptions struct {
	// Algorithm selects the signing algorithm: RS256, ES256 or EdDSA.
	// Defaults to EdDSA.
	Algorithm string

	// RSABits is the RSA key size for RS256. Defaults to 4096.
	RSABits int

	// NumKeys is how many signing keys to generate. Multiple keys spread
	// signing load and keep a spare live during rotation. Defaults to 3,
	// capped at 10.
	NumKeys int
}

// NewEphemeralKeyManager generates in-memory signing keys. Nothing touches
// disk, so every token becomes invalid on restart, which suits deployments
// that prefer forced re-login over key persistence.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = AlgorithmEdDSA
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 3
	}
	if numKeys > 10 {
		numKeys = 10
	}

	km := &KeyManager{algorithm: algorithm, keys: NewKeySet()}

	for i := 0; i < numKeys; i++ {
		pemKey, err := generateKeyPEM(algorithm, opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate key %d: %w", i+1, err)
		}

		signer, err := NewSigner(algorithm, idx.New().String(), pemKey)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load key %d: %w", i+1, err)
		}

		if err := km.Add(signer); err != nil {
			return nil, err
		}
	}

	return km, nil
}

// NewKeyManager wraps pre-loaded signers, e.g. key material read from files
// referenced by configuration. All signers must share the manager algorithm.
func NewKeyManager(algorithm string, signers ...Signer) (*KeyManager, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("jwtx: at least one signer is required")
	}

	km := &KeyManager{algorithm: algorithm, keys: NewKeySet()}
	for _, signer := range signers {
		if err := km.Add(signer); err != nil {
			return nil, err
		}
	}
	return km, nil
}

func generateKeyPEM(algorithm string, rsaBits int) ([]byte, error) {
	switch algorithm {
	case AlgorithmRS256:
		if rsaBits == 0 {
			rsaBits = 4096
		}
		return cryptox.GenerateRSAKey(rsaBits)
	case AlgorithmES256:
		return cryptox.GenerateES256Key()
	case AlgorithmEdDSA:
		return cryptox.GenerateEd25519Key()
	default:
		return nil, fmt.Errorf("unsupported algorithm %q (supported: RS256, ES256, EdDSA)", algorithm)
	}
}

// Algorithm returns the fixed signing algorithm.
func (km *KeyManager) Algorithm() string { return km.algorithm }

// KeySet returns the verification key lookup.
func (km *KeyManager) KeySet() *KeySet { return km.keys }

// Signer returns one of the active signing keys, chosen at random to spread
// load and avoid a predictable kid sequence.
func (km *KeyManager) Signer() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// NumSigners reports the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// Add registers a new signing key for both signing and verification. This is
// the grow half of a rotation.
func (km *KeyManager) Add(signer Signer) error {
	if signer == nil {
		return fmt.Errorf("jwtx: nil signer")
	}
	if signer.Alg() != km.algorithm {
		return fmt.Errorf("jwtx: signer algorithm %s does not match manager algorithm %s", signer.Alg(), km.algorithm)
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.keys.Add(signer.KID(), signer.Public()); err != nil {
		return err
	}
	km.signers = append(km.signers, signer)
	return nil
}

// Retire removes a key from active signing while keeping it in the KeySet,
// so tokens it already signed stay verifiable through their lifetime. The
// last signing key cannot be retired.
func (km *KeyManager) Retire(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.signers) <= 1 {
		return fmt.Errorf("jwtx: cannot retire the last signing key")
	}

	for i, signer := range km.signers {
		if signer.KID() == kid {
			km.signers = append(km.signers[:i], km.signers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownKID, kid)
}
