package jwtx

import (
	"crypto"
	"fmt"
	"sync"
)

// KeySet is the verification side of the key material: a concurrency-safe
// kid -> public key lookup. Signing keys are registered here so tokens can
// be verified by key id, which keeps room for rotation without touching the
// codec interface.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]crypto.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]crypto.PublicKey)}
}

// Add registers a public key under kid. Re-registering an existing kid is an
// error, a rotated key must carry a fresh id.
func (ks *KeySet) Add(kid string, pub crypto.PublicKey) error {
	if kid == "" {
		return fmt.Errorf("jwtx: empty kid")
	}
	if pub == nil {
		return fmt.Errorf("jwtx: nil public key for kid %q", kid)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, exists := ks.keys[kid]; exists {
		return fmt.Errorf("jwtx: kid %q already registered", kid)
	}
	ks.keys[kid] = pub
	return nil
}

// Get returns the public key for kid, or ErrUnknownKID.
func (ks *KeySet) Get(kid string) (crypto.PublicKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	pub, ok := ks.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
	}
	return pub, nil
}

// Remove drops a key from the set. Verification of tokens signed with it
// fails from then on.
func (ks *KeySet) Remove(kid string) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	delete(ks.keys, kid)
}

// Len reports the number of registered keys.
func (ks *KeySet) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}
