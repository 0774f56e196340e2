package jwtx

import (
	"crypto/ed25519"
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds the public verification keys currently trusted, keyed by kid.
// Retired signing keys stay in the set until their grace window lapses so
// tokens minted before a rotation still verify.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]ed25519.PublicKey
}

func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]ed25519.PublicKey)}
}

// AddSigner registers a signer's public key.
func (k *KeySet) AddSigner(s Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[s.KID()] = s.PublicKey()
}

// Get returns the public key for kid, or ErrNoKey.
func (k *KeySet) Get(kid string) (ed25519.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// Remove drops a key entirely. Tokens signed under it stop verifying.
func (k *KeySet) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.pub, kid)
}

// IsReady reports whether at least one verification key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}
