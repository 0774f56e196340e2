package jwtx

import (
	"fmt"
	"sync"

	"github.com/lanternhq/lantern/pkg/cryptox"
)

// KeyManager owns the process-wide signing key state. Keys are generated at
// startup and only change through the explicit rotation procedure: Rotate
// adds a new signing key, Retire stops signing with an old key while its
// public half stays in the KeySet so in-flight tokens keep verifying, and
// Drop removes it once the grace window has passed.
type KeyManager struct {
	KeySet *KeySet

	mu      sync.RWMutex
	signers []Signer
	next    int
}

// KeyManagerOptions configures key bootstrap.
type KeyManagerOptions struct {
	// Issuer is required and becomes the iss claim on every token.
	Issuer string

	// NumKeys is how many signing keys to generate at startup (default 1,
	// max 5). Multiple keys spread signing load.
	NumKeys int
}

// NewEphemeralKeyManager generates in-memory Ed25519 keys. Tokens become
// invalid on restart, which is acceptable because refresh tokens are opaque
// and re-issuance is cheap.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, *Verifier, error) {
	if opts.Issuer == "" {
		return nil, nil, fmt.Errorf("jwtx: issuer is required")
	}

	n := opts.NumKeys
	if n <= 0 {
		n = 1
	}
	if n > 5 {
		n = 5
	}

	km := &KeyManager{KeySet: NewKeySet()}
	for i := 0; i < n; i++ {
		if _, err := km.Rotate(); err != nil {
			return nil, nil, fmt.Errorf("jwtx: generate signer %d: %w", i+1, err)
		}
	}

	return km, NewVerifier(km.KeySet, opts.Issuer), nil
}

// GetSigner returns the next active signing key, round-robin.
func (km *KeyManager) GetSigner() Signer {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.signers) == 0 {
		return nil
	}
	s := km.signers[km.next%len(km.signers)]
	km.next++
	return s
}

// Rotate generates a fresh Ed25519 key, starts signing with it, and makes it
// verifiable. Returns the new kid.
func (km *KeyManager) Rotate() (string, error) {
	pemKey, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return "", err
	}

	kid, err := newKID()
	if err != nil {
		return "", err
	}

	signer, err := NewSignerEdDSA(kid, pemKey)
	if err != nil {
		return "", err
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	km.signers = append(km.signers, signer)
	km.KeySet.AddSigner(signer)
	return kid, nil
}

// Retire removes kid from active signing. The public key remains in the
// KeySet so already-issued tokens still verify. Refuses to retire the last
// signing key.
func (km *KeyManager) Retire(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.signers) <= 1 {
		return fmt.Errorf("jwtx: cannot retire the last signing key")
	}

	kept := km.signers[:0]
	found := false
	for _, s := range km.signers {
		if s.KID() == kid {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return fmt.Errorf("jwtx: signer %q not found", kid)
	}

	km.signers = kept
	return nil
}

// Drop removes kid from verification entirely. Call after the grace window
// for a retired key has passed.
func (km *KeyManager) Drop(kid string) {
	km.KeySet.Remove(kid)
}

// NumSigners reports how many keys are actively signing.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// ActiveKIDs lists the kids currently used for signing.
func (km *KeyManager) ActiveKIDs() []string {
	km.mu.RLock()
	defer km.mu.RUnlock()

	kids := make([]string, len(km.signers))
	for i, s := range km.signers {
		kids[i] = s.KID()
	}
	return kids
}

func newKID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", err
	}
	return "lantern-" + token, nil
}
