package app

import (
	"fmt"
	"log/slog"

	"github.com/lanternhq/lantern/pkg/jwtx"
)

// InitAuthKeys generates the in-memory Ed25519 signing keys for this process.
// Keys do not survive a restart: outstanding access tokens become invalid,
// which is fine because refresh tokens are opaque database rows and clients
// re-issue cheaply.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, *jwtx.Verifier, error) {
	keyManager, verifier, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  cfg.Issuer,
		NumKeys: cfg.NumKeys,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
	}

	logger.Info("generated ephemeral signing keys",
		"num_keys", keyManager.NumSigners(),
		"issuer", cfg.Issuer,
	)
	logger.Warn("all previously issued access tokens are now invalid")

	return keyManager, verifier, nil
}
