package service

import (
	"context"
	"errors"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/store"
	"github.com/lanternhq/lantern/pkg/idx"
	"github.com/lanternhq/lantern/pkg/jwtx"
	"github.com/lanternhq/lantern/pkg/scopex"
	"github.com/lanternhq/lantern/pkg/slogx"
)

var (
	ErrAPIKeyNotFound = errors.New("api_key_not_found")
	ErrInvalidScopes  = errors.New("invalid_scopes")
)

// DefaultAPIKeyTTL bounds keys minted without an explicit lifetime.
const DefaultAPIKeyTTL = 365 * 24 * time.Hour

// MintedAPIKey pairs the key record with its signed JWT. The JWT is shown
// exactly once; only the record survives.
type MintedAPIKey struct {
	Key   domain.APIKey
	Token string
}

// APIKeyService mints and revokes machine credentials. The signed JWT's jti
// references the stored record, so revocation is checked on every verify.
type APIKeyService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Issuer     string
	TTL        time.Duration
}

func (s *APIKeyService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultAPIKeyTTL
}

// Mint creates a key carrying a subset of the owner's scopes. Requesting a
// scope the user does not hold fails outright rather than silently
// narrowing.
func (s *APIKeyService) Mint(ctx context.Context, userID, name string, scopes []string) (*MintedAPIKey, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Owner templates are bound to the owner before comparison and signing,
	// same as at login, so the key's claims are concrete.
	owner := map[string]string{"userId": userID}
	ownerScopes := scopex.Bind(user.Scopes, owner)
	scopes = scopex.Bind(scopes, owner)

	granted := make(map[string]struct{}, len(ownerScopes))
	for _, sc := range ownerScopes {
		granted[sc] = struct{}{}
	}
	for _, sc := range scopes {
		if _, ok := granted[sc]; !ok {
			return nil, ErrInvalidScopes
		}
	}
	if len(scopes) == 0 {
		scopes = ownerScopes
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl())

	key := domain.APIKey{
		ID:        idx.New().String(),
		UserID:    userID,
		Name:      name,
		Scopes:    scopes,
		ExpiresAt: &expiresAt,
		CreatedAt: now,
	}

	claims := jwtx.NewAPIKeyClaims(userID, key.ID, scopes, s.ttl(), s.Issuer, now)
	token, err := s.KeyManager.GetSigner().Sign(claims)
	if err != nil {
		return nil, err
	}

	if err := s.Store.APIKeys().CreateAPIKey(ctx, key); err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("api key minted", "user_id", userID, "key_id", key.ID, "name", name)
	return &MintedAPIKey{Key: key, Token: token}, nil
}

// List returns the user's keys, revoked ones included so the UI can show
// history.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]domain.APIKey, error) {
	return s.Store.APIKeys().ListUserAPIKeys(ctx, userID)
}

// Revoke withdraws a key; its JWT fails verification from then on.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID string) error {
	key, err := s.Store.APIKeys().GetAPIKeyByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAPIKeyNotFound
		}
		return err
	}
	if key.UserID != userID {
		return ErrAPIKeyNotFound
	}

	if err := s.Store.APIKeys().RevokeAPIKey(ctx, keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAPIKeyNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("api key revoked", "user_id", userID, "key_id", keyID)
	return nil
}
