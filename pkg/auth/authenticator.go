package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vaultgate/vaultgate/pkg/access"
	"github.com/vaultgate/vaultgate/pkg/teams"
)

// ErrInvalidToken is returned when a token does not resolve to a user
var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller. HasProfile is false for accounts
// that signed up but were never bound to a team.
type Principal struct {
	UserID     int64
	Email      string
	TeamID     int64
	Role       access.Role
	HasProfile bool
}

// Directory is the lookup surface the authenticator needs. teams.Store
// satisfies it.
type Directory interface {
	LookupToken(ctx context.Context, tokenHash string) (int64, error)
	GetUser(ctx context.Context, id int64) (*teams.User, error)
	GetProfile(ctx context.Context, userID int64) (*teams.Profile, error)
}

// Authenticator resolves tokens to principals with a small expiring cache
// in front of the directory.
type Authenticator struct {
	dir   Directory
	cache *expirable.LRU[string, Principal]
}

// NewAuthenticator creates an authenticator. Cached principals expire after
// ttl so role changes propagate without a restart.
func NewAuthenticator(dir Directory, cacheSize int, ttl time.Duration) *Authenticator {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Authenticator{
		dir:   dir,
		cache: expirable.NewLRU[string, Principal](cacheSize, nil, ttl),
	}
}

// Authenticate resolves a plaintext token to a principal
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	hash := HashToken(token)

	if cached, ok := a.cache.Get(hash); ok {
		copied := cached
		return &copied, nil
	}

	userID, err := a.dir.LookupToken(ctx, hash)
	if errors.Is(err, teams.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	user, err := a.dir.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	principal := Principal{UserID: user.ID, Email: user.Email}
	profile, err := a.dir.GetProfile(ctx, userID)
	switch {
	case err == nil:
		principal.TeamID = profile.TeamID
		principal.Role = profile.Role
		principal.HasProfile = true
	case errors.Is(err, teams.ErrNotFound):
		// Account without a team binding stays authenticated but unprivileged.
	default:
		return nil, fmt.Errorf("failed to load profile for user %d: %w", userID, err)
	}

	a.cache.Add(hash, principal)
	copied := principal
	return &copied, nil
}

// Invalidate drops a token's cached principal
func (a *Authenticator) Invalidate(token string) {
	a.cache.Remove(HashToken(token))
}
