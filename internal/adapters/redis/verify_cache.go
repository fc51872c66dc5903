package redis

// Package redis provides Redis-based adapters for the grievance portal.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/ports"
	"golang.org/x/sync/singleflight"
)

// DefaultVerifyTTL bounds how long a provider-token verification result
// is reused. Kept short so provider-side revocation is honored promptly.
const DefaultVerifyTTL = time.Minute

// VerifyCache decorates a ProviderVerifier with a short-TTL Redis cache,
// saving a provider round trip per authenticated request. Keys are
// SHA-256 digests of the access token; raw tokens never reach Redis.
type VerifyCache struct {
	inner  ports.ProviderVerifier
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// VerifyCacheConfig groups VerifyCache dependencies.
type VerifyCacheConfig struct {
	Inner  ports.ProviderVerifier
	Client redis.UniversalClient
	TTL    time.Duration // defaults to DefaultVerifyTTL
}

// NewVerifyCache constructs a VerifyCache.
func NewVerifyCache(cfg VerifyCacheConfig) (*VerifyCache, error) {
	if cfg.Inner == nil {
		return nil, errors.New("verify cache: inner verifier is required")
	}
	if cfg.Client == nil {
		return nil, errors.New("verify cache: redis client is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultVerifyTTL
	}
	return &VerifyCache{
		inner:  cfg.Inner,
		client: cfg.Client,
		prefix: "idp:verify:",
		ttl:    ttl,
	}, nil
}

// GetUser returns the cached provider user for the token, falling through
// to the inner verifier on miss. Verification failures are never cached.
func (c *VerifyCache) GetUser(ctx context.Context, accessToken string) (domainauth.ProviderUser, error) {
	key := c.key(accessToken)

	if data, err := c.client.Get(ctx, key).Result(); err == nil {
		var user domainauth.ProviderUser
		if unmarshalErr := json.Unmarshal([]byte(data), &user); unmarshalErr == nil && user.ID != "" {
			return user, nil
		}
		// Unreadable entry: drop it and re-verify.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
		// Cache trouble must not take authentication down; fall through.
		_ = err
	}

	// Collapse concurrent misses for the same token into one provider call.
	v, err, _ := c.group.Do(key, func() (any, error) {
		user, innerErr := c.inner.GetUser(ctx, accessToken)
		if innerErr != nil {
			return domainauth.ProviderUser{}, innerErr
		}

		if data, marshalErr := json.Marshal(user); marshalErr == nil {
			// Best-effort write; a failed cache fill only costs a round trip.
			_ = c.client.Set(ctx, key, data, c.ttl).Err()
		}
		return user, nil
	})
	if err != nil {
		return domainauth.ProviderUser{}, err
	}
	user, _ := v.(domainauth.ProviderUser)
	return user, nil
}

func (c *VerifyCache) key(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return fmt.Sprintf("%s%s", c.prefix, hex.EncodeToString(sum[:]))
}
