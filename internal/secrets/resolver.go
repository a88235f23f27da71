package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/metrics"
	"github.com/Checker-Finance/mt5-adapter/pkg/secrets"
)

// Credentials are what the adapter needs to authenticate against BrokerOps.
type Credentials struct {
	APIKey string
}

// Resolver fetches BrokerOps credentials from the secret store, caching
// resolved values so a sync run does not hit Secrets Manager per deal.
type Resolver struct {
	logger   *zap.Logger
	provider secrets.Provider
	cache    *secrets.Cache[Credentials]
}

func NewResolver(logger *zap.Logger, provider secrets.Provider, cache *secrets.Cache[Credentials]) *Resolver {
	return &Resolver{
		logger:   logger,
		provider: provider,
		cache:    cache,
	}
}

// secretName maps an environment to its secret path, e.g.
// brokerops/prod/adapter.
func secretName(env string) string {
	return fmt.Sprintf("brokerops/%s/adapter", env)
}

// Resolve returns the credentials for the given environment.
func (r *Resolver) Resolve(ctx context.Context, env string) (Credentials, error) {
	key := secretName(env)

	if creds, ok := r.cache.Get(key); ok {
		metrics.IncCacheHit("hit")
		return creds, nil
	}
	metrics.IncCacheHit("miss")

	raw, err := r.provider.GetSecret(ctx, key)
	if err != nil {
		return Credentials{}, fmt.Errorf("resolve credentials for env %s: %w", env, err)
	}

	apiKey, ok := raw["api_key"]
	if !ok || apiKey == "" {
		return Credentials{}, fmt.Errorf("secret %s is missing api_key", key)
	}

	creds := Credentials{APIKey: apiKey}
	r.cache.Put(key, creds)
	r.logger.Debug("resolved brokerops credentials", zap.String("env", env))
	return creds, nil
}

// Invalidate drops a cached entry, forcing a re-fetch on next resolve.
// Used when BrokerOps starts rejecting the current key.
func (r *Resolver) Invalidate(env string) {
	r.cache.Bust(secretName(env))
}
