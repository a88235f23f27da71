package secrets

import "context"

// Provider fetches secrets from an external secret store.
// Secrets are stored as flat JSON maps of string to string.
type Provider interface {
	// GetSecret fetches and decodes the secret stored under key.
	GetSecret(ctx context.Context, key string) (map[string]string, error)

	// ListSecrets returns the names of all secrets whose name starts with prefix.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
