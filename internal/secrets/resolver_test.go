package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/pkg/secrets"
)

type fakeProvider struct {
	data  map[string]map[string]string
	calls int
	err   error
}

func (f *fakeProvider) GetSecret(_ context.Context, key string) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	sec, ok := f.data[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return sec, nil
}

func (f *fakeProvider) ListSecrets(context.Context, string) ([]string, error) {
	return nil, nil
}

func TestResolver_ResolveAndCache(t *testing.T) {
	fp := &fakeProvider{data: map[string]map[string]string{
		"brokerops/dev/adapter": {"api_key": "k-123"},
	}}
	r := NewResolver(zap.NewNop(), fp, secrets.NewCache[Credentials](time.Minute))

	creds, err := r.Resolve(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, "k-123", creds.APIKey)

	_, err = r.Resolve(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, 1, fp.calls, "second resolve must come from cache")
}

func TestResolver_MissingAPIKey(t *testing.T) {
	fp := &fakeProvider{data: map[string]map[string]string{
		"brokerops/dev/adapter": {"something_else": "x"},
	}}
	r := NewResolver(zap.NewNop(), fp, secrets.NewCache[Credentials](time.Minute))

	_, err := r.Resolve(context.Background(), "dev")
	assert.ErrorContains(t, err, "missing api_key")
}

func TestResolver_InvalidateForcesRefetch(t *testing.T) {
	fp := &fakeProvider{data: map[string]map[string]string{
		"brokerops/dev/adapter": {"api_key": "k-123"},
	}}
	r := NewResolver(zap.NewNop(), fp, secrets.NewCache[Credentials](time.Minute))

	_, err := r.Resolve(context.Background(), "dev")
	require.NoError(t, err)

	r.Invalidate("dev")
	_, err = r.Resolve(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, 2, fp.calls)
}
