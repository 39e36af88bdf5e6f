package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVault struct {
	values map[string]string
	calls  int
}

func (f *fakeVault) GetSecret(ctx context.Context, name, version string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	v, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, errors.New("SecretNotFound")
	}
	return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: &v}}, nil
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceEnvironment, "production"))
}

func TestVaultStore_Cache(t *testing.T) {
	fake := &fakeVault{values: map[string]string{"OPENAI-API-KEY": "sk-1"}}
	store := NewVaultStore(fake, true, time.Minute)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		v, err := store.GetSecret(context.Background(), "OPENAI-API-KEY")
		require.NoError(t, err)
		assert.Equal(t, "sk-1", v)
	}
	assert.Equal(t, 1, fake.calls)

	clock = clock.Add(2 * time.Minute)
	_, err := store.GetSecret(context.Background(), "OPENAI-API-KEY")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)

	store.ClearCache()
	_, _ = store.GetSecret(context.Background(), "OPENAI-API-KEY")
	assert.Equal(t, 3, fake.calls)

	_, err = store.GetSecret(context.Background(), "MISSING")
	assert.ErrorContains(t, err, "MISSING")
}

func TestProvider_GetSecretOrEnv(t *testing.T) {
	fake := &fakeVault{values: map[string]string{"POSTGRES-MAIN-HOST": "vault-host"}}
	p := NewProviderWithStore(SourceVault, NewVaultStore(fake, false, 0), zap.NewNop())
	assert.True(t, p.IsVaultEnabled())

	v, err := p.GetSecretOrEnv(context.Background(), "POSTGRES-MAIN-HOST", "ERP_TEST_DB_HOST")
	require.NoError(t, err)
	assert.Equal(t, "vault-host", v)

	t.Setenv("ERP_TEST_DB_HOST", "env-host")
	v, err = p.GetSecretOrEnv(context.Background(), "POSTGRES-MAIN-HOST", "ERP_TEST_DB_HOST")
	require.NoError(t, err)
	assert.Equal(t, "env-host", v)
}

func TestEnvStore(t *testing.T) {
	p := NewProviderWithStore(SourceEnvironment, envStore{}, zap.NewNop())
	_, err := p.GetSecret(context.Background(), "ERP_TEST_UNSET_SECRET")
	assert.Error(t, err)

	t.Setenv("ERP_TEST_SET_SECRET", "x")
	v, err := p.GetSecret(context.Background(), "ERP_TEST_SET_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}
