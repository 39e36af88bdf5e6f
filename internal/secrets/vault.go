package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

const defaultCacheTTL = 5 * time.Minute

// SecretGetter is the slice of the Key Vault client the store uses
type SecretGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// VaultStore reads secrets from Azure Key Vault with an optional TTL cache
type VaultStore struct {
	client       SecretGetter
	cacheEnabled bool
	ttl          time.Duration

	mu    sync.Mutex
	cache map[string]cachedSecret
	now   func() time.Time
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// NewVaultStore wraps a Key Vault client
func NewVaultStore(client SecretGetter, cacheEnabled bool, ttl time.Duration) *VaultStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &VaultStore{
		client:       client,
		cacheEnabled: cacheEnabled,
		ttl:          ttl,
		cache:        make(map[string]cachedSecret),
		now:          time.Now,
	}
}

// newAzureClient authenticates with DefaultAzureCredential: environment
// credentials, managed identity or the Azure CLI login
func newAzureClient(vaultName string, logger *zap.Logger) (*azsecrets.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	logger.Info("Azure Key Vault client initialized", zap.String("vault_url", vaultURL))
	return client, nil
}

// GetSecret implements Store
func (v *VaultStore) GetSecret(ctx context.Context, name string) (string, error) {
	if v.cacheEnabled {
		v.mu.Lock()
		cached, ok := v.cache[name]
		v.mu.Unlock()
		if ok && v.now().Before(cached.expiresAt) {
			return cached.value, nil
		}
	}

	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret '%s': %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret '%s' has no value", name)
	}

	if v.cacheEnabled {
		v.mu.Lock()
		v.cache[name] = cachedSecret{value: *resp.Value, expiresAt: v.now().Add(v.ttl)}
		v.mu.Unlock()
	}
	return *resp.Value, nil
}

// ClearCache drops every cached secret
func (v *VaultStore) ClearCache() {
	v.mu.Lock()
	v.cache = make(map[string]cachedSecret)
	v.mu.Unlock()
}
