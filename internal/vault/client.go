package vault

import (
	"context"
	"fmt"
	"sync"

	"ginie-settings-service/config"

	"github.com/hashicorp/vault/api"
)

// ServiceSecrets holds the secrets the service reads from Vault
type ServiceSecrets struct {
	JWTSecret        string `json:"jwt_secret"`
	DatabasePassword string `json:"database_password"`
	RedisPassword    string `json:"redis_password"`
	AdminPassword    string `json:"admin_password"`
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client       *api.Client
	config       config.VaultConfig
	mu           sync.RWMutex
	cached       *ServiceSecrets
	cacheEnabled bool
}

// NewClient creates a new Vault client
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{
			config:       cfg,
			cacheEnabled: true,
		}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	return &Client{
		client:       client,
		config:       cfg,
		cacheEnabled: true,
	}, nil
}

// GetServiceSecrets reads the service secrets from Vault.
// Returns nil when Vault is disabled so callers fall back to config values.
func (c *Client) GetServiceSecrets(ctx context.Context) (*ServiceSecrets, error) {
	if c.cacheEnabled {
		c.mu.RLock()
		if c.cached != nil {
			defer c.mu.RUnlock()
			return c.cached, nil
		}
		c.mu.RUnlock()
	}

	if !c.config.Enabled {
		return nil, nil
	}

	path := c.secretPath()

	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service secrets from vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("service secrets not found at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	secrets := &ServiceSecrets{
		JWTSecret:        getString(data, "jwt_secret"),
		DatabasePassword: getString(data, "database_password"),
		RedisPassword:    getString(data, "redis_password"),
		AdminPassword:    getString(data, "admin_password"),
	}

	if c.cacheEnabled {
		c.mu.Lock()
		c.cached = secrets
		c.mu.Unlock()
	}

	return secrets, nil
}

// StoreServiceSecrets writes the service secrets to Vault
func (c *Client) StoreServiceSecrets(ctx context.Context, secrets ServiceSecrets) error {
	if !c.config.Enabled {
		return fmt.Errorf("vault is disabled")
	}

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"jwt_secret":        secrets.JWTSecret,
			"database_password": secrets.DatabasePassword,
			"redis_password":    secrets.RedisPassword,
			"admin_password":    secrets.AdminPassword,
		},
	}

	_, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(), secretData)
	if err != nil {
		return fmt.Errorf("failed to store service secrets in vault: %w", err)
	}

	c.mu.Lock()
	c.cached = &secrets
	c.mu.Unlock()

	return nil
}

// ClearCache clears the in-memory cache
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// SetCacheEnabled enables or disables caching
func (c *Client) SetCacheEnabled(enabled bool) {
	c.mu.Lock()
	c.cacheEnabled = enabled
	c.mu.Unlock()
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

// secretPath returns the KV v2 data path for the service secrets
func (c *Client) secretPath() string {
	return fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// NewMockClient creates a disabled client for testing
func NewMockClient() *Client {
	return &Client{
		config: config.VaultConfig{
			Enabled: false,
		},
		cacheEnabled: true,
	}
}
