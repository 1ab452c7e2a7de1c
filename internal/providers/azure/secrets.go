package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// Secret reads the current version of a Key Vault secret.
func (c *Client) Secret(ctx context.Context, vaultURL, name string) (string, error) {
	api, err := azsecrets.NewClient(vaultURL, c.cred, &azsecrets.ClientOptions{ClientOptions: c.opts.clientOptions()})
	if err != nil {
		return "", fmt.Errorf("create key vault client for %q: %w", vaultURL, err)
	}
	return getSecret(ctx, api, name)
}

func getSecret(ctx context.Context, api secretsAPI, name string) (string, error) {
	resp, err := api.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("get secret %q: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %q has no value", name)
	}
	return *resp.Value, nil
}
