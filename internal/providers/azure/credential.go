// Package azure collects the Azure Resource Manager, Resource Graph, Key
// Vault and Blob Storage data the report jobs need.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// managementScope is the token audience for Azure Resource Manager.
const managementScope = "https://management.azure.com/.default"

// Options tunes the SDK retry policy shared by every client.
type Options struct {
	MaxRetries int32
	RetryDelay time.Duration
}

func (o Options) clientOptions() azcore.ClientOptions {
	return azcore.ClientOptions{
		Retry: policy.RetryOptions{
			MaxRetries: o.MaxRetries,
			RetryDelay: o.RetryDelay,
		},
	}
}

func (o Options) armOptions() *arm.ClientOptions {
	return &arm.ClientOptions{ClientOptions: o.clientOptions()}
}

// NewCredential returns the default Azure credential chain: environment,
// workload identity, managed identity, then the Azure CLI.
func NewCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create default azure credential: %w", err)
	}
	return cred, nil
}

// CheckToken acquires a management token to prove the credential works.
func CheckToken(ctx context.Context, cred azcore.TokenCredential) (time.Time, error) {
	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}})
	if err != nil {
		return time.Time{}, fmt.Errorf("acquire management token: %w", err)
	}
	return tok.ExpiresOn, nil
}

// IsNotFound reports whether err is a 404 from an Azure service.
func IsNotFound(err error) bool {
	var re *azcore.ResponseError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

// Client builds the SDK clients for one credential.
type Client struct {
	cred azcore.TokenCredential
	opts Options
}

// NewClient returns a Client authenticating with cred.
func NewClient(cred azcore.TokenCredential, opts Options) *Client {
	return &Client{cred: cred, opts: opts}
}
