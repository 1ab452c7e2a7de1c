package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// CosmosOptions locates and authenticates a Cosmos DB container.
type CosmosOptions struct {
	Endpoint  string
	Key       string
	Database  string
	Container string

	// MaxRetries and RetryDelay tune the SDK retry policy applied to every
	// request (throttling, timeouts, transient 5xx).
	MaxRetries int32
	RetryDelay time.Duration
}

// CosmosContainer implements Container on the Azure Cosmos DB SDK.
type CosmosContainer struct {
	name   string
	client *azcosmos.ContainerClient
}

var _ Container = (*CosmosContainer)(nil)

// NewCosmosContainer connects to the container described by opts. An account
// key is used when opts.Key is set; otherwise cred (Azure AD) authenticates.
func NewCosmosContainer(opts CosmosOptions, cred azcore.TokenCredential) (*CosmosContainer, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("cosmos endpoint is not configured")
	}

	clientOpts := &azcosmos.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries: opts.MaxRetries,
				RetryDelay: opts.RetryDelay,
			},
		},
	}

	var (
		client *azcosmos.Client
		err    error
	)
	if opts.Key != "" {
		keyCred, kerr := azcosmos.NewKeyCredential(opts.Key)
		if kerr != nil {
			return nil, fmt.Errorf("cosmos key credential: %w", kerr)
		}
		client, err = azcosmos.NewClientWithKey(opts.Endpoint, keyCred, clientOpts)
	} else {
		if cred == nil {
			return nil, errors.New("cosmos: neither an account key nor an Azure credential is configured")
		}
		client, err = azcosmos.NewClient(opts.Endpoint, cred, clientOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("create cosmos client for %q: %w", opts.Endpoint, err)
	}

	cc, err := client.NewContainer(opts.Database, opts.Container)
	if err != nil {
		return nil, fmt.Errorf("open container %s/%s: %w", opts.Database, opts.Container, err)
	}
	return &CosmosContainer{name: opts.Container, client: cc}, nil
}

// Name implements Container.
func (c *CosmosContainer) Name() string { return c.name }

// Ping reads the container properties to prove the endpoint, credentials and
// container name are valid.
func (c *CosmosContainer) Ping(ctx context.Context) error {
	if _, err := c.client.Read(ctx, nil); err != nil {
		return fmt.Errorf("read container %q: %w", c.name, err)
	}
	return nil
}

// queryPartitionKey scopes q to its partition, or to every partition when
// q names none.
func queryPartitionKey(q Query) azcosmos.PartitionKey {
	if q.PartitionKey == "" {
		return azcosmos.NewPartitionKey()
	}
	return azcosmos.NewPartitionKeyString(q.PartitionKey)
}

// Query implements Container. Pages are drained before returning.
func (c *CosmosContainer) Query(ctx context.Context, q Query) ([]json.RawMessage, error) {
	pk := queryPartitionKey(q)
	opts := &azcosmos.QueryOptions{}
	for _, p := range q.Parameters {
		opts.QueryParameters = append(opts.QueryParameters, azcosmos.QueryParameter{Name: p.Name, Value: p.Value})
	}

	var items []json.RawMessage
	pager := c.client.NewQueryItemsPager(q.SQL, pk, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %q in %q: %w", q.SQL, c.name, err)
		}
		for _, item := range page.Items {
			items = append(items, json.RawMessage(item))
		}
	}
	return items, nil
}

// Create implements Container.
func (c *CosmosContainer) Create(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %q: %w", doc.DocumentID(), err)
	}
	_, err = c.client.CreateItem(ctx, azcosmos.NewPartitionKeyString(doc.PartitionKey()), body, nil)
	if statusCode(err) == http.StatusConflict {
		return fmt.Errorf("create %q in %q: %w", doc.DocumentID(), c.name, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create %q in %q: %w", doc.DocumentID(), c.name, err)
	}
	return nil
}

// Upsert implements Container.
func (c *CosmosContainer) Upsert(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %q: %w", doc.DocumentID(), err)
	}
	if _, err := c.client.UpsertItem(ctx, azcosmos.NewPartitionKeyString(doc.PartitionKey()), body, nil); err != nil {
		return fmt.Errorf("upsert %q in %q: %w", doc.DocumentID(), c.name, err)
	}
	return nil
}

// Replace implements Container.
func (c *CosmosContainer) Replace(ctx context.Context, id string, doc Document) error {
	body, err := marshalWithID(doc, id)
	if err != nil {
		return err
	}
	_, err = c.client.ReplaceItem(ctx, azcosmos.NewPartitionKeyString(doc.PartitionKey()), id, body, nil)
	if statusCode(err) == http.StatusNotFound {
		return fmt.Errorf("replace %q in %q: %w", id, c.name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("replace %q in %q: %w", id, c.name, err)
	}
	return nil
}

// Delete implements Container.
func (c *CosmosContainer) Delete(ctx context.Context, partitionKey, id string) error {
	_, err := c.client.DeleteItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, nil)
	if err != nil && statusCode(err) != http.StatusNotFound {
		return fmt.Errorf("delete %q from %q: %w", id, c.name, err)
	}
	return nil
}

// statusCode returns the HTTP status of an Azure SDK error, or 0.
func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
