package azure

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AppendStore appends text to append blobs of one container, creating the
// container and blobs on first use.
type AppendStore struct {
	container containerAPI
	blob      func(name string) appendBlobAPI
}

// NewAppendStore connects to containerName under serviceURL. A storage
// account key is used when accessKey is set; otherwise cred.
func NewAppendStore(serviceURL, containerName, accessKey string, cred azcore.TokenCredential, opts Options) (*AppendStore, error) {
	clientOpts := &azblob.ClientOptions{ClientOptions: opts.clientOptions()}

	var (
		client *azblob.Client
		err    error
	)
	if accessKey != "" {
		account, aerr := accountName(serviceURL)
		if aerr != nil {
			return nil, aerr
		}
		keyCred, kerr := azblob.NewSharedKeyCredential(account, accessKey)
		if kerr != nil {
			return nil, fmt.Errorf("storage shared key: %w", kerr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, keyCred, clientOpts)
	} else {
		client, err = azblob.NewClient(serviceURL, cred, clientOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("create blob client for %q: %w", serviceURL, err)
	}

	cc := client.ServiceClient().NewContainerClient(containerName)
	return &AppendStore{
		container: cc,
		blob:      func(name string) appendBlobAPI { return cc.NewAppendBlobClient(name) },
	}, nil
}

// accountName takes the storage account from "https://<account>.blob...".
func accountName(serviceURL string) (string, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("parse storage url %q: %w", serviceURL, err)
	}
	account, _, _ := strings.Cut(u.Hostname(), ".")
	if account == "" {
		return "", fmt.Errorf("storage url %q has no account name", serviceURL)
	}
	return account, nil
}

// Append adds data to blobName. When the blob does not exist yet it is
// created and header is written first. Returns whether the blob was created.
func (s *AppendStore) Append(ctx context.Context, blobName string, header, data []byte) (bool, error) {
	if err := s.ensureContainer(ctx); err != nil {
		return false, err
	}

	b := s.blob(blobName)
	created := true
	_, err := b.Create(ctx, &appendblob.CreateOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	switch {
	case err == nil:
	case bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
		created = false
	default:
		return false, fmt.Errorf("create append blob %q: %w", blobName, err)
	}

	if created && len(header) > 0 {
		if err := appendBlock(ctx, b, header); err != nil {
			return created, fmt.Errorf("write header to %q: %w", blobName, err)
		}
	}
	if len(data) == 0 {
		return created, nil
	}
	if err := appendBlock(ctx, b, data); err != nil {
		return created, fmt.Errorf("append to %q: %w", blobName, err)
	}
	return created, nil
}

func (s *AppendStore) ensureContainer(ctx context.Context) error {
	_, err := s.container.Create(ctx, &container.CreateOptions{Access: to.Ptr(container.PublicAccessTypeBlob)})
	if err == nil || bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil
	}
	return fmt.Errorf("create container: %w", err)
}

func appendBlock(ctx context.Context, b appendBlobAPI, data []byte) error {
	_, err := b.AppendBlock(ctx, streaming.NopCloser(bytes.NewReader(data)), nil)
	return err
}
