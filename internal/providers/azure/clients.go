package azure

import (
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// The interfaces below are the subsets of the Azure SDK clients the
// collectors call. Tests satisfy them with canned responses.

type subscriptionsAPI interface {
	NewListPager(options *armsubscriptions.ClientListOptions) *runtime.Pager[armsubscriptions.ClientListResponse]
}

type managedClustersAPI interface {
	NewListPager(options *armcontainerservice.ManagedClustersClientListOptions) *runtime.Pager[armcontainerservice.ManagedClustersClientListResponse]

	GetUpgradeProfile(
		ctx context.Context,
		resourceGroupName, resourceName string,
		options *armcontainerservice.ManagedClustersClientGetUpgradeProfileOptions,
	) (armcontainerservice.ManagedClustersClientGetUpgradeProfileResponse, error)
}

type resourceGraphAPI interface {
	Resources(
		ctx context.Context,
		query armresourcegraph.QueryRequest,
		options *armresourcegraph.ClientResourcesOptions,
	) (armresourcegraph.ClientResourcesResponse, error)
}

type virtualMachinesAPI interface {
	Get(
		ctx context.Context,
		resourceGroupName, vmName string,
		options *armcompute.VirtualMachinesClientGetOptions,
	) (armcompute.VirtualMachinesClientGetResponse, error)
}

type networkInterfacesAPI interface {
	Get(
		ctx context.Context,
		resourceGroupName, networkInterfaceName string,
		options *armnetwork.InterfacesClientGetOptions,
	) (armnetwork.InterfacesClientGetResponse, error)
}

type secretsAPI interface {
	GetSecret(
		ctx context.Context,
		name, version string,
		options *azsecrets.GetSecretOptions,
	) (azsecrets.GetSecretResponse, error)
}

type containerAPI interface {
	Create(ctx context.Context, options *container.CreateOptions) (container.CreateResponse, error)
}

type appendBlobAPI interface {
	Create(ctx context.Context, options *appendblob.CreateOptions) (appendblob.CreateResponse, error)
	AppendBlock(ctx context.Context, body io.ReadSeekCloser, options *appendblob.AppendBlockOptions) (appendblob.AppendBlockResponse, error)
}
