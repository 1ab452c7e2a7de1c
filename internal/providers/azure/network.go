package azure

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
)

// ErrNoPrivateIP is returned when a VM has no NIC with a private address.
var ErrNoPrivateIP = errors.New("no private ip address")

// VMPrivateIP returns the private IP of the primary NIC of a VM.
func (c *Client) VMPrivateIP(ctx context.Context, subscriptionID, resourceGroup, vmName string) (string, error) {
	vms, err := armcompute.NewVirtualMachinesClient(subscriptionID, c.cred, c.opts.armOptions())
	if err != nil {
		return "", fmt.Errorf("create virtual machines client: %w", err)
	}
	nics, err := armnetwork.NewInterfacesClient(subscriptionID, c.cred, c.opts.armOptions())
	if err != nil {
		return "", fmt.Errorf("create network interfaces client: %w", err)
	}
	return privateIP(ctx, vms, nics, resourceGroup, vmName)
}

func privateIP(ctx context.Context, vms virtualMachinesAPI, nics networkInterfacesAPI, resourceGroup, vmName string) (string, error) {
	vm, err := vms.Get(ctx, resourceGroup, vmName, nil)
	if err != nil {
		return "", fmt.Errorf("get vm %s/%s: %w", resourceGroup, vmName, err)
	}
	if vm.Properties == nil || vm.Properties.NetworkProfile == nil {
		return "", fmt.Errorf("vm %s/%s: %w", resourceGroup, vmName, ErrNoPrivateIP)
	}

	nicID := ""
	for _, ref := range vm.Properties.NetworkProfile.NetworkInterfaces {
		if ref == nil || ref.ID == nil {
			continue
		}
		if nicID == "" {
			nicID = *ref.ID
		}
		if ref.Properties != nil && ref.Properties.Primary != nil && *ref.Properties.Primary {
			nicID = *ref.ID
			break
		}
	}
	if nicID == "" {
		return "", fmt.Errorf("vm %s/%s: %w", resourceGroup, vmName, ErrNoPrivateIP)
	}

	rid, err := arm.ParseResourceID(nicID)
	if err != nil {
		return "", fmt.Errorf("parse nic id %q: %w", nicID, err)
	}
	nic, err := nics.Get(ctx, rid.ResourceGroupName, rid.Name, nil)
	if err != nil {
		return "", fmt.Errorf("get nic %s: %w", rid.Name, err)
	}
	if nic.Properties == nil {
		return "", fmt.Errorf("nic %s: %w", rid.Name, ErrNoPrivateIP)
	}

	ip := ""
	for _, cfg := range nic.Properties.IPConfigurations {
		if cfg == nil || cfg.Properties == nil || cfg.Properties.PrivateIPAddress == nil {
			continue
		}
		if ip == "" {
			ip = *cfg.Properties.PrivateIPAddress
		}
		if cfg.Properties.Primary != nil && *cfg.Properties.Primary {
			ip = *cfg.Properties.PrivateIPAddress
			break
		}
	}
	if ip == "" {
		return "", fmt.Errorf("nic %s: %w", rid.Name, ErrNoPrivateIP)
	}
	return ip, nil
}
