package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"

	"github.com/platops/status-reports/internal/verdict"
)

// unknownPowerState is reported when the cluster carries no power state.
const unknownPowerState = "Unknown"

// ManagedCluster is an AKS cluster with its control plane upgrade profile.
type ManagedCluster struct {
	ID             string
	Name           string
	ResourceGroup  string
	Subscription   Subscription
	PowerState     string
	CurrentVersion string
	Upgrades       []verdict.Upgrade
}

// AKSCollector lists AKS clusters of a subscription.
type AKSCollector interface {
	ManagedClusters(ctx context.Context, sub Subscription) ([]ManagedCluster, error)
}

var _ AKSCollector = (*Client)(nil)

// ManagedClusters lists the clusters of sub and reads each upgrade profile.
func (c *Client) ManagedClusters(ctx context.Context, sub Subscription) ([]ManagedCluster, error) {
	api, err := armcontainerservice.NewManagedClustersClient(sub.ID, c.cred, c.opts.armOptions())
	if err != nil {
		return nil, fmt.Errorf("create managed clusters client for %q: %w", sub.Name, err)
	}
	return collectClusters(ctx, api, sub)
}

// collectClusters is the testable core of ManagedClusters.
func collectClusters(ctx context.Context, api managedClustersAPI, sub Subscription) ([]ManagedCluster, error) {
	var out []ManagedCluster
	pager := api.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clusters in %q: %w", sub.Name, err)
		}
		for _, mc := range page.Value {
			if mc == nil || mc.ID == nil || mc.Name == nil {
				continue
			}
			cluster, err := describeCluster(ctx, api, sub, mc)
			if err != nil {
				return nil, err
			}
			out = append(out, cluster)
		}
	}
	return out, nil
}

func describeCluster(ctx context.Context, api managedClustersAPI, sub Subscription, mc *armcontainerservice.ManagedCluster) (ManagedCluster, error) {
	rid, err := arm.ParseResourceID(*mc.ID)
	if err != nil {
		return ManagedCluster{}, fmt.Errorf("parse cluster id %q: %w", *mc.ID, err)
	}

	cluster := ManagedCluster{
		ID:            *mc.ID,
		Name:          *mc.Name,
		ResourceGroup: rid.ResourceGroupName,
		Subscription:  sub,
		PowerState:    unknownPowerState,
	}
	if p := mc.Properties; p != nil {
		if p.PowerState != nil && p.PowerState.Code != nil {
			cluster.PowerState = string(*p.PowerState.Code)
		}
		if p.CurrentKubernetesVersion != nil {
			cluster.CurrentVersion = *p.CurrentKubernetesVersion
		}
	}

	resp, err := api.GetUpgradeProfile(ctx, cluster.ResourceGroup, cluster.Name, nil)
	if err != nil {
		return ManagedCluster{}, fmt.Errorf("get upgrade profile of %q: %w", cluster.Name, err)
	}
	if resp.Properties == nil || resp.Properties.ControlPlaneProfile == nil {
		return cluster, nil
	}
	cp := resp.Properties.ControlPlaneProfile
	if cp.KubernetesVersion != nil {
		cluster.CurrentVersion = *cp.KubernetesVersion
	}
	for _, u := range cp.Upgrades {
		if u == nil || u.KubernetesVersion == nil {
			continue
		}
		cluster.Upgrades = append(cluster.Upgrades, verdict.Upgrade{
			KubernetesVersion: *u.KubernetesVersion,
			IsPreview:         u.IsPreview != nil && *u.IsPreview,
		})
	}
	return cluster, nil
}
