package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/azure"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

// AKSSource lists subscriptions and the AKS clusters in them.
type AKSSource interface {
	Subscriptions(ctx context.Context) ([]azure.Subscription, error)
	ManagedClusters(ctx context.Context, sub azure.Subscription) ([]azure.ManagedCluster, error)
}

// AKS reports the control plane version of every AKS cluster in the
// matching subscriptions.
type AKS struct {
	Base
	Source  AKSSource
	Store   store.Container
	Filters []string
}

func (j *AKS) Name() string        { return config.JobAKS }
func (j *AKS) Description() string { return "AKS control plane versions and available upgrades" }

// Run implements Job. Collection failures abort before anything is deleted.
func (j *AKS) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log().With(zap.String("job", j.Name()))

	subs, err := j.Source.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	subs = azure.FilterSubscriptions(subs, j.Filters)
	log.Info("subscriptions selected", zap.Int("count", len(subs)), zap.Strings("filters", j.Filters))

	var docs []models.AKSCluster
	for _, sub := range subs {
		clusters, err := j.Source.ManagedClusters(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("subscription %q: %w", sub.Name, err)
		}
		for _, c := range clusters {
			docs = append(docs, j.card(c))
			log.Debug("cluster checked", zap.String("cluster", c.Name), zap.String("version", c.CurrentVersion))
		}
	}

	res, err := store.ReplaceAll(ctx, j.Store, store.SelectAll, "clusterName", docs)
	result := &Result{
		Job:       j.Name(),
		Documents: documents(docs),
		Written:   res.Written,
		Deleted:   res.Deleted,
		Duration:  time.Since(start),
	}
	if err != nil {
		return result, fmt.Errorf("save aks clusters: %w", err)
	}
	log.Info("aks clusters saved",
		zap.String("clusters", humanize.Comma(int64(len(docs)))),
		zap.Int("deleted", res.Deleted))
	return result, nil
}

func (j *AKS) card(c azure.ManagedCluster) models.AKSCluster {
	available, st := verdict.AKSVerdict(c.CurrentVersion, c.Upgrades)
	resourceType := "SS Cluster"
	if strings.Contains(c.Name, "cft") {
		resourceType = "CFT Cluster"
	}
	return models.AKSCluster{
		ID:                 j.id(),
		Subscription:       c.Subscription.Name,
		ClusterName:        c.Name,
		CurrentVersion:     c.CurrentVersion,
		UpgradeableVersion: available,
		ColorCode:          st.ColorCode,
		ResourceType:       resourceType,
		PowerState:         c.PowerState,
		Verdict:            st.Verdict,
	}
}
