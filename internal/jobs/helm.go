package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/helmrepo"
	"github.com/platops/status-reports/internal/providers/kubernetes"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

const latestUnknown = "Latest version unknown"

// ReleaseLister lists deployed Helm releases.
type ReleaseLister interface {
	HelmReleases(ctx context.Context) ([]kubernetes.HelmRelease, error)
}

// ChartResolver finds the newest release of a chart in a repository.
type ChartResolver interface {
	LatestVersion(ctx context.Context, repoURL, chart string) (helmrepo.ChartVersion, bool, error)
}

// Helm reports installed Helm charts against their repository's latest.
type Helm struct {
	Base
	Releases     ReleaseLister
	Resolver     ChartResolver
	Store        store.Container
	ClusterName  string
	Repositories map[string]string
}

func (j *Helm) Name() string        { return config.JobHelm }
func (j *Helm) Description() string { return "Helm charts installed in the cluster against their latest release" }

// Run implements Job. Documents are matched on chart, namespace and
// cluster; unchanged versions are not rewritten.
func (j *Helm) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log().With(zap.String("job", j.Name()), zap.String("cluster", j.ClusterName))

	releases, err := j.Releases.HelmReleases(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("releases found", zap.Int("count", len(releases)))

	result := &Result{Job: j.Name()}
	var errs []error
	for _, rel := range releases {
		doc, err := j.card(ctx, rel)
		if err != nil {
			log.Warn("latest version lookup failed", zap.String("chart", rel.Chart), zap.Error(err))
		}
		result.Documents = append(result.Documents, doc)

		q := store.WhereEquals("chartName", doc.ChartName, "namespace", doc.Namespace, "clusterName", doc.ClusterName)
		outcome, err := store.UpsertByNaturalKey(ctx, j.Store, doc, q, "clusterName", sameCard(doc))
		if err != nil {
			errs = append(errs, fmt.Errorf("save chart %s/%s: %w", doc.Namespace, doc.ChartName, err))
			continue
		}
		switch outcome {
		case store.Skipped:
			result.Skipped++
		default:
			result.Written++
		}
		log.Debug("chart saved", zap.String("chart", doc.ChartName), zap.String("outcome", string(outcome)))
	}
	result.Duration = time.Since(start)
	return result, errors.Join(errs...)
}

// card builds the document. A failed lookup still yields a card marked
// with an unknown latest version, alongside the error.
func (j *Helm) card(ctx context.Context, rel kubernetes.HelmRelease) (models.HelmChart, error) {
	doc := models.HelmChart{
		ID:               j.id(),
		ChartName:        rel.Chart,
		ReleaseName:      rel.Name,
		Namespace:        rel.Namespace,
		InstalledVersion: rel.ChartVersion,
		LatestVersion:    rel.ChartVersion,
		AppVersion:       rel.AppVersion,
		ClusterName:      j.ClusterName,
		LastUpdated:      stamp(j.now(), time.RFC3339),
	}
	unknown := verdict.Status{Reason: latestUnknown, ColorCode: verdict.ColorOrange, Verdict: verdict.VerdictReview}

	repo, ok := j.Repositories[rel.Chart]
	if !ok {
		setStatus(&doc, unknown)
		return doc, nil
	}
	latest, found, err := j.Resolver.LatestVersion(ctx, repo, rel.Chart)
	if err != nil || !found {
		setStatus(&doc, unknown)
		return doc, err
	}
	doc.LatestVersion = latest.Version
	setStatus(&doc, compareLoose(rel.ChartVersion, latest.Version))
	return doc, nil
}

func setStatus(doc *models.HelmChart, st verdict.Status) {
	doc.ColorCode = st.ColorCode
	doc.Verdict = st.Verdict
	doc.Reason = st.Reason
}

// compareLoose compares the MAJOR.MINOR.PATCH cores of two versions so
// prerelease or build suffixes do not fail the comparison.
func compareLoose(current, latest string) verdict.Status {
	c, err := verdict.ExtractSemver(current)
	if err == nil {
		var l string
		if l, err = verdict.ExtractSemver(latest); err == nil {
			var st verdict.Status
			if st, err = verdict.CompareVersions(c, l); err == nil {
				return st
			}
		}
	}
	return verdict.Status{Reason: err.Error(), ColorCode: verdict.ColorRed, Verdict: verdict.VerdictError}
}

// sameCard reports an existing document as unchanged when it carries the
// same versions and status as doc. An unknown latest version shares its
// version with the installed one, so the status must match too.
func sameCard(doc models.HelmChart) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var existing models.HelmChart
		if err := json.Unmarshal(raw, &existing); err != nil {
			return false
		}
		return existing.InstalledVersion == doc.InstalledVersion &&
			existing.LatestVersion == doc.LatestVersion &&
			existing.ColorCode == doc.ColorCode &&
			existing.Verdict == doc.Verdict &&
			existing.Reason == doc.Reason
	}
}
