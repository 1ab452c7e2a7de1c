package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/fetch"
	"github.com/platops/status-reports/internal/providers/kubernetes"
	"github.com/platops/status-reports/internal/providers/upstream"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

// Platform apps tracked by the Apps job.
const (
	AppCamunda  = "Camunda"
	AppDocmosis = "Docmosis"
	AppFlux     = "Flux"
)

const (
	camundaMarker  = "Camunda Platform:"
	docmosisMarker = "Starting Tornado version:"
	fluxVersionKey = "app.kubernetes.io/version"
)

// LatestSource returns the newest released version of an app.
type LatestSource interface {
	Latest(ctx context.Context, app string) (string, error)
}

// TagLister returns the newest tag of a GitHub repository.
type TagLister interface {
	LatestTag(ctx context.Context, owner, repo, exclude string) (string, error)
}

// VendorVersions looks latest versions up on vendor sites and GitHub.
type VendorVersions struct {
	Getter      fetch.Getter
	Tags        TagLister
	CamundaURL  string
	DocmosisURL string
	FluxRepo    string
}

// Latest implements LatestSource.
func (v VendorVersions) Latest(ctx context.Context, app string) (string, error) {
	switch app {
	case AppCamunda:
		return upstream.CamundaLatest(ctx, v.Getter, v.CamundaURL)
	case AppDocmosis:
		return upstream.DocmosisLatest(ctx, v.Getter, v.DocmosisURL)
	case AppFlux:
		owner, repo, ok := strings.Cut(v.FluxRepo, "/")
		if !ok {
			return "", fmt.Errorf("flux repository %q is not owner/name", v.FluxRepo)
		}
		return v.Tags.LatestTag(ctx, owner, repo, "alpha")
	default:
		return "", fmt.Errorf("unknown app %q", app)
	}
}

// Apps compares the Camunda, Docmosis and Flux versions running in a
// cluster with their latest releases.
type Apps struct {
	Base
	Cluster     kubernetes.LogReader
	Latest      LatestSource
	Store       store.Container
	ClusterName string
	Environment string

	// Save writes documents; otherwise they are only logged.
	Save bool
}

func (j *Apps) Name() string        { return config.JobApps }
func (j *Apps) Description() string { return "Camunda, Docmosis and Flux versions in the cluster" }

// Run implements Job. Apps whose running version cannot be read are left
// out of the report.
func (j *Apps) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log().With(zap.String("job", j.Name()), zap.String("cluster", j.ClusterName))

	var docs []models.PlatformApp
	for _, app := range []string{AppCamunda, AppDocmosis, AppFlux} {
		current, err := j.current(ctx, app)
		if err != nil {
			log.Warn("current version unavailable", zap.String("app", app), zap.Error(err))
			continue
		}
		latest, err := j.Latest.Latest(ctx, app)
		if err != nil {
			log.Warn("latest version unavailable", zap.String("app", app), zap.Error(err))
		}
		docs = append(docs, j.card(app, current, latest))
	}

	result := &Result{Job: j.Name(), Documents: documents(docs)}
	if !j.Save {
		body, err := json.MarshalIndent(docs, "", "    ")
		if err != nil {
			return result, err
		}
		log.Info("documents not saved", zap.ByteString("documents", body))
		result.Duration = time.Since(start)
		return result, nil
	}

	res, err := store.ReplaceAll(ctx, j.Store, store.WhereEquals("environment", j.Environment), "appName", docs)
	result.Written, result.Deleted = res.Written, res.Deleted
	result.Duration = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("save platform apps: %w", err)
	}
	log.Info("platform apps saved", zap.Int("documents", res.Written), zap.Int("deleted", res.Deleted))
	return result, nil
}

// current reads the running version of app as MAJOR.MINOR.PATCH.
func (j *Apps) current(ctx context.Context, app string) (string, error) {
	var raw string
	switch app {
	case AppCamunda:
		logs, err := j.Cluster.FirstPodLogs(ctx, "camunda", kubernetes.AppNameLabel+"=camunda-api-java")
		if err != nil {
			return "", err
		}
		line, ok := lineContaining(logs, camundaMarker)
		if !ok {
			return "", errors.New("no version line in camunda logs")
		}
		_, after, _ := strings.Cut(line, camundaMarker)
		raw = strings.NewReplacer("(", "", ")", "").Replace(strings.TrimSpace(after))
	case AppDocmosis:
		logs, err := j.Cluster.FirstPodLogs(ctx, "docmosis", kubernetes.AppNameLabel+"=docmosis-base")
		if err != nil {
			return "", err
		}
		line, ok := lineContaining(logs, docmosisMarker)
		if !ok {
			return "", errors.New("no version line in docmosis logs")
		}
		_, after, _ := strings.Cut(line, docmosisMarker)
		raw = strings.TrimSpace(after)
	case AppFlux:
		v, err := j.Cluster.NamespaceLabel(ctx, "flux-system", fluxVersionKey)
		if err != nil {
			return "", err
		}
		raw = v
	default:
		return "", fmt.Errorf("unknown app %q", app)
	}
	return verdict.ExtractSemver(raw)
}

func (j *Apps) card(app, current, latest string) models.PlatformApp {
	st, err := verdict.CompareVersions(current, latest)
	if err != nil {
		st = verdict.Status{Reason: err.Error(), ColorCode: verdict.ColorRed, Verdict: verdict.VerdictError}
	}
	return models.PlatformApp{
		ID:              j.id() + "_" + j.ClusterName,
		AppName:         app,
		RecordType:      app,
		CurrentVersion:  current,
		ClusterName:     j.ClusterName,
		Environment:     j.Environment,
		RequiredVersion: latest,
		ColorCode:       st.ColorCode,
		Verdict:         st.Verdict,
		Reason:          st.Reason,
	}
}

func lineContaining(text, marker string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, marker) {
			return line, true
		}
	}
	return "", false
}
