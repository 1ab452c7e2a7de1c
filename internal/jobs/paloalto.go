package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/panorama"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

const (
	paloAltoDisplayName = "Palo Alto Resources"
	paloAltoReportType  = "card"
	paloAltoTimeLayout  = "02 Jan 2006 at 15:04:05 PM"

	resourcePanorama = "Panorama"
	resourceFirewall = "Firewall"
)

// PanoramaClient is the Panorama XML API surface the job reads.
type PanoramaClient interface {
	SystemInfo(ctx context.Context) (panorama.SystemInfo, error)
	SoftwareVersions(ctx context.Context) ([]panorama.SoftwareVersion, error)
	ConnectedDevices(ctx context.Context) ([]panorama.Device, error)
}

// PanoramaLocator resolves the API key and address of a Panorama.
type PanoramaLocator interface {
	Secret(ctx context.Context, vaultURL, name string) (string, error)
	VMPrivateIP(ctx context.Context, subscriptionID, resourceGroup, vmName string) (string, error)
}

// PaloAlto reports PAN-OS versions of each Panorama and its firewalls.
type PaloAlto struct {
	Base
	Locator        PanoramaLocator
	Dial           func(host, apiKey string) PanoramaClient
	Store          store.Container
	Environments   []config.PanoramaEnvironment
	DesiredVersion string
	APIKeySecret   string
}

func (j *PaloAlto) Name() string        { return config.JobPaloAlto }
func (j *PaloAlto) Description() string { return "PAN-OS versions of Panorama and managed firewalls" }

// Run implements Job. A failing environment is logged and the next one
// still runs; its stored documents are left untouched.
func (j *PaloAlto) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log().With(zap.String("job", j.Name()))
	result := &Result{Job: j.Name()}

	var errs []error
	for _, env := range j.Environments {
		elog := log.With(zap.String("environment", env.Name))
		docs, err := j.environment(ctx, env)
		if err != nil {
			elog.Error("environment failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("environment %s: %w", env.Name, err))
			continue
		}

		deleted, err := store.DeleteWhere(ctx, j.Store, store.WhereEquals("environment", env.Name), "resourceType")
		result.Deleted += deleted
		if err != nil {
			errs = append(errs, fmt.Errorf("environment %s: %w", env.Name, err))
			continue
		}
		for _, d := range docs {
			if err := j.Store.Upsert(ctx, d); err != nil {
				errs = append(errs, fmt.Errorf("save %s: %w", d.ResourceName, err))
				continue
			}
			result.Written++
			result.Documents = append(result.Documents, d)
		}
		elog.Info("environment saved", zap.Int("documents", len(docs)), zap.Int("deleted", deleted))
	}
	result.Duration = time.Since(start)
	return result, errors.Join(errs...)
}

func (j *PaloAlto) environment(ctx context.Context, env config.PanoramaEnvironment) ([]models.PaloAltoResource, error) {
	vault := fmt.Sprintf("https://panorama-%s-uks-kv.vault.azure.net", env.Name)
	key, err := j.Locator.Secret(ctx, vault, j.APIKeySecret)
	if err != nil {
		return nil, err
	}

	vmName := fmt.Sprintf("panorama-%s-uks-0", env.Name)
	host := env.IP
	if host == "" {
		rg := fmt.Sprintf("panorama-%s-uks-rg", env.Name)
		if host, err = j.Locator.VMPrivateIP(ctx, env.SubscriptionID, rg, vmName); err != nil {
			return nil, err
		}
	}

	pano := j.Dial(host, key)
	info, err := pano.SystemInfo(ctx)
	if err != nil {
		return nil, err
	}
	versions, err := pano.SoftwareVersions(ctx)
	if err != nil {
		return nil, err
	}
	release, ok := panorama.LatestRelease(versions)
	if !ok {
		return nil, errors.New("software catalogue has no latest version")
	}
	devices, err := pano.ConnectedDevices(ctx)
	if err != nil {
		return nil, err
	}

	now := stamp(j.now(), paloAltoTimeLayout)
	docs := []models.PaloAltoResource{j.card(env.Name, vmName, resourcePanorama, info.SWVersion, release, now)}
	for _, d := range devices {
		docs = append(docs, j.card(env.Name, d.Hostname, resourceFirewall, d.SWVersion, release, now))
	}
	return docs, nil
}

func (j *PaloAlto) card(env, name, resourceType, installed string, rel panorama.Release, now string) models.PaloAltoResource {
	st := verdict.SoftwareVerdict(installed, j.DesiredVersion, rel.Version)
	return models.PaloAltoResource{
		ID:               j.id(),
		DisplayName:      paloAltoDisplayName,
		ReportType:       paloAltoReportType,
		LastUpdated:      now,
		ResourceName:     name,
		LatestVersion:    rel.Version,
		ReleasedOn:       rel.ReleasedOn,
		InstalledVersion: installed,
		DesiredVersion:   j.DesiredVersion,
		ResourceType:     resourceType,
		ColorCode:        st.ColorCode,
		Verdict:          st.Verdict,
		Environment:      env,
		ReleaseNotes:     rel.ReleaseNotes,
		HotFixes:         rel.HotFixes,
	}
}
