package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/panorama"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

type fakeLocator struct {
	secrets map[string]string // vault url -> key
	ips     map[string]string // resource group -> ip
	lookups []string
}

func (f *fakeLocator) Secret(_ context.Context, vaultURL, name string) (string, error) {
	if name != "api-admin-key" {
		return "", fmt.Errorf("secret %q not found", name)
	}
	k, ok := f.secrets[vaultURL]
	if !ok {
		return "", fmt.Errorf("vault %s not found", vaultURL)
	}
	return k, nil
}

func (f *fakeLocator) VMPrivateIP(_ context.Context, _, rg, vm string) (string, error) {
	f.lookups = append(f.lookups, rg+"/"+vm)
	ip, ok := f.ips[rg]
	if !ok {
		return "", errors.New("vm not found")
	}
	return ip, nil
}

type fakePanorama struct {
	info    panorama.SystemInfo
	devices []panorama.Device
	err     error
}

func (f fakePanorama) SystemInfo(context.Context) (panorama.SystemInfo, error) { return f.info, f.err }

func (f fakePanorama) SoftwareVersions(context.Context) ([]panorama.SoftwareVersion, error) {
	return []panorama.SoftwareVersion{
		{Version: "11.1.2-h3", Current: "no", Latest: "no"},
		{Version: "11.1.2", Current: "no", Latest: "yes", ReleasedOn: "2024/03/01 10:00:00", ReleaseNotes: "https://docs.example/11.1.2"},
		{Version: "10.2.4-h2", Current: "yes", Latest: "no"},
	}, f.err
}

func (f fakePanorama) ConnectedDevices(context.Context) ([]panorama.Device, error) {
	return f.devices, f.err
}

func paloAltoJob(t *testing.T, c store.Container, loc *fakeLocator, dialed *[]string) *PaloAlto {
	return &PaloAlto{
		Base:    testBase(t),
		Locator: loc,
		Dial: func(host, key string) PanoramaClient {
			*dialed = append(*dialed, host+" "+key)
			if strings.HasPrefix(host, "10.1.") {
				return fakePanorama{err: errors.New("connection refused")}
			}
			return fakePanorama{
				info: panorama.SystemInfo{Hostname: "panorama-sbox-uks-0", SWVersion: "10.2.4-h2"},
				devices: []panorama.Device{
					{Hostname: "fw-sbox-1", SWVersion: "10.1.9"},
					{Hostname: "fw-sbox-2", SWVersion: "11.0.3"},
				},
			}
		},
		Store: c,
		Environments: []config.PanoramaEnvironment{
			{Name: "sbox", SubscriptionID: "sub-sbox"},
			{Name: "prod", SubscriptionID: "sub-prod", IP: "10.1.0.4"},
		},
		DesiredVersion: "10.2.4",
		APIKeySecret:   "api-admin-key",
	}
}

func TestPaloAlto_Run(t *testing.T) {
	loc := &fakeLocator{
		secrets: map[string]string{
			"https://panorama-sbox-uks-kv.vault.azure.net": "sbox-key",
			"https://panorama-prod-uks-kv.vault.azure.net": "prod-key",
		},
		ips: map[string]string{"panorama-sbox-uks-rg": "10.0.0.4"},
	}
	c := store.NewMemoryContainer("paloalto")
	seed := []store.Document{
		models.PaloAltoResource{ID: "stale", ResourceName: "fw-sbox-old", ResourceType: resourceFirewall, Environment: "sbox"},
		models.PaloAltoResource{ID: "prod-1", ResourceName: "fw-prod-1", ResourceType: resourceFirewall, Environment: "prod"},
	}
	if err := c.Seed(seed...); err != nil {
		t.Fatal(err)
	}

	var dialed []string
	res, err := paloAltoJob(t, c, loc, &dialed).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "environment prod") {
		t.Fatalf("err = %v; want prod failure reported", err)
	}
	if res.Written != 3 || res.Deleted != 1 {
		t.Errorf("written=%d deleted=%d; want 3 and 1", res.Written, res.Deleted)
	}
	if len(loc.lookups) != 1 || loc.lookups[0] != "panorama-sbox-uks-rg/panorama-sbox-uks-0" {
		t.Errorf("vm lookups = %v; prod has a fixed ip", loc.lookups)
	}
	if len(dialed) != 2 || dialed[0] != "10.0.0.4 sbox-key" || dialed[1] != "10.1.0.4 prod-key" {
		t.Errorf("dialed = %v", dialed)
	}

	got := map[string]models.PaloAltoResource{}
	for _, d := range stored[models.PaloAltoResource](t, c) {
		got[d.ResourceName] = d
	}
	if _, ok := got["fw-prod-1"]; !ok {
		t.Error("documents of the failed environment were removed")
	}
	if _, ok := got["fw-sbox-old"]; ok {
		t.Error("stale sbox document was kept")
	}

	tests := []struct {
		name, resourceType string
		color              verdict.Color
		verdict            string
	}{
		{"panorama-sbox-uks-0", resourcePanorama, verdict.ColorGreen, verdict.VerdictOK},
		{"fw-sbox-1", resourceFirewall, verdict.ColorOrange, verdict.VerdictReview},
		{"fw-sbox-2", resourceFirewall, verdict.ColorGreen, verdict.VerdictOK},
	}
	for _, tt := range tests {
		d, ok := got[tt.name]
		if !ok {
			t.Errorf("%s not stored", tt.name)
			continue
		}
		if d.ResourceType != tt.resourceType || d.ColorCode != tt.color || d.Verdict != tt.verdict {
			t.Errorf("%s = %s %s %q", tt.name, d.ResourceType, d.ColorCode, d.Verdict)
		}
		if d.LatestVersion != "11.1.2" || d.Environment != "sbox" || d.DesiredVersion != "10.2.4" {
			t.Errorf("%s = %+v", tt.name, d)
		}
		if len(d.HotFixes) != 1 || d.HotFixes[0] != "11.1.2-h3" {
			t.Errorf("%s hot fixes = %v", tt.name, d.HotFixes)
		}
		if d.LastUpdated != "10 May 2024 at 10:30:00 AM" {
			t.Errorf("%s lastUpdated = %q", tt.name, d.LastUpdated)
		}
	}
}

func TestPaloAlto_SecretFailureSkipsEnvironment(t *testing.T) {
	loc := &fakeLocator{}
	c := store.NewMemoryContainer("paloalto")
	var dialed []string
	j := paloAltoJob(t, c, loc, &dialed)

	res, err := j.Run(context.Background())
	if err == nil {
		t.Fatal("expected errors")
	}
	if res.Written != 0 || len(dialed) != 0 || len(loc.lookups) != 0 {
		t.Errorf("written=%d dialed=%v lookups=%v", res.Written, dialed, loc.lookups)
	}
}
