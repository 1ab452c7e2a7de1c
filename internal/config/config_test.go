package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_DefaultsOnly(t *testing.T) {
	l := &FileLoader{Getenv: envMap(nil)}
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cosmos.Database != "reports" {
		t.Errorf("Database = %q; want reports", cfg.Cosmos.Database)
	}
	if cfg.CVE.BatchSize != 500 {
		t.Errorf("BatchSize = %d; want 500", cfg.CVE.BatchSize)
	}
	if !cfg.Apps.Save {
		t.Error("Apps.Save should default to true")
	}
	if got := cfg.ContainerFor(JobPaloAlto); got != "paloalto" {
		t.Errorf("ContainerFor = %q; want paloalto", got)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports.yaml")

	content := `
cosmos:
  endpoint: https://yaml.documents.azure.com:443/
  database: yamldb
  retry_delay: 5s
helm:
  cluster_name: from-yaml
  repositories:
    ingress-nginx: https://kubernetes.github.io/ingress-nginx
paloalto:
  environments:
    - name: stg
      ip: 10.0.0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &FileLoader{Path: path, Getenv: envMap(map[string]string{
		"COSMOS_DB_NAME":           "envdb",
		"CLUSTER_NAME":             "cft-prod-00-aks",
		"SAVE_TO_COSMOS":           "False",
		"DESIRED_SOFTWARE_VERSION": "11.1.2",
	})}
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Cosmos.Endpoint != "https://yaml.documents.azure.com:443/" {
		t.Errorf("Endpoint = %q", cfg.Cosmos.Endpoint)
	}
	if cfg.Cosmos.Database != "envdb" {
		t.Errorf("Database = %q; env must win over yaml", cfg.Cosmos.Database)
	}
	if cfg.Cosmos.RetryDelay != 5*time.Second {
		t.Errorf("RetryDelay = %v; want 5s", cfg.Cosmos.RetryDelay)
	}
	if cfg.Helm.ClusterName != "cft-prod-00-aks" || cfg.Apps.ClusterName != "cft-prod-00-aks" {
		t.Errorf("CLUSTER_NAME not applied: helm=%q apps=%q", cfg.Helm.ClusterName, cfg.Apps.ClusterName)
	}
	if cfg.Helm.Repositories["ingress-nginx"] == "" {
		t.Error("expected helm repository from yaml")
	}
	if cfg.Apps.Save {
		t.Error("SAVE_TO_COSMOS=False must disable saving")
	}
	if len(cfg.PaloAlto.Environments) != 1 || cfg.PaloAlto.Environments[0].IP != "10.0.0.5" {
		t.Errorf("Environments = %+v; yaml list must replace defaults", cfg.PaloAlto.Environments)
	}
	if cfg.PaloAlto.DesiredVersion != "11.1.2" {
		t.Errorf("DesiredVersion = %q", cfg.PaloAlto.DesiredVersion)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	l := &FileLoader{Path: "nonexistent.yaml", Getenv: envMap(nil)}
	if _, err := l.Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_BadEnvNumber(t *testing.T) {
	l := &FileLoader{Getenv: envMap(map[string]string{"CVE_BATCH_SIZE": "many"})}
	if _, err := l.Load(); err == nil {
		t.Fatal("expected error for non-numeric CVE_BATCH_SIZE")
	}
}

func TestParseBool(t *testing.T) {
	cases := map[string]bool{
		"true": true, "True": true, "1": true, "t": true, "T": true,
		"false": false, "0": false, "no": false, "": false,
	}
	for in, want := range cases {
		if got := parseBool(in); got != want {
			t.Errorf("parseBool(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestContainerFor_Override(t *testing.T) {
	cfg := Default()
	cfg.Cosmos.Container = "shared"
	if got := cfg.ContainerFor(JobAKS); got != "shared" {
		t.Errorf("ContainerFor = %q; want shared", got)
	}
}

// ── Validate ──────────────────────────────────────────────────────────────────

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Apps.ClusterName = ""
	cfg.Apps.Environment = ""

	errs := Validate(cfg, JobApps, false)
	// cosmos endpoint + cluster name + environment
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors; got %d: %v", len(errs), errs)
	}
}

func TestValidate_AppsWithoutSaveSkipsCosmos(t *testing.T) {
	cfg := Default()
	cfg.Apps.Save = false
	cfg.Apps.ClusterName = "cft-sbox-00-aks"
	cfg.Apps.Environment = "sbox"

	if errs := Validate(cfg, JobApps, false); len(errs) != 0 {
		t.Errorf("expected no errors; got %v", errs)
	}
}

func TestValidate_DryRunSkipsCosmos(t *testing.T) {
	cfg := Default()
	if errs := Validate(cfg, JobAKS, true); len(errs) != 0 {
		t.Errorf("expected no errors; got %v", errs)
	}
	if errs := Validate(cfg, JobAKS, false); len(errs) != 1 {
		t.Errorf("expected cosmos endpoint error; got %v", errs)
	}
}

func TestValidate_PaloAltoEnvironments(t *testing.T) {
	cfg := Default()
	cfg.Cosmos.Endpoint = "https://x"
	cfg.PaloAlto.DesiredVersion = "11.1.0"
	cfg.PaloAlto.Environments = []PanoramaEnvironment{{Name: ""}}

	errs := Validate(cfg, JobPaloAlto, false)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors; got %d: %v", len(errs), errs)
	}
}

func TestValidate_RenovateThresholds(t *testing.T) {
	cfg := Default()
	cfg.Cosmos.Endpoint = "https://x"
	cfg.Renovate.Org = "hmcts"
	cfg.Renovate.ReviewDays = 40

	errs := Validate(cfg, JobRenovate, false)
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "review_days") {
		t.Errorf("expected review_days error; got %v", errs)
	}
}

func TestValidate_UnknownJob(t *testing.T) {
	errs := Validate(Default(), "nope", true)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error; got %v", errs)
	}
}
