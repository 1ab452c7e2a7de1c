// Package config holds the runtime configuration shared by every report job.
//
// Values come from three layers applied in order: built-in defaults, an
// optional YAML file (--config) and environment variables. Environment
// variables win so that CronJob manifests stay the source of truth in
// cluster; the YAML file is meant for local runs and must never be
// committed with real secrets.
package config

import "time"

// Config is the top-level application configuration.
type Config struct {
	Cosmos     CosmosConfig     `yaml:"cosmos"     json:"cosmos"`
	Azure      AzureConfig      `yaml:"azure"      json:"azure"`
	Kubernetes KubernetesConfig `yaml:"kubernetes" json:"kubernetes"`
	HTTP       HTTPConfig       `yaml:"http"       json:"http"`
	GitHub     GitHubConfig     `yaml:"github"     json:"github"`

	AKS      AKSConfig      `yaml:"aks"      json:"aks"`
	CVE      CVEConfig      `yaml:"cve"      json:"cve"`
	Docs     DocsConfig     `yaml:"docs"     json:"docs"`
	Helm     HelmConfig     `yaml:"helm"     json:"helm"`
	Usage    UsageConfig    `yaml:"usage"    json:"usage"`
	PaloAlto PaloAltoConfig `yaml:"paloalto" json:"paloalto"`
	Apps     AppsConfig     `yaml:"apps"     json:"apps"`
	Renovate RenovateConfig `yaml:"renovate" json:"renovate"`
}

// CosmosConfig locates the reports database.
type CosmosConfig struct {
	// Endpoint is the account URI (COSMOS_DB_URI).
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Key is the account key (COSMOS_KEY). When empty, Azure AD is used.
	Key string `yaml:"key" json:"-"`

	// Database defaults to "reports" (COSMOS_DB_NAME).
	Database string `yaml:"database" json:"database"`

	// Container overrides the per-job default container (COSMOS_DB_CONTAINER).
	// Empty means "use the job name".
	Container string `yaml:"container" json:"container"`

	MaxRetries int32         `yaml:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// AzureConfig tunes Azure Resource Manager calls.
type AzureConfig struct {
	// MaxRetries and RetryDelay feed the SDK retry policy for ARM, Key Vault
	// and Blob clients.
	MaxRetries int32         `yaml:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// KubernetesConfig selects the cluster used by the in-cluster jobs.
type KubernetesConfig struct {
	// Kubeconfig is an explicit kubeconfig path. Empty uses $KUBECONFIG,
	// then ~/.kube/config, then the in-cluster service account.
	Kubeconfig string `yaml:"kubeconfig" json:"kubeconfig"`

	// Context is the kubeconfig context. Empty uses the current context.
	Context string `yaml:"context" json:"context"`
}

// HTTPConfig tunes the plain HTTP fetchers (Panorama, vendor pages, Helm
// repository indexes).
type HTTPConfig struct {
	Timeout  time.Duration `yaml:"timeout"  json:"timeout"`
	Attempts int           `yaml:"attempts" json:"attempts"`
}

// GitHubConfig authenticates GitHub API calls.
type GitHubConfig struct {
	// Token is optional for public endpoints but raises rate limits
	// (GITHUB_TOKEN).
	Token string `yaml:"token" json:"-"`

	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// AKSConfig configures the AKS version checker.
type AKSConfig struct {
	// SubscriptionFilters selects subscriptions whose display name contains
	// any of these terms.
	SubscriptionFilters []string `yaml:"subscription_filters" json:"subscription_filters"`
}

// CVEConfig configures the CVE ingester.
type CVEConfig struct {
	RepoURL string `yaml:"repo_url" json:"repo_url"`

	// Year restricts ingestion to records under /<year>/. Empty ingests all.
	Year string `yaml:"year" json:"year"`

	BatchSize   int   `yaml:"batch_size"  json:"batch_size"`
	Concurrency int64 `yaml:"concurrency" json:"concurrency"`
}

// DocsConfig configures the documentation expiry scraper.
type DocsConfig struct {
	// URLsFile lists documentation index pages, one per line (DOCS_URLS_FILE).
	URLsFile string `yaml:"urls_file" json:"urls_file"`

	// URLs are index pages given inline; merged with URLsFile.
	URLs []string `yaml:"urls" json:"urls"`

	// WarnDays turns a page orange this many days before it expires.
	WarnDays int `yaml:"warn_days" json:"warn_days"`
}

// HelmConfig configures the Helm chart tracker.
type HelmConfig struct {
	// ClusterName labels the documents (CLUSTER_NAME).
	ClusterName string `yaml:"cluster_name" json:"cluster_name"`

	// Repositories maps chart names to Helm repository base URLs.
	Repositories map[string]string `yaml:"repositories" json:"repositories"`
}

// UsageConfig configures the hourly usage exporter.
type UsageConfig struct {
	StorageURL string `yaml:"storage_url" json:"storage_url"` // AZURE_STORAGE_URL
	Container  string `yaml:"container"   json:"container"`   // AZURE_STORAGE_CONTAINER
	AccessKey  string `yaml:"access_key"  json:"-"`           // AZURE_STORAGE_ACCESS_KEY

	// ExcludePrefixes drops subscriptions whose name starts with any of
	// these (case-insensitive).
	ExcludePrefixes []string `yaml:"exclude_prefixes" json:"exclude_prefixes"`
}

// PaloAltoConfig configures the Panorama version checker.
type PaloAltoConfig struct {
	// DesiredVersion is the PAN-OS version the platform team targets
	// (DESIRED_SOFTWARE_VERSION).
	DesiredVersion string `yaml:"desired_version" json:"desired_version"`

	// APIKeySecret is the Key Vault secret holding the XML API key.
	APIKeySecret string `yaml:"api_key_secret" json:"api_key_secret"`

	Environments []PanoramaEnvironment `yaml:"environments" json:"environments"`
}

// PanoramaEnvironment is one Panorama deployment.
type PanoramaEnvironment struct {
	Name           string `yaml:"name"            json:"name"`
	SubscriptionID string `yaml:"subscription_id" json:"subscription_id"`

	// IP skips the VM lookup when set.
	IP string `yaml:"ip" json:"ip"`
}

// AppsConfig configures the platform app version checker.
type AppsConfig struct {
	ClusterName string `yaml:"cluster_name" json:"cluster_name"` // CLUSTER_NAME
	Environment string `yaml:"environment"  json:"environment"`  // ENVIRONMENT

	// Save writes to Cosmos DB; false only logs the documents (SAVE_TO_COSMOS).
	Save bool `yaml:"save" json:"save"`

	CamundaURL  string `yaml:"camunda_url"  json:"camunda_url"`
	DocmosisURL string `yaml:"docmosis_url" json:"docmosis_url"`
	FluxRepo    string `yaml:"flux_repo"    json:"flux_repo"`
}

// RenovateConfig configures the Renovate PR importer.
type RenovateConfig struct {
	Org        string `yaml:"org"         json:"org"` // RENOVATE_ORG
	Author     string `yaml:"author"      json:"author"`
	ReviewDays int    `yaml:"review_days" json:"review_days"`
	StaleDays  int    `yaml:"stale_days"  json:"stale_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cosmos: CosmosConfig{
			Database:   "reports",
			MaxRetries: 5,
			RetryDelay: 2 * time.Second,
		},
		Azure: AzureConfig{
			MaxRetries: 4,
			RetryDelay: time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:  30 * time.Second,
			Attempts: 4,
		},
		AKS: AKSConfig{
			SubscriptionFilters: []string{"CFT", "SHAREDSERVICES"},
		},
		CVE: CVEConfig{
			RepoURL:     "https://github.com/CVEProject/cvelistV5.git",
			BatchSize:   500,
			Concurrency: 16,
		},
		Docs: DocsConfig{
			URLsFile: "documentation-urls",
			WarnDays: 30,
		},
		Usage: UsageConfig{
			ExcludePrefixes: []string{"moj"},
		},
		PaloAlto: PaloAltoConfig{
			APIKeySecret: "api-admin-key",
			Environments: []PanoramaEnvironment{
				{Name: "sbox", SubscriptionID: "ea3a8c1e-af9d-4108-bc86-a7e2d267f49c"},
				{Name: "prod", SubscriptionID: "0978315c-75fe-4ada-9d11-1eb5e0e0b214"},
			},
		},
		Apps: AppsConfig{
			Save:        true,
			CamundaURL:  "https://docs.camunda.org/enterprise/download/",
			DocmosisURL: "https://resources.docmosis.com/index.php?option=com_jmap&view=sitemap&format=xml",
			FluxRepo:    "fluxcd/flux2",
		},
		Renovate: RenovateConfig{
			Author:     "app/renovate",
			ReviewDays: 7,
			StaleDays:  30,
		},
	}
}

// ContainerFor returns the Cosmos container a job writes to: the explicit
// override when set, otherwise the job name.
func (c *Config) ContainerFor(job string) string {
	if c.Cosmos.Container != "" {
		return c.Cosmos.Container
	}
	return job
}
