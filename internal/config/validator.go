package config

import (
	"fmt"
	"strings"
)

// Job names, shared with the jobs registry and used as default container
// names.
const (
	JobAKS      = "aksversions"
	JobCVE      = "cveinfo"
	JobDocs     = "docsoutdated"
	JobHelm     = "helmcharts"
	JobUsage    = "hourlyusage"
	JobNpm      = "npmpackages"
	JobPaloAlto = "paloalto"
	JobApps     = "platopsapps"
	JobRenovate = "renovate"
)

// Validate checks the fields the named job needs and returns every problem
// found. An empty slice means the job can run. When dryRun is true the
// database settings are not required.
//
// All errors are collected before returning; Validate never stops at the
// first error.
func Validate(cfg *Config, job string, dryRun bool) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s: required for %s", name, job))
		}
	}

	needsCosmos := job != JobUsage
	if job == JobApps && !cfg.Apps.Save {
		needsCosmos = false
	}
	if needsCosmos && !dryRun {
		require("cosmos.endpoint (COSMOS_DB_URI)", cfg.Cosmos.Endpoint)
		require("cosmos.database (COSMOS_DB_NAME)", cfg.Cosmos.Database)
	}

	switch job {
	case JobAKS:
		if len(cfg.AKS.SubscriptionFilters) == 0 {
			errs = append(errs, fmt.Errorf("aks.subscription_filters: at least one term is required"))
		}
	case JobCVE:
		require("cve.repo_url", cfg.CVE.RepoURL)
		if cfg.CVE.BatchSize <= 0 {
			errs = append(errs, fmt.Errorf("cve.batch_size: must be positive, got %d", cfg.CVE.BatchSize))
		}
	case JobDocs:
		if cfg.Docs.URLsFile == "" && len(cfg.Docs.URLs) == 0 {
			errs = append(errs, fmt.Errorf("docs: urls_file (DOCS_URLS_FILE) or urls is required"))
		}
	case JobHelm:
		require("helm.cluster_name (CLUSTER_NAME)", cfg.Helm.ClusterName)
	case JobUsage:
		if !dryRun {
			require("usage.storage_url (AZURE_STORAGE_URL)", cfg.Usage.StorageURL)
			require("usage.container (AZURE_STORAGE_CONTAINER)", cfg.Usage.Container)
		}
	case JobPaloAlto:
		require("paloalto.desired_version (DESIRED_SOFTWARE_VERSION)", cfg.PaloAlto.DesiredVersion)
		if len(cfg.PaloAlto.Environments) == 0 {
			errs = append(errs, fmt.Errorf("paloalto.environments: at least one environment is required"))
		}
		for i, env := range cfg.PaloAlto.Environments {
			if env.Name == "" {
				errs = append(errs, fmt.Errorf("paloalto.environments[%d].name: required", i))
			}
			if env.SubscriptionID == "" && env.IP == "" {
				errs = append(errs, fmt.Errorf("paloalto.environments[%d]: subscription_id or ip is required", i))
			}
		}
	case JobApps:
		require("apps.cluster_name (CLUSTER_NAME)", cfg.Apps.ClusterName)
		require("apps.environment (ENVIRONMENT)", cfg.Apps.Environment)
	case JobRenovate:
		require("renovate.org (RENOVATE_ORG)", cfg.Renovate.Org)
		if cfg.Renovate.ReviewDays > cfg.Renovate.StaleDays {
			errs = append(errs, fmt.Errorf("renovate: review_days (%d) must not exceed stale_days (%d)", cfg.Renovate.ReviewDays, cfg.Renovate.StaleDays))
		}
	case JobNpm:
	default:
		errs = append(errs, fmt.Errorf("unknown job %q", job))
	}

	return errs
}
