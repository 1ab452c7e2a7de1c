package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader reads a Config.
type Loader interface {
	// Load applies defaults, the YAML file and the environment, in that order.
	Load() (*Config, error)

	// ConfigPath returns the YAML file path, or "" when none is used.
	ConfigPath() string
}

// FileLoader is the default Loader. Getenv is os.Getenv unless replaced
// (tests inject a map lookup).
type FileLoader struct {
	Path   string
	Getenv func(string) string
}

// NewFileLoader returns a loader for the YAML file at path. An empty path
// loads defaults and environment only.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path, Getenv: os.Getenv}
}

// ConfigPath implements Loader.
func (l *FileLoader) ConfigPath() string { return l.Path }

// Load implements Loader.
func (l *FileLoader) Load() (*Config, error) {
	cfg := Default()
	if l.Path != "" {
		data, err := os.ReadFile(l.Path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", l.Path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", l.Path, err)
		}
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is shorthand for NewFileLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewFileLoader(path).Load()
}

// applyEnv overlays the environment variables the CronJob manifests set.
func applyEnv(cfg *Config, getenv func(string) string) error {
	setString(&cfg.Cosmos.Endpoint, getenv("COSMOS_DB_URI"))
	setString(&cfg.Cosmos.Key, getenv("COSMOS_KEY"))
	setString(&cfg.Cosmos.Database, getenv("COSMOS_DB_NAME"))
	setString(&cfg.Cosmos.Container, getenv("COSMOS_DB_CONTAINER"))

	setString(&cfg.Kubernetes.Kubeconfig, getenv("KUBECONFIG"))

	if v := getenv("CLUSTER_NAME"); v != "" {
		cfg.Helm.ClusterName = v
		cfg.Apps.ClusterName = v
	}
	setString(&cfg.Apps.Environment, getenv("ENVIRONMENT"))
	if v := getenv("SAVE_TO_COSMOS"); v != "" {
		cfg.Apps.Save = parseBool(v)
	}

	setString(&cfg.PaloAlto.DesiredVersion, getenv("DESIRED_VERSION"))
	setString(&cfg.PaloAlto.DesiredVersion, getenv("DESIRED_SOFTWARE_VERSION"))

	setString(&cfg.Usage.StorageURL, getenv("AZURE_STORAGE_URL"))
	setString(&cfg.Usage.Container, getenv("AZURE_STORAGE_CONTAINER"))
	setString(&cfg.Usage.AccessKey, getenv("AZURE_STORAGE_ACCESS_KEY"))

	setString(&cfg.GitHub.Token, getenv("GITHUB_TOKEN"))
	setString(&cfg.Renovate.Org, getenv("RENOVATE_ORG"))
	setString(&cfg.Docs.URLsFile, getenv("DOCS_URLS_FILE"))
	setString(&cfg.CVE.Year, getenv("CVE_YEAR"))

	if v := getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTP.Timeout = d
	}
	if v := getenv("CVE_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CVE_BATCH_SIZE: %w", err)
		}
		cfg.CVE.BatchSize = n
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseBool accepts the spellings the CronJob manifests use: true, 1, t
// in any case. Anything else is false.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "t":
		return true
	}
	return false
}
