// Package helmrepo resolves the newest published version of a chart from a
// Helm repository index.yaml.
package helmrepo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/platops/status-reports/internal/providers/fetch"
)

// ChartVersion is one entry of an index.
type ChartVersion struct {
	Version    string `yaml:"version"`
	AppVersion string `yaml:"appVersion"`
	Deprecated bool   `yaml:"deprecated"`
}

// Index is the subset of index.yaml that is read.
type Index struct {
	APIVersion string                    `yaml:"apiVersion"`
	Entries    map[string][]ChartVersion `yaml:"entries"`
}

// ParseIndex decodes an index.yaml body.
func ParseIndex(data []byte) (*Index, error) {
	var idx Index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse helm index: %w", err)
	}
	return &idx, nil
}

// Latest returns the highest non-prerelease version of chart. ok is false
// when the chart is absent or has no parseable release.
func (idx *Index) Latest(chart string) (ChartVersion, bool) {
	var (
		best    ChartVersion
		bestVer *semver.Version
	)
	for _, cv := range idx.Entries[chart] {
		v, err := semver.NewVersion(cv.Version)
		if err != nil || v.Prerelease() != "" {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = cv, v
		}
	}
	return best, bestVer != nil
}

// Resolver fetches and caches repository indexes. Safe for concurrent use.
type Resolver struct {
	getter fetch.Getter

	mu    sync.Mutex
	cache map[string]*Index
}

// NewResolver returns a Resolver that downloads indexes with getter.
func NewResolver(getter fetch.Getter) *Resolver {
	return &Resolver{getter: getter, cache: make(map[string]*Index)}
}

// LatestVersion returns the newest release of chart in the repository at
// repoURL (the base URL, without index.yaml).
func (r *Resolver) LatestVersion(ctx context.Context, repoURL, chart string) (ChartVersion, bool, error) {
	idx, err := r.index(ctx, repoURL)
	if err != nil {
		return ChartVersion{}, false, err
	}
	cv, ok := idx.Latest(chart)
	return cv, ok, nil
}

func (r *Resolver) index(ctx context.Context, repoURL string) (*Index, error) {
	key := strings.TrimSuffix(repoURL, "/")

	r.mu.Lock()
	idx, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return idx, nil
	}

	body, err := r.getter.Get(ctx, key+"/index.yaml")
	if err != nil {
		return nil, fmt.Errorf("fetch helm index for %s: %w", key, err)
	}
	idx, err = ParseIndex(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	r.mu.Lock()
	r.cache[key] = idx
	r.mu.Unlock()
	return idx, nil
}
