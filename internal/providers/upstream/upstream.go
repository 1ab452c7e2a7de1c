// Package upstream reads the latest released versions of third-party
// platform software from their public download pages.
package upstream

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/platops/status-reports/internal/providers/fetch"
)

// ErrNoVersion is returned when a page was fetched but carried no version.
var ErrNoVersion = errors.New("no version found")

var camundaVersionRe = regexp.MustCompile(`version: '(\d+\.\d+\.\d+)'`)

// CamundaLatest returns the first GA version announced on the Camunda
// enterprise download page.
func CamundaLatest(ctx context.Context, g fetch.Getter, pageURL string) (string, error) {
	body, err := g.Get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("camunda download page: %w", err)
	}
	m := camundaVersionRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("camunda download page %s: %w", pageURL, ErrNoVersion)
	}
	return string(m[1]), nil
}

type sitemap struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// DocmosisLatest returns the highest Tornado version linked from the
// Docmosis resources sitemap. Download pages are named like
// ".../software-downloads/tornado/tornado-v4-5-1-the-software...".
func DocmosisLatest(ctx context.Context, g fetch.Getter, sitemapURL string) (string, error) {
	body, err := g.Get(ctx, sitemapURL)
	if err != nil {
		return "", fmt.Errorf("docmosis sitemap: %w", err)
	}
	var sm sitemap
	if err := xml.Unmarshal(body, &sm); err != nil {
		return "", fmt.Errorf("parse docmosis sitemap: %w", err)
	}

	var best *semver.Version
	for _, u := range sm.URLs {
		v, ok := tornadoVersion(strings.TrimSpace(u.Loc))
		if !ok {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	if best == nil {
		return "", fmt.Errorf("docmosis sitemap %s: %w", sitemapURL, ErrNoVersion)
	}
	return best.String(), nil
}

// tornadoVersion extracts 4.5.1 from a tornado download URL.
func tornadoVersion(loc string) (*semver.Version, bool) {
	if !strings.Contains(loc, "software-downloads/tornado") {
		return nil, false
	}
	_, rest, ok := strings.Cut(loc, "tornado-v")
	if !ok {
		return nil, false
	}
	raw, _, _ := strings.Cut(rest, "-the-software")
	raw = strings.ReplaceAll(strings.TrimPrefix(raw, "v"), "-", ".")
	v, err := semver.StrictNewVersion(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}
