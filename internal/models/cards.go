// Package models holds the documents persisted to the reports database.
// Field names are the JSON keys the dashboard reads; they must not change.
package models

import (
	"strconv"

	"github.com/platops/status-reports/internal/verdict"
)

// AKSCluster is the status card for one AKS cluster control plane.
// Partitioned by clusterName.
type AKSCluster struct {
	ID                 string        `json:"id"`
	Subscription       string        `json:"subscription"`
	ClusterName        string        `json:"clusterName"`
	CurrentVersion     string        `json:"currentVersion"`
	UpgradeableVersion string        `json:"upgradeableVersion"`
	ColorCode          verdict.Color `json:"colorCode"`
	ResourceType       string        `json:"resourceType"`
	PowerState         string        `json:"powerState"`
	Verdict            string        `json:"verdict"`
}

func (d AKSCluster) DocumentID() string   { return d.ID }
func (d AKSCluster) PartitionKey() string { return d.ClusterName }

// PaloAltoResource is the status card for a Panorama management server or
// a firewall managed by it. Partitioned by resourceType.
type PaloAltoResource struct {
	ID               string        `json:"id"`
	DisplayName      string        `json:"displayName"`
	ReportType       string        `json:"reportType"`
	LastUpdated      string        `json:"lastUpdated"`
	ResourceName     string        `json:"resourceName"`
	LatestVersion    string        `json:"latestVersion"`
	ReleasedOn       string        `json:"releasedOn"`
	InstalledVersion string        `json:"installedVersion"`
	DesiredVersion   string        `json:"desiredVersion"`
	ResourceType     string        `json:"resourceType"`
	ColorCode        verdict.Color `json:"colorCode"`
	Verdict          string        `json:"verdict"`
	Environment      string        `json:"environment"`
	ReleaseNotes     string        `json:"releaseNotes"`
	HotFixes         []string      `json:"hotFixes"`
}

func (d PaloAltoResource) DocumentID() string   { return d.ID }
func (d PaloAltoResource) PartitionKey() string { return d.ResourceType }

// PlatformApp is the status card for an internally hosted third-party app
// (Camunda, Docmosis, Flux) in one cluster. Partitioned by appName.
type PlatformApp struct {
	ID              string        `json:"id"`
	AppName         string        `json:"appName"`
	RecordType      string        `json:"recordType"`
	CurrentVersion  string        `json:"currentVersion"`
	ClusterName     string        `json:"clusterName"`
	Environment     string        `json:"environment"`
	RequiredVersion string        `json:"requiredVersion"`
	ColorCode       verdict.Color `json:"colorCode"`
	Verdict         string        `json:"verdict"`
	Reason          string        `json:"reason"`
}

func (d PlatformApp) DocumentID() string   { return d.ID }
func (d PlatformApp) PartitionKey() string { return d.AppName }

// HelmChart is the status card for one Helm release in a cluster.
// Partitioned by clusterName; naturally keyed by chart, namespace and cluster.
type HelmChart struct {
	ID               string        `json:"id"`
	ChartName        string        `json:"chartName"`
	ReleaseName      string        `json:"releaseName"`
	Namespace        string        `json:"namespace"`
	InstalledVersion string        `json:"installedVersion"`
	LatestVersion    string        `json:"latestVersion"`
	AppVersion       string        `json:"appVersion,omitempty"`
	ClusterName      string        `json:"clusterName"`
	ColorCode        verdict.Color `json:"colorCode"`
	Verdict          string        `json:"verdict"`
	Reason           string        `json:"reason"`
	LastUpdated      string        `json:"lastUpdated"`
}

func (d HelmChart) DocumentID() string   { return d.ID }
func (d HelmChart) PartitionKey() string { return d.ClusterName }

// DocPage is the review-date card for one documentation page.
// Partitioned by site.
type DocPage struct {
	ID            string        `json:"id"`
	Site          string        `json:"site"`
	Title         string        `json:"title"`
	URL           string        `json:"url"`
	Expiry        string        `json:"expiry"`
	Expired       bool          `json:"expired"`
	DaysRemaining int           `json:"daysRemaining"`
	ColorCode     verdict.Color `json:"colorCode"`
	Verdict       string        `json:"verdict"`
	LastUpdated   string        `json:"lastUpdated"`
}

func (d DocPage) DocumentID() string   { return d.ID }
func (d DocPage) PartitionKey() string { return d.Site }

// RenovatePR is one open Renovate dependency pull request.
// Partitioned by repository.
type RenovatePR struct {
	ID         string        `json:"id"`
	Repository string        `json:"repository"`
	Number     int           `json:"number"`
	Title      string        `json:"title"`
	URL        string        `json:"url"`
	Labels     []string      `json:"labels"`
	CreatedAt  string        `json:"createdAt"`
	UpdatedAt  string        `json:"updatedAt"`
	AgeDays    int           `json:"ageDays"`
	ColorCode  verdict.Color `json:"colorCode"`
	Verdict    string        `json:"verdict"`
}

func (d RenovatePR) DocumentID() string   { return d.ID }
func (d RenovatePR) PartitionKey() string { return d.Repository }

// NpmPackages is the resolved package set of one repository's yarn.lock.
// Partitioned by repository.
type NpmPackages struct {
	ID           string            `json:"id"`
	Repository   string            `json:"repository"`
	Packages     map[string]string `json:"packages"`
	PackageCount int               `json:"packageCount"`
	LastUpdated  string            `json:"lastUpdated"`
}

func (d NpmPackages) DocumentID() string   { return d.ID }
func (d NpmPackages) PartitionKey() string { return d.Repository }

// Card is the one-line summary of a document printed by the CLI.
type Card struct {
	Name    string
	Color   verdict.Color
	Verdict string
	Detail  string
}

// Carder is implemented by documents that can be summarised as a Card.
type Carder interface {
	Card() Card
}

func (d AKSCluster) Card() Card {
	return Card{Name: d.ClusterName, Color: d.ColorCode, Verdict: d.Verdict,
		Detail: d.CurrentVersion + " -> " + d.UpgradeableVersion}
}

func (d PaloAltoResource) Card() Card {
	return Card{Name: d.ResourceName, Color: d.ColorCode, Verdict: d.Verdict,
		Detail: d.InstalledVersion + " (desired " + d.DesiredVersion + ", latest " + d.LatestVersion + ")"}
}

func (d PlatformApp) Card() Card {
	return Card{Name: d.AppName, Color: d.ColorCode, Verdict: d.Verdict,
		Detail: d.CurrentVersion + " -> " + d.RequiredVersion}
}

func (d HelmChart) Card() Card {
	return Card{Name: d.Namespace + "/" + d.ReleaseName, Color: d.ColorCode, Verdict: d.Verdict,
		Detail: d.ChartName + " " + d.InstalledVersion + " -> " + d.LatestVersion}
}

func (d DocPage) Card() Card {
	return Card{Name: d.Title, Color: d.ColorCode, Verdict: d.Verdict, Detail: "review by " + d.Expiry}
}

func (d RenovatePR) Card() Card {
	return Card{Name: d.Repository + "#" + strconv.Itoa(d.Number), Color: d.ColorCode, Verdict: d.Verdict, Detail: d.Title}
}
