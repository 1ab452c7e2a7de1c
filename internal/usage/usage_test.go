package usage

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/platops/status-reports/internal/models"
)

func TestAggregate(t *testing.T) {
	vms := []VM{
		{"DCD-CFT-Sandbox", "Standard_D4s_v3"},
		{"DCD-CFT-Sandbox", "Standard_D4s_v3"},
		{"DCD-CFT-Sandbox", "Standard_B2ms"},
		{"MoJ-Prod", "Standard_D4s_v3"},
	}
	scaleSets := []ScaleSet{
		{"DCD-CFT-Sandbox", "Standard_D4s_v3", 3},
		{"DTS-SHAREDSERVICES-PROD", "Standard_E8s_v3", 5},
		{"DTS-SHAREDSERVICES-PROD", "Standard_E8s_v3", 2},
		{"moj-dev", "Standard_B2ms", 9},
	}

	got := Aggregate(vms, scaleSets, []string{"moj"})
	want := []models.UsageRow{
		{SubscriptionName: "DCD-CFT-Sandbox", SKU: "Standard_B2ms", Total: 1},
		{SubscriptionName: "DCD-CFT-Sandbox", SKU: "Standard_D4s_v3", Total: 5},
		{SubscriptionName: "DTS-SHAREDSERVICES-PROD", SKU: "Standard_E8s_v3", Total: 7},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestStampAndCSV(t *testing.T) {
	rows := []models.UsageRow{
		{SubscriptionName: "sub-a", SKU: "Standard_B2ms", Total: 2},
		{SubscriptionName: "sub, with comma", SKU: "Standard_D2s_v3", Total: 1},
	}
	Stamp(rows, time.Date(2024, 11, 5, 9, 7, 0, 0, time.UTC))

	body, err := CSV(rows)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := "sub-a,Standard_B2ms,2,2024-11-05,0907\n" +
		"\"sub, with comma\",Standard_D2s_v3,1,2024-11-05,0907\n"
	if string(body) != want {
		t.Errorf("CSV =\n%s\nwant\n%s", body, want)
	}
}

func TestCSV_Empty(t *testing.T) {
	body, err := CSV(nil)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("expected empty output; got %q", body)
	}
}

func TestBlobName(t *testing.T) {
	got := BlobName(time.Date(2023, 11, 30, 23, 59, 0, 0, time.UTC))
	if got != "2023-11-running.csv" {
		t.Errorf("BlobName = %q", got)
	}
}

func TestQueries_Compacted(t *testing.T) {
	for name, q := range map[string]string{"vm": VMQuery(), "vmss": ScaleSetQuery()} {
		if strings.Contains(q, "\n") || strings.Contains(q, "  ") {
			t.Errorf("%s query not compacted: %q", name, q)
		}
		if !strings.Contains(q, "subscriptionName") {
			t.Errorf("%s query does not project subscriptionName", name)
		}
	}
}

func TestCompact_SingleLineBreaks(t *testing.T) {
	got := compact("resources\n| where type =~ 'x'\n  | project name\n")
	if want := "resources | where type =~ 'x' | project name"; got != want {
		t.Errorf("compact = %q; want %q", got, want)
	}
}
