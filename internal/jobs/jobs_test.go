package jobs

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

// runAt is 10:30 in London during BST.
var runAt = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func testBase(t *testing.T) Base {
	t.Helper()
	var n atomic.Int64
	return Base{
		Log:   zaptest.NewLogger(t),
		Now:   func() time.Time { return runAt },
		NewID: func() string { return fmt.Sprintf("id-%d", n.Add(1)) },
	}
}

// stored decodes every item of c as D.
func stored[D any](t *testing.T, c *store.MemoryContainer) []D {
	t.Helper()
	var out []D
	for _, raw := range c.Items() {
		var d D
		if err := json.Unmarshal(raw, &d); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		out = append(out, d)
	}
	return out
}

// ── registry ─────────────────────────────────────────────────────────────────

func TestCatalog_NamesMatchConfig(t *testing.T) {
	want := []string{
		config.JobAKS, config.JobCVE, config.JobDocs, config.JobHelm, config.JobUsage,
		config.JobNpm, config.JobPaloAlto, config.JobApps, config.JobRenovate,
	}
	all := Catalog().All()
	if len(all) != len(want) {
		t.Fatalf("got %d jobs; want %d", len(all), len(want))
	}
	for i, j := range all {
		if j.Name() != want[i] {
			t.Errorf("job %d = %q; want %q", i, j.Name(), want[i])
		}
		if j.Description() == "" {
			t.Errorf("%s has no description", j.Name())
		}
	}
}

func TestRegistry_Get(t *testing.T) {
	r := Catalog()
	j, ok := r.Get(config.JobHelm)
	if !ok || j.Name() != config.JobHelm {
		t.Fatalf("Get(%q) = %v, %v", config.JobHelm, j, ok)
	}
	if _, ok := r.Get("nope"); ok {
		t.Error("Get(nope) should fail")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate name")
		}
	}()
	r := NewRegistry()
	r.Register(&AKS{})
	r.Register(&AKS{})
}

// ── result ───────────────────────────────────────────────────────────────────

func TestResult_Cards(t *testing.T) {
	r := &Result{Documents: []store.Document{
		models.AKSCluster{ClusterName: "cft-sbox-00-aks", ColorCode: verdict.ColorRed, Verdict: "Update", CurrentVersion: "1.29.4", UpgradeableVersion: "1.30.1"},
		models.CVERecord{ID: "CVE-2024-0001"},
		models.RenovatePR{Repository: "hmcts/cnp-plum", Number: 42, ColorCode: verdict.ColorGreen, Verdict: verdict.VerdictOK, Title: "Update express"},
	}}
	cards := r.Cards()
	if len(cards) != 2 {
		t.Fatalf("got %d cards; want 2 (CVE records have none)", len(cards))
	}
	if cards[0].Name != "cft-sbox-00-aks" || cards[0].Detail != "1.29.4 -> 1.30.1" {
		t.Errorf("aks card = %+v", cards[0])
	}
	if cards[1].Name != "hmcts/cnp-plum#42" {
		t.Errorf("renovate card = %+v", cards[1])
	}
}

func TestStamp_UsesLondonTime(t *testing.T) {
	if got := stamp(runAt, "15:04"); got != "10:30" {
		t.Errorf("stamp = %q; want 10:30 (BST)", got)
	}
	winter := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	if got := stamp(winter, "15:04"); got != "09:30" {
		t.Errorf("stamp = %q; want 09:30 (GMT)", got)
	}
}
