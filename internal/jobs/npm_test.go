package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/platops/status-reports/internal/lockfile"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/store"
)

const yarnLock = `# yarn lockfile v1

"@types/node@^20":
  version "20.12.7"

express@^4.18.0, express@^4.19.0:
  version "4.19.2"
`

func TestNpm_NpmDocument(t *testing.T) {
	lf, err := lockfile.ParseYarnLock(strings.NewReader(yarnLock))
	if err != nil {
		t.Fatal(err)
	}
	j := &Npm{Base: testBase(t)}

	got := j.NpmDocument("hmcts/cnp-plum", lf)
	want := models.NpmPackages{
		ID:           "id-1",
		Repository:   "hmcts/cnp-plum",
		Packages:     map[string]string{"@types/node": "20.12.7", "express": "4.19.2"},
		PackageCount: 2,
		LastUpdated:  "2024-05-10 10:30:00",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document (-want +got):\n%s", diff)
	}
}

func TestNpm_DecodeNpmDocuments(t *testing.T) {
	j := &Npm{Base: testBase(t)}
	docs, err := j.DecodeNpmDocuments(strings.NewReader(`[
		{"id": "keep", "repository": "hmcts/a", "packages": {"ms": "2.1.3"}},
		{"repository": "hmcts/b", "packages": {}}
	]`))
	if err != nil {
		t.Fatalf("DecodeNpmDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs; want 2", len(docs))
	}
	if docs[0].DocumentID() != "keep" || docs[1].DocumentID() != "id-1" {
		t.Errorf("ids = %q, %q", docs[0].DocumentID(), docs[1].DocumentID())
	}
	if docs[1].PartitionKey() != "hmcts/b" {
		t.Errorf("partition = %q", docs[1].PartitionKey())
	}
}

func TestNpm_DecodeNpmDocuments_Errors(t *testing.T) {
	j := &Npm{Base: testBase(t)}
	if _, err := j.DecodeNpmDocuments(strings.NewReader(`[{"id": "x"}]`)); !errors.Is(err, ErrNoRepository) {
		t.Errorf("err = %v; want ErrNoRepository", err)
	}
	if _, err := j.DecodeNpmDocuments(strings.NewReader(`{"not": "an array"}`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestNpm_RunReplacesEverything(t *testing.T) {
	c := store.NewMemoryContainer("npmpackages")
	if err := c.Seed(models.NpmPackages{ID: "old", Repository: "hmcts/retired"}); err != nil {
		t.Fatal(err)
	}
	j := &Npm{Base: testBase(t), Store: c}
	docs, err := j.DecodeNpmDocuments(strings.NewReader(`[{"repository": "hmcts/a"}, {"repository": "hmcts/b"}]`))
	if err != nil {
		t.Fatal(err)
	}
	j.Documents = docs

	res, err := j.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Written != 2 || res.Deleted != 1 || c.Len() != 2 {
		t.Errorf("written=%d deleted=%d len=%d", res.Written, res.Deleted, c.Len())
	}
}

func TestNpm_ScopeRepositoryKeepsOtherRepositories(t *testing.T) {
	c := store.NewMemoryContainer("npmpackages")
	if err := c.Seed(
		models.NpmPackages{ID: "other", Repository: "hmcts/other-repo"},
		models.NpmPackages{ID: "stale", Repository: "hmcts/cnp-plum"},
	); err != nil {
		t.Fatal(err)
	}
	lf, err := lockfile.ParseYarnLock(strings.NewReader(yarnLock))
	if err != nil {
		t.Fatal(err)
	}
	j := &Npm{Base: testBase(t), Store: c}
	j.Documents = []store.Document{j.NpmDocument("hmcts/cnp-plum", lf)}
	j.ScopeRepository("hmcts/cnp-plum")

	res, err := j.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Written != 1 || res.Deleted != 1 || c.Len() != 2 {
		t.Errorf("written=%d deleted=%d len=%d; want 1, 1 and 2", res.Written, res.Deleted, c.Len())
	}
	repos := map[string]string{}
	for _, d := range stored[models.NpmPackages](t, c) {
		repos[d.Repository] = d.ID
	}
	if repos["hmcts/other-repo"] != "other" || repos["hmcts/cnp-plum"] != "id-1" {
		t.Errorf("stored = %v", repos)
	}
}
