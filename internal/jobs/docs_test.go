package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/docsite"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

type fakeScraper struct {
	index map[string][]docsite.Link
	pages map[string]docsite.Page
}

func (f fakeScraper) IndexLinks(_ context.Context, indexURL string) ([]docsite.Link, error) {
	links, ok := f.index[indexURL]
	if !ok {
		return nil, errors.New("503 from " + indexURL)
	}
	return links, nil
}

func (f fakeScraper) PageReview(_ context.Context, pageURL string) (docsite.Page, bool, error) {
	p, ok := f.pages[pageURL]
	return p, ok, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDocs_Run(t *testing.T) {
	sc := fakeScraper{
		index: map[string][]docsite.Link{
			"https://runbooks.example.test/": {
				{Title: "Restart", URL: "https://runbooks.example.test/restart.html"},
				{Title: "Rotate", URL: "https://runbooks.example.test/rotate.html"},
				{Title: "No review", URL: "https://runbooks.example.test/none.html"},
			},
		},
		pages: map[string]docsite.Page{
			"https://runbooks.example.test/restart.html": {Title: "Restart a service", Expiry: date(2024, 5, 20)},
			"https://runbooks.example.test/rotate.html":  {Expiry: date(2024, 4, 1), Expired: true},
		},
	}
	c := store.NewMemoryContainer("docsoutdated")
	seed := []store.Document{
		models.DocPage{ID: "stale", Site: "runbooks.example.test", Title: "Gone"},
		models.DocPage{ID: "other", Site: "down.example.test", Title: "Kept"},
	}
	if err := c.Seed(seed...); err != nil {
		t.Fatal(err)
	}

	j := &Docs{
		Base:     testBase(t),
		Scraper:  sc,
		Store:    c,
		URLs:     []string{"https://runbooks.example.test/", "https://down.example.test/"},
		WarnDays: 30,
	}
	res, err := j.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "down.example.test") {
		t.Fatalf("err = %v; want the failing site reported", err)
	}
	if res.Written != 2 || res.Deleted != 1 {
		t.Errorf("written=%d deleted=%d; want 2 and 1", res.Written, res.Deleted)
	}

	pages := stored[models.DocPage](t, c)
	got := map[string]models.DocPage{}
	for _, p := range pages {
		got[p.Title] = p
	}
	if _, ok := got["Kept"]; !ok {
		t.Error("documents of the failing site were removed")
	}
	if _, ok := got["Gone"]; ok {
		t.Error("stale document of the scraped site was kept")
	}

	restart := got["Restart a service"]
	wantRestart := models.DocPage{
		ID: restart.ID, Site: "runbooks.example.test", Title: "Restart a service",
		URL: "https://runbooks.example.test/restart.html", Expiry: "2024-05-20",
		DaysRemaining: 10, ColorCode: verdict.ColorOrange, Verdict: verdict.VerdictReview,
		LastUpdated: "2024-05-10T10:30:00+01:00",
	}
	if diff := cmp.Diff(wantRestart, restart); diff != "" {
		t.Errorf("restart page (-want +got):\n%s", diff)
	}

	rotate, ok := got["Rotate"]
	if !ok {
		t.Fatal("page without its own title should fall back to the link title")
	}
	if !rotate.Expired || rotate.ColorCode != verdict.ColorRed || rotate.DaysRemaining != -39 {
		t.Errorf("rotate = %+v", rotate)
	}
}

func TestDocs_InvalidURL(t *testing.T) {
	j := &Docs{Base: testBase(t), Scraper: fakeScraper{}, Store: store.NewMemoryContainer("docsoutdated"), URLs: []string{"not a url"}}
	if _, err := j.Run(context.Background()); err == nil {
		t.Error("expected invalid url error")
	}
}

func TestReadURLList(t *testing.T) {
	in := `# tech docs
https://hmcts.github.io/cloud-native-platform/

  https://hmcts.github.io/ops-runbooks/
`
	got, err := ReadURLList(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadURLList: %v", err)
	}
	want := []string{
		"https://hmcts.github.io/cloud-native-platform/",
		"https://hmcts.github.io/ops-runbooks/",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("urls (-want +got):\n%s", diff)
	}
}
