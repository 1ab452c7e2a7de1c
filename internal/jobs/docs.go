package jobs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/docsite"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

// pageFetchLimit bounds concurrent page requests per site.
const pageFetchLimit = 8

// DocScraper reads documentation index and page review dates.
type DocScraper interface {
	IndexLinks(ctx context.Context, indexURL string) ([]docsite.Link, error)
	PageReview(ctx context.Context, pageURL string) (docsite.Page, bool, error)
}

// Docs reports documentation pages whose review date has passed or is
// close.
type Docs struct {
	Base
	Scraper  DocScraper
	Store    store.Container
	URLs     []string
	WarnDays int
}

func (j *Docs) Name() string        { return config.JobDocs }
func (j *Docs) Description() string { return "documentation pages past or near their review date" }

// Run implements Job. Each site is replaced independently; a failing site
// is logged and the others still run.
func (j *Docs) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log().With(zap.String("job", j.Name()))
	result := &Result{Job: j.Name()}

	var errs []error
	for _, indexURL := range j.URLs {
		site, docs, err := j.site(ctx, indexURL)
		if err != nil {
			log.Error("site failed", zap.String("index", indexURL), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		res, err := store.ReplaceAll(ctx, j.Store, store.WhereEquals("site", site), "site", docs)
		result.Written += res.Written
		result.Deleted += res.Deleted
		result.Documents = append(result.Documents, documents(docs)...)
		if err != nil {
			errs = append(errs, fmt.Errorf("save pages of %s: %w", site, err))
			continue
		}
		log.Info("site saved", zap.String("site", site), zap.Int("pages", len(docs)))
	}
	result.Duration = time.Since(start)
	return result, errors.Join(errs...)
}

func (j *Docs) site(ctx context.Context, indexURL string) (string, []models.DocPage, error) {
	u, err := url.Parse(strings.TrimSpace(indexURL))
	if err != nil || u.Host == "" {
		return "", nil, fmt.Errorf("invalid index url %q", indexURL)
	}
	site := u.Host

	links, err := j.Scraper.IndexLinks(ctx, indexURL)
	if err != nil {
		return site, nil, err
	}

	pages := make([]*models.DocPage, len(links))
	now := j.now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pageFetchLimit)
	for i, link := range links {
		g.Go(func() error {
			p, ok, err := j.Scraper.PageReview(gctx, link.URL)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			doc := j.card(site, link, p, now)
			pages[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return site, nil, err
	}

	docs := make([]models.DocPage, 0, len(pages))
	for _, p := range pages {
		if p != nil {
			docs = append(docs, *p)
		}
	}
	return site, docs, nil
}

func (j *Docs) card(site string, link docsite.Link, p docsite.Page, now time.Time) models.DocPage {
	title := p.Title
	if title == "" {
		title = link.Title
	}
	today := now.In(London)
	days := verdict.DaysBetween(today, p.Expiry)
	st := verdict.ExpiryVerdict(p.Expiry, today, j.WarnDays)
	return models.DocPage{
		ID:            j.id(),
		Site:          site,
		Title:         title,
		URL:           link.URL,
		Expiry:        p.Expiry.Format("2006-01-02"),
		Expired:       p.Expired || days < 0,
		DaysRemaining: days,
		ColorCode:     st.ColorCode,
		Verdict:       st.Verdict,
		LastUpdated:   stamp(now, time.RFC3339),
	}
}

// ReadURLList reads one URL per line, skipping blanks and # comments.
func ReadURLList(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}
