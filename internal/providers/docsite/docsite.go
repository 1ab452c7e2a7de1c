// Package docsite scrapes tech-docs style documentation sites for page
// review (expiry) dates.
package docsite

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/platops/status-reports/internal/providers/fetch"
)

// Link is one entry of a site's table of contents.
type Link struct {
	Title string
	URL   string
}

// Page is the review information of one documentation page.
type Page struct {
	Title   string
	URL     string
	Expiry  time.Time
	Expired bool
}

// Scraper reads documentation sites through a fetch.Getter.
type Scraper struct {
	getter fetch.Getter
}

// NewScraper returns a Scraper using getter.
func NewScraper(getter fetch.Getter) *Scraper {
	return &Scraper{getter: getter}
}

// IndexLinks returns the absolute URLs linked from the table of contents of
// the index page. Duplicate targets are returned once.
func (s *Scraper) IndexLinks(ctx context.Context, indexURL string) ([]Link, error) {
	base, err := url.Parse(strings.TrimSpace(indexURL))
	if err != nil {
		return nil, fmt.Errorf("parse index url %q: %w", indexURL, err)
	}
	doc, err := s.document(ctx, base.String())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []Link
	doc.Find(`nav#toc[aria-labelledby="toc-heading"] a[href]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		target := abs.String()
		if seen[target] {
			return
		}
		seen[target] = true
		links = append(links, Link{Title: strings.TrimSpace(a.Text()), URL: target})
	})
	return links, nil
}

// PageReview fetches a page and reads its expiry block. ok is false when
// the page has no review date.
func (s *Scraper) PageReview(ctx context.Context, pageURL string) (Page, bool, error) {
	doc, err := s.document(ctx, pageURL)
	if err != nil {
		return Page{}, false, err
	}

	p := Page{URL: pageURL, Title: strings.TrimSpace(doc.Find("h1").First().Text())}
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	block := doc.Find("div.page-expiry--not-expired").First()
	if block.Length() == 0 {
		block = doc.Find("div.page-expiry--expired").First()
		p.Expired = block.Length() > 0
	}
	if block.Length() == 0 {
		return p, false, nil
	}

	expiry, ok := LastDate(block.Text())
	if !ok {
		return p, false, nil
	}
	p.Expiry = expiry
	return p, true, nil
}

func (s *Scraper) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.getter.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html of %s: %w", pageURL, err)
	}
	return doc, nil
}

var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), "2006-01-02"},
	{regexp.MustCompile(`\b\d{1,2} (?:January|February|March|April|May|June|July|August|September|October|November|December) \d{4}\b`), "2 January 2006"},
	{regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4}\b`), "January 2, 2006"},
	{regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`), "02/01/2006"},
}

// LastDate returns the date that appears last in text, in any of the
// formats documentation sites use for review dates.
func LastDate(text string) (time.Time, bool) {
	var (
		last    time.Time
		lastPos = -1
	)
	for _, p := range datePatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if loc[0] < lastPos {
				continue
			}
			t, err := time.Parse(p.layout, text[loc[0]:loc[1]])
			if err != nil {
				continue
			}
			last, lastPos = t, loc[0]
		}
	}
	return last, lastPos >= 0
}
