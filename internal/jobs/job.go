// Package jobs implements the report jobs. Each job reads one external
// system, classifies what it finds and writes status documents through the
// store package.
package jobs

import (
	"context"
	"time"

	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/store"
)

// Job is one report. Implementations hold their dependencies; Name and
// Description must not touch them so an unwired job can be listed.
type Job interface {
	// Name returns the stable job name, also the default container name.
	Name() string

	// Description returns a one-line summary for help and list output.
	Description() string

	// Run collects, classifies and persists. A non-nil Result may accompany
	// an error when the job partly succeeded.
	Run(ctx context.Context) (*Result, error)
}

// Result summarises one run.
type Result struct {
	Job       string
	Documents []store.Document
	Written   int
	Skipped   int
	Deleted   int
	Duration  time.Duration
}

// Cards returns the printable summary of every document that has one.
func (r *Result) Cards() []models.Card {
	var cards []models.Card
	for _, d := range r.Documents {
		if c, ok := d.(models.Carder); ok {
			cards = append(cards, c.Card())
		}
	}
	return cards
}

func documents[D store.Document](docs []D) []store.Document {
	out := make([]store.Document, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}
