package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/github"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/verdict"
)

// PRSearcher runs a GitHub issue search for pull requests.
type PRSearcher interface {
	SearchPullRequests(ctx context.Context, query string) ([]github.PullRequest, error)
}

// Renovate reports the open Renovate pull requests of an organisation and
// how long they have waited.
type Renovate struct {
	Base
	GitHub     PRSearcher
	Store      store.Container
	Org        string
	Author     string
	ReviewDays int
	StaleDays  int
}

func (j *Renovate) Name() string        { return config.JobRenovate }
func (j *Renovate) Description() string { return "open Renovate pull requests and their age" }

// Query is the search run against GitHub.
func (j *Renovate) Query() string {
	return fmt.Sprintf("is:pr is:open author:%s org:%s", j.Author, j.Org)
}

// Run implements Job.
func (j *Renovate) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log().With(zap.String("job", j.Name()), zap.String("org", j.Org))

	prs, err := j.GitHub.SearchPullRequests(ctx, j.Query())
	if err != nil {
		return nil, err
	}

	now := j.now()
	docs := make([]models.RenovatePR, 0, len(prs))
	for _, pr := range prs {
		st := verdict.AgeVerdict(pr.CreatedAt, now, j.ReviewDays, j.StaleDays)
		docs = append(docs, models.RenovatePR{
			ID:         prID(pr),
			Repository: pr.Repository,
			Number:     pr.Number,
			Title:      pr.Title,
			URL:        pr.URL,
			Labels:     pr.Labels,
			CreatedAt:  pr.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:  pr.UpdatedAt.UTC().Format(time.RFC3339),
			AgeDays:    verdict.DaysBetween(pr.CreatedAt, now),
			ColorCode:  st.ColorCode,
			Verdict:    st.Verdict,
		})
	}

	res, err := store.ReplaceAll(ctx, j.Store, store.SelectAll, "repository", docs)
	result := &Result{
		Job:       j.Name(),
		Documents: documents(docs),
		Written:   res.Written,
		Deleted:   res.Deleted,
		Duration:  time.Since(start),
	}
	if err != nil {
		return result, fmt.Errorf("save renovate pull requests: %w", err)
	}
	log.Info("renovate pull requests saved", zap.Int("documents", res.Written), zap.Int("deleted", res.Deleted))
	return result, nil
}

// prID is "<owner>_<repo>-<number>"; Cosmos DB ids cannot contain "/".
func prID(pr github.PullRequest) string {
	return strings.ReplaceAll(pr.Repository, "/", "_") + "-" + strconv.Itoa(pr.Number)
}
