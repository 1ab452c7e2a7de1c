package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/providers/cvelist"
	"github.com/platops/status-reports/internal/store"
)

// CVE loads CVE records from a fresh clone of the CVE list repository.
type CVE struct {
	Base
	Cloner      cvelist.Cloner
	Store       store.Container
	RepoURL     string
	Year        string
	BatchSize   int
	Concurrency int64

	// TempDir is where the clone is made; empty uses os.TempDir.
	TempDir string
}

func (j *CVE) Name() string        { return config.JobCVE }
func (j *CVE) Description() string { return "CVE records from the CVE Project list" }

// Run implements Job. Records are upserted in batches; a failed item does
// not stop the run but makes it return an error. The clone is always removed.
func (j *CVE) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log().With(zap.String("job", j.Name()))

	dir, err := os.MkdirTemp(j.TempDir, "cvelist-")
	if err != nil {
		return nil, fmt.Errorf("create clone dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("remove clone", zap.String("dir", dir), zap.Error(err))
		}
	}()

	repo := filepath.Join(dir, "cvelist")
	log.Info("cloning", zap.String("url", j.RepoURL))
	if err := j.Cloner.Clone(ctx, j.RepoURL, repo); err != nil {
		return nil, err
	}

	size := j.BatchSize
	if size <= 0 {
		size = 500
	}
	result := &Result{Job: j.Name()}
	var errs []error
	batch := make([]models.CVERecord, 0, size)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		n, err := store.BatchWrite(ctx, j.Store, batch, store.BatchOptions{Concurrency: j.Concurrency, Upsert: true})
		result.Written += n
		if err != nil {
			errs = append(errs, err)
			log.Warn("batch had failures", zap.Int("written", n), zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	read, err := cvelist.Walk(ctx, repo, j.Year, func(r models.CVERecord) error {
		batch = append(batch, r)
		if len(batch) == size {
			flush()
		}
		return nil
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("read cve records: %w", err))
	}
	flush()

	result.Duration = time.Since(start)
	log.Info("cve records saved",
		zap.String("read", humanize.Comma(int64(read))),
		zap.String("written", humanize.Comma(int64(result.Written))),
		zap.String("elapsed", result.Duration.Round(time.Second).String()))
	return result, errors.Join(errs...)
}
