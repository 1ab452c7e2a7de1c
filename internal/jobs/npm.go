package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/lockfile"
	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/store"
)

const npmPartitionField = "repository"

// ErrNoRepository is returned for an npm document without a repository.
var ErrNoRepository = errors.New("document has no repository")

// Npm replaces the stored package sets with Documents.
type Npm struct {
	Base
	Store     store.Container
	Documents []store.Document

	// Scope selects the stored documents Documents replace. The zero
	// Query replaces every document.
	Scope store.Query
}

// ScopeRepository limits the replacement to the package set of one
// repository.
func (j *Npm) ScopeRepository(repository string) {
	j.Scope = store.WhereEquals(npmPartitionField, repository)
}

func (j *Npm) Name() string        { return config.JobNpm }
func (j *Npm) Description() string { return "resolved npm packages of repository yarn.lock files" }

// Run implements Job. The stored package sets in Scope are removed first.
func (j *Npm) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.log().With(zap.String("job", j.Name()))

	scope := j.Scope
	if scope.SQL == "" {
		scope = store.SelectAll
	}
	res, err := store.ReplaceAll(ctx, j.Store, scope, npmPartitionField, j.Documents)
	result := &Result{
		Job:       j.Name(),
		Documents: j.Documents,
		Written:   res.Written,
		Deleted:   res.Deleted,
		Duration:  time.Since(start),
	}
	if err != nil {
		return result, fmt.Errorf("save npm documents: %w", err)
	}
	log.Info("npm documents saved", zap.Int("documents", res.Written), zap.Int("deleted", res.Deleted))
	return result, nil
}

// NpmDocument builds the package set document for one repository from a
// yarn.lock.
func (j *Npm) NpmDocument(repository string, lf *lockfile.Lockfile) models.NpmPackages {
	pkgs := lockfile.Simplify(lf)
	return models.NpmPackages{
		ID:           j.id(),
		Repository:   repository,
		Packages:     pkgs,
		PackageCount: len(pkgs),
		LastUpdated:  stamp(j.now(), "2006-01-02 15:04:05"),
	}
}

// DecodeNpmDocuments reads a JSON array of documents. Each must carry a
// repository; a missing id is assigned.
func (j *Npm) DecodeNpmDocuments(r io.Reader) ([]store.Document, error) {
	var raw []map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode npm documents: %w", err)
	}
	docs := make([]store.Document, 0, len(raw))
	for i, fields := range raw {
		if repo, _ := fields[npmPartitionField].(string); repo == "" {
			return nil, fmt.Errorf("document %d: %w", i, ErrNoRepository)
		}
		if id, _ := fields["id"].(string); id == "" {
			fields["id"] = j.id()
		}
		docs = append(docs, store.FieldDocument{Fields: fields, PartitionField: npmPartitionField})
	}
	return docs, nil
}
