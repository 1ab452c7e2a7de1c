// Package cvelist reads CVE JSON 5 records from a clone of the CVE
// Project's cvelistV5 repository.
package cvelist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/platops/status-reports/internal/models"
)

// Cloner fetches a git repository into dir.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) error
}

// GitCloner clones with go-git, without a git binary.
type GitCloner struct {
	// Depth limits history; 0 clones everything.
	Depth int
}

// NewGitCloner returns a cloner for shallow single-commit clones.
func NewGitCloner() GitCloner { return GitCloner{Depth: 1} }

// Clone implements Cloner.
func (g GitCloner) Clone(ctx context.Context, url, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        g.Depth,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

// ErrNoCVEDir is returned when the clone has no cves directory.
var ErrNoCVEDir = errors.New("cves directory not found")

// record is the subset of a CVE JSON 5 record that is kept.
type record struct {
	DataType    string `json:"dataType"`
	DataVersion string `json:"dataVersion"`
	CVEMetadata struct {
		CVEID             string `json:"cveId"`
		AssignerShortName string `json:"assignerShortName"`
		DatePublished     string `json:"datePublished"`
		DateReserved      string `json:"dateReserved"`
		DateUpdated       string `json:"dateUpdated"`
	} `json:"cveMetadata"`
	Containers struct {
		CNA struct {
			Descriptions json.RawMessage `json:"descriptions"`
			Affected     json.RawMessage `json:"affected"`
			Metrics      json.RawMessage `json:"metrics"`
		} `json:"cna"`
	} `json:"containers"`
}

// Extract trims a CVE JSON 5 record to the stored fields. The document id
// is the CVE id.
func Extract(data []byte) (models.CVERecord, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return models.CVERecord{}, err
	}
	if r.CVEMetadata.CVEID == "" {
		return models.CVERecord{}, errors.New("record has no cveId")
	}
	return models.CVERecord{
		ID:                r.CVEMetadata.CVEID,
		CVEID:             r.CVEMetadata.CVEID,
		DataType:          r.DataType,
		DataVersion:       r.DataVersion,
		AssignerShortName: r.CVEMetadata.AssignerShortName,
		DatePublished:     r.CVEMetadata.DatePublished,
		DateReserved:      r.CVEMetadata.DateReserved,
		DateUpdated:       r.CVEMetadata.DateUpdated,
		Descriptions:      nullIfEmpty(r.Containers.CNA.Descriptions),
		Affected:          nullIfEmpty(r.Containers.CNA.Affected),
		Metrics:           nullIfEmpty(r.Containers.CNA.Metrics),
	}, nil
}

func nullIfEmpty(m json.RawMessage) json.RawMessage {
	if len(m) == 0 || string(m) == "null" {
		return nil
	}
	return m
}

// Walk calls fn for every cves/**/CVE-*.json record under root. When year
// is set only files below a "/<year>/" directory are read. It stops at the
// first error from fn and returns how many records were passed to fn.
func Walk(ctx context.Context, root, year string, fn func(models.CVERecord) error) (int, error) {
	dir := filepath.Join(root, "cves")
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return 0, fmt.Errorf("%s: %w", dir, ErrNoCVEDir)
	}

	yearSegment := ""
	if year != "" {
		yearSegment = string(filepath.Separator) + year + string(filepath.Separator)
	}

	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasPrefix(name, "CVE-") || filepath.Ext(name) != ".json" {
			return nil
		}
		if yearSegment != "" && !strings.Contains(path, yearSegment) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rec, err := Extract(data)
		if err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
		n++
		return fn(rec)
	})
	return n, err
}
