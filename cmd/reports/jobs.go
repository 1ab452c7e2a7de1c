package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/jobs"
	"github.com/platops/status-reports/internal/providers/azure"
	"github.com/platops/status-reports/internal/providers/cvelist"
	"github.com/platops/status-reports/internal/providers/docsite"
	"github.com/platops/status-reports/internal/providers/helmrepo"
	"github.com/platops/status-reports/internal/providers/panorama"
)

func jobCmd(opts *rootOptions, use, name string, build builder) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: jobDescription(name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, opts, name, build)
		},
	}
}

func jobDescription(name string) string {
	if j, ok := jobs.Catalog().Get(name); ok {
		return j.Description()
	}
	return name
}

// ── aks ───────────────────────────────────────────────────────────────────────

func newAKSCmd(opts *rootOptions) *cobra.Command {
	return jobCmd(opts, "aks", config.JobAKS, buildAKS)
}

func buildAKS(_ context.Context, rt *runtime) (jobs.Job, error) {
	client, err := rt.azureClient()
	if err != nil {
		return nil, err
	}
	c, err := rt.container()
	if err != nil {
		return nil, err
	}
	return &jobs.AKS{Base: rt.base(), Source: client, Store: c, Filters: rt.cfg.AKS.SubscriptionFilters}, nil
}

// ── cve ───────────────────────────────────────────────────────────────────────

func newCVECmd(opts *rootOptions) *cobra.Command {
	var year string
	cmd := jobCmd(opts, "cve", config.JobCVE, func(ctx context.Context, rt *runtime) (jobs.Job, error) {
		if year != "" {
			rt.cfg.CVE.Year = year
		}
		return buildCVE(ctx, rt)
	})
	cmd.Flags().StringVar(&year, "year", "", "Only load records filed under this year (overrides CVE_YEAR)")
	return cmd
}

func buildCVE(_ context.Context, rt *runtime) (jobs.Job, error) {
	c, err := rt.container()
	if err != nil {
		return nil, err
	}
	cfg := rt.cfg.CVE
	return &jobs.CVE{
		Base:        rt.base(),
		Cloner:      cvelist.NewGitCloner(),
		Store:       c,
		RepoURL:     cfg.RepoURL,
		Year:        cfg.Year,
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
	}, nil
}

// ── docs ──────────────────────────────────────────────────────────────────────

func newDocsCmd(opts *rootOptions) *cobra.Command {
	return jobCmd(opts, "docs", config.JobDocs, buildDocs)
}

func buildDocs(_ context.Context, rt *runtime) (jobs.Job, error) {
	urls, err := docsURLs(rt.cfg.Docs)
	if err != nil {
		return nil, err
	}
	c, err := rt.container()
	if err != nil {
		return nil, err
	}
	return &jobs.Docs{
		Base:     rt.base(),
		Scraper:  docsite.NewScraper(rt.fetcher()),
		Store:    c,
		URLs:     urls,
		WarnDays: rt.cfg.Docs.WarnDays,
	}, nil
}

// docsURLs merges the inline URLs with those of the URL list file. A missing
// file is only an error when no inline URLs are configured.
func docsURLs(cfg config.DocsConfig) ([]string, error) {
	urls := append([]string(nil), cfg.URLs...)
	if cfg.URLsFile == "" {
		return urls, nil
	}
	f, err := os.Open(cfg.URLsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && len(urls) > 0 {
			return urls, nil
		}
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()
	fromFile, err := jobs.ReadURLList(f)
	if err != nil {
		return nil, err
	}
	urls = append(urls, fromFile...)
	if len(urls) == 0 {
		return nil, fmt.Errorf("url list %q is empty", cfg.URLsFile)
	}
	return urls, nil
}

// ── helm ──────────────────────────────────────────────────────────────────────

func newHelmCmd(opts *rootOptions) *cobra.Command {
	return jobCmd(opts, "helm", config.JobHelm, buildHelm)
}

func buildHelm(_ context.Context, rt *runtime) (jobs.Job, error) {
	cluster, err := rt.cluster()
	if err != nil {
		return nil, err
	}
	c, err := rt.container()
	if err != nil {
		return nil, err
	}
	return &jobs.Helm{
		Base:         rt.base(),
		Releases:     cluster,
		Resolver:     helmrepo.NewResolver(rt.fetcher()),
		Store:        c,
		ClusterName:  rt.cfg.Helm.ClusterName,
		Repositories: rt.cfg.Helm.Repositories,
	}, nil
}

// ── usage ─────────────────────────────────────────────────────────────────────

func newUsageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: jobDescription(config.JobUsage),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, opts, config.JobUsage, func(ctx context.Context, rt *runtime) (jobs.Job, error) {
				return buildUsage(ctx, rt, cmd.OutOrStdout())
			})
		},
	}
}

// buildUsage wires the usage job. A dry run writes the rows to out instead
// of blob storage.
func buildUsage(_ context.Context, rt *runtime, out io.Writer) (jobs.Job, error) {
	client, err := rt.azureClient()
	if err != nil {
		return nil, err
	}
	var blobs jobs.Appender = &printAppender{w: out}
	if !rt.dryRun {
		cfg := rt.cfg.Usage
		if blobs, err = azure.NewAppendStore(cfg.StorageURL, cfg.Container, cfg.AccessKey, rt.cred, rt.azureOptions()); err != nil {
			return nil, err
		}
	}
	return &jobs.Usage{Base: rt.base(), Graph: client, Blobs: blobs, Exclude: rt.cfg.Usage.ExcludePrefixes}, nil
}

// printAppender is the dry-run Appender: every append is printed as a new
// blob, header included.
type printAppender struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printAppender) Append(_ context.Context, blobName string, header, data []byte) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintf(p.w, "# %s\n%s%s", blobName, header, data); err != nil {
		return false, err
	}
	return true, nil
}

// ── paloalto ──────────────────────────────────────────────────────────────────

func newPaloAltoCmd(opts *rootOptions) *cobra.Command {
	return jobCmd(opts, "paloalto", config.JobPaloAlto, buildPaloAlto)
}

func buildPaloAlto(_ context.Context, rt *runtime) (jobs.Job, error) {
	client, err := rt.azureClient()
	if err != nil {
		return nil, err
	}
	c, err := rt.container()
	if err != nil {
		return nil, err
	}
	popts := panorama.Options{
		Timeout:            rt.cfg.HTTP.Timeout,
		Attempts:           rt.cfg.HTTP.Attempts,
		InsecureSkipVerify: true,
	}
	cfg := rt.cfg.PaloAlto
	return &jobs.PaloAlto{
		Base:    rt.base(),
		Locator: client,
		Dial: func(host, apiKey string) jobs.PanoramaClient {
			return panorama.New(host, apiKey, popts)
		},
		Store:          c,
		Environments:   cfg.Environments,
		DesiredVersion: cfg.DesiredVersion,
		APIKeySecret:   cfg.APIKeySecret,
	}, nil
}

// ── apps ──────────────────────────────────────────────────────────────────────

func newAppsCmd(opts *rootOptions) *cobra.Command {
	return jobCmd(opts, "apps", config.JobApps, buildApps)
}

func buildApps(_ context.Context, rt *runtime) (jobs.Job, error) {
	cluster, err := rt.cluster()
	if err != nil {
		return nil, err
	}
	gh, err := rt.github()
	if err != nil {
		return nil, err
	}
	cfg := rt.cfg.Apps
	j := &jobs.Apps{
		Base:    rt.base(),
		Cluster: cluster,
		Latest: jobs.VendorVersions{
			Getter:      rt.fetcher(),
			Tags:        gh,
			CamundaURL:  cfg.CamundaURL,
			DocmosisURL: cfg.DocmosisURL,
			FluxRepo:    cfg.FluxRepo,
		},
		ClusterName: cfg.ClusterName,
		Environment: cfg.Environment,
		Save:        cfg.Save,
	}
	if cfg.Save {
		if j.Store, err = rt.container(); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// ── renovate ──────────────────────────────────────────────────────────────────

func newRenovateCmd(opts *rootOptions) *cobra.Command {
	return jobCmd(opts, "renovate", config.JobRenovate, buildRenovate)
}

func buildRenovate(_ context.Context, rt *runtime) (jobs.Job, error) {
	gh, err := rt.github()
	if err != nil {
		return nil, err
	}
	c, err := rt.container()
	if err != nil {
		return nil, err
	}
	cfg := rt.cfg.Renovate
	return &jobs.Renovate{
		Base:       rt.base(),
		GitHub:     gh,
		Store:      c,
		Org:        cfg.Org,
		Author:     cfg.Author,
		ReviewDays: cfg.ReviewDays,
		StaleDays:  cfg.StaleDays,
	}, nil
}
