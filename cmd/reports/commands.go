package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/jobs"
	"github.com/platops/status-reports/internal/logging"
	"github.com/platops/status-reports/internal/output"
	"github.com/platops/status-reports/internal/providers/azure"
	"github.com/platops/status-reports/internal/providers/fetch"
	"github.com/platops/status-reports/internal/providers/github"
	"github.com/platops/status-reports/internal/providers/kubernetes"
	"github.com/platops/status-reports/internal/store"
	"github.com/platops/status-reports/internal/version"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	dryRun     bool
	output     string
	colored    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "reports",
		Short:         "Platform status report jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file layered over the defaults; environment variables still win")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "json", `Log encoding: "json" or "console"`)
	pf.BoolVar(&opts.dryRun, "dry-run", false, "Compute and print documents without writing them")
	pf.StringVar(&opts.output, "output", "table", `Output format for printed documents: "table" or "json"`)
	pf.BoolVar(&opts.colored, "color", false, "Colour the table output with ANSI codes")

	root.AddCommand(
		newAKSCmd(opts),
		newCVECmd(opts),
		newDocsCmd(opts),
		newHelmCmd(opts),
		newUsageCmd(opts),
		newNpmCmd(opts),
		newPaloAltoCmd(opts),
		newAppsCmd(opts),
		newRenovateCmd(opts),
		newListCmd(opts),
		newDoctorCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the report jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCatalog(cmd.OutOrStdout(), jobs.Catalog(), opts.output)
		},
	}
}

type catalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func printCatalog(w io.Writer, r *jobs.Registry, format string) error {
	var entries []catalogEntry
	for _, j := range r.All() {
		entries = append(entries, catalogEntry{Name: j.Name(), Description: j.Description()})
	}
	if format == "json" {
		return output.RenderJSON(w, entries)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-14s  %s\n", e.Name, e.Description)
	}
	return nil
}

// ── runtime ───────────────────────────────────────────────────────────────────

// runtime is what a job command needs once flags and config are resolved.
// Clients are built lazily so a job only touches the systems it reads.
type runtime struct {
	job    string
	cfg    *config.Config
	log    *zap.Logger
	dryRun bool

	cred azcore.TokenCredential
}

// newRuntime loads and validates the configuration for job and builds the
// logger.
func (o *rootOptions) newRuntime(job string) (*runtime, error) {
	log, err := logging.New(logging.Options{Level: o.logLevel, Format: o.logFormat})
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg, job, o.dryRun); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration for %s:\n%w", job, errors.Join(errs...))
	}
	return &runtime{job: job, cfg: cfg, log: log, dryRun: o.dryRun}, nil
}

func (rt *runtime) base() jobs.Base {
	return jobs.Base{Log: rt.log}
}

func (rt *runtime) credential() (azcore.TokenCredential, error) {
	if rt.cred == nil {
		cred, err := azure.NewCredential()
		if err != nil {
			return nil, err
		}
		rt.cred = cred
	}
	return rt.cred, nil
}

func (rt *runtime) azureOptions() azure.Options {
	return azure.Options{MaxRetries: rt.cfg.Azure.MaxRetries, RetryDelay: rt.cfg.Azure.RetryDelay}
}

func (rt *runtime) azureClient() (*azure.Client, error) {
	cred, err := rt.credential()
	if err != nil {
		return nil, err
	}
	return azure.NewClient(cred, rt.azureOptions()), nil
}

// container returns the job's Cosmos container, or an in-memory one for a
// dry run.
func (rt *runtime) container() (store.Container, error) {
	name := rt.cfg.ContainerFor(rt.job)
	if rt.dryRun {
		return store.NewMemoryContainer(name), nil
	}
	c := rt.cfg.Cosmos
	var cred azcore.TokenCredential
	if c.Key == "" {
		var err error
		if cred, err = rt.credential(); err != nil {
			return nil, err
		}
	}
	return store.NewCosmosContainer(store.CosmosOptions{
		Endpoint:   c.Endpoint,
		Key:        c.Key,
		Database:   c.Database,
		Container:  name,
		MaxRetries: c.MaxRetries,
		RetryDelay: c.RetryDelay,
	}, cred)
}

func (rt *runtime) fetcher() *fetch.Client {
	return fetch.New(rt.cfg.HTTP.Timeout, rt.cfg.HTTP.Attempts)
}

func (rt *runtime) github() (*github.Client, error) {
	return github.New(rt.cfg.GitHub.Token, rt.cfg.GitHub.BaseURL,
		&http.Client{Timeout: rt.cfg.HTTP.Timeout}, rt.cfg.HTTP.Attempts)
}

func (rt *runtime) cluster() (kubernetes.ClusterReader, error) {
	p := kubernetes.NewDefaultKubeClientProvider(rt.cfg.Kubernetes.Kubeconfig)
	cs, info, err := p.ClientsetForContext(rt.cfg.Kubernetes.Context)
	if err != nil {
		return kubernetes.ClusterReader{}, err
	}
	rt.log.Debug("kubernetes client ready",
		zap.String("context", info.ContextName),
		zap.String("server", info.Server),
		zap.Bool("inCluster", info.InCluster))
	return kubernetes.ClusterReader{Clientset: cs}, nil
}

// ── running ───────────────────────────────────────────────────────────────────

// builder wires a job from the runtime.
type builder func(ctx context.Context, rt *runtime) (jobs.Job, error)

// runJob resolves the runtime, builds and runs the job. A dry run prints the
// documents the job would have written.
func runJob(cmd *cobra.Command, opts *rootOptions, name string, build builder) error {
	rt, err := opts.newRuntime(name)
	if err != nil {
		return err
	}
	defer rt.log.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	job, err := build(ctx, rt)
	if err != nil {
		return fmt.Errorf("set up %s: %w", name, err)
	}

	res, runErr := job.Run(ctx)
	if res != nil {
		rt.log.Info("job finished",
			zap.String("job", res.Job),
			zap.Int("written", res.Written),
			zap.Int("skipped", res.Skipped),
			zap.Int("deleted", res.Deleted),
			zap.Duration("duration", res.Duration),
			zap.Bool("dryRun", rt.dryRun))
		if rt.dryRun {
			if err := printResult(cmd.OutOrStdout(), res, opts.output, opts.colored); err != nil {
				return err
			}
		}
	}
	if runErr != nil {
		return fmt.Errorf("%s: %w", name, runErr)
	}
	return nil
}

// printResult renders res as a card table with a colour summary, or as the
// raw documents in JSON.
func printResult(w io.Writer, res *jobs.Result, format string, colored bool) error {
	if format == "json" {
		docs := res.Documents
		if docs == nil {
			docs = []store.Document{}
		}
		return output.RenderJSON(w, docs)
	}
	cards := res.Cards()
	output.RenderCards(w, cards, colored)
	if len(cards) > 0 {
		fmt.Fprintln(w)
		output.RenderSummary(w, res.Job, cards)
	}
	return nil
}
