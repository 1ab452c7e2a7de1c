package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/providers/azure"
	kube "github.com/platops/status-reports/internal/providers/kubernetes"
	"github.com/platops/status-reports/internal/store"
)

// DoctorResult is the structured output of reports doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable table
// (default).
type DoctorResult struct {
	Job string `json:"job,omitempty"`

	Config struct {
		Loaded bool     `json:"loaded"`
		Path   string   `json:"path,omitempty"`
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors,omitempty"`
	} `json:"config"`

	Azure struct {
		Credential bool   `json:"credential_ok"`
		ExpiresOn  string `json:"expires_on,omitempty"`
		Error      string `json:"error,omitempty"`
	} `json:"azure"`

	Kubernetes struct {
		Required     bool   `json:"required"`
		KubeconfigOK bool   `json:"kubeconfig_ok"`
		Context      string `json:"context,omitempty"`
		InCluster    bool   `json:"in_cluster"`
		APIReachable bool   `json:"api_reachable"`
		Error        string `json:"error,omitempty"`
	} `json:"kubernetes"`

	Cosmos struct {
		Configured bool   `json:"configured"`
		Container  string `json:"container,omitempty"`
		Reachable  bool   `json:"reachable"`
		Error      string `json:"error,omitempty"`
	} `json:"cosmos"`

	OverallHealthy bool `json:"overall_healthy"`
}

// pinger proves a Cosmos container is reachable.
type pinger interface {
	Ping(ctx context.Context) error
}

// doctorDeps are the seams runDoctor reaches the outside world through.
type doctorDeps struct {
	loadConfig   func() (*config.Config, error)
	credential   func() (azcore.TokenCredential, error)
	checkToken   func(ctx context.Context, cred azcore.TokenCredential) (time.Time, error)
	kubeProvider func(cfg *config.Config) kube.KubeClientProvider
	cosmos       func(cfg *config.Config, container string, cred azcore.TokenCredential) (pinger, error)
}

func defaultDoctorDeps(configPath string) doctorDeps {
	return doctorDeps{
		loadConfig: func() (*config.Config, error) { return config.Load(configPath) },
		credential: azure.NewCredential,
		checkToken: azure.CheckToken,
		kubeProvider: func(cfg *config.Config) kube.KubeClientProvider {
			return kube.NewDefaultKubeClientProvider(cfg.Kubernetes.Kubeconfig)
		},
		cosmos: func(cfg *config.Config, container string, cred azcore.TokenCredential) (pinger, error) {
			c := cfg.Cosmos
			return store.NewCosmosContainer(store.CosmosOptions{
				Endpoint:   c.Endpoint,
				Key:        c.Key,
				Database:   c.Database,
				Container:  container,
				MaxRetries: 1,
				RetryDelay: time.Second,
			}, cred)
		},
	}
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var format, job string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			deps := defaultDoctorDeps(opts.configPath)
			result, err := runDoctor(ctx, deps, cmd.OutOrStdout(), format, job, opts.configPath)
			if err != nil {
				// Rendering failure.
				return err
			}
			if !result.OverallHealthy {
				// The report already explains the failure.
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	cmd.Flags().StringVar(&job, "job", "", "Check the configuration and dependencies of this job only")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures; callers inspect
// result.OverallHealthy for the verdict.
func runDoctor(ctx context.Context, deps doctorDeps, w io.Writer, format, job, configPath string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, deps, job, configPath)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering.
func collectDoctorResult(ctx context.Context, deps doctorDeps, job, configPath string) DoctorResult {
	var result DoctorResult
	result.Job = job
	result.Config.Path = configPath

	// Config: load -> validate for the selected job.
	cfg, err := deps.loadConfig()
	if err != nil {
		result.Config.Errors = []string{err.Error()}
		return result
	}
	result.Config.Loaded = true
	if job != "" {
		for _, e := range config.Validate(cfg, job, false) {
			result.Config.Errors = append(result.Config.Errors, e.Error())
		}
	}
	result.Config.Valid = len(result.Config.Errors) == 0

	// Azure: credential chain -> management token.
	cred, err := deps.credential()
	if err != nil {
		result.Azure.Error = err.Error()
	} else if exp, err := deps.checkToken(ctx, cred); err != nil {
		result.Azure.Error = err.Error()
	} else {
		result.Azure.Credential = true
		result.Azure.ExpiresOn = exp.UTC().Format(time.RFC3339)
	}

	// Kubernetes: kubeconfig / in-cluster -> API reachability probe.
	result.Kubernetes.Required = job == config.JobHelm || job == config.JobApps
	clientset, info, err := deps.kubeProvider(cfg).ClientsetForContext(cfg.Kubernetes.Context)
	if err != nil {
		result.Kubernetes.Error = err.Error()
	} else {
		result.Kubernetes.KubeconfigOK = true
		result.Kubernetes.Context = info.ContextName
		result.Kubernetes.InCluster = info.InCluster
		if _, err := clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
			result.Kubernetes.Error = err.Error()
		} else {
			result.Kubernetes.APIReachable = true
		}
	}

	// Cosmos: only when an endpoint and a container are known.
	container := cfg.Cosmos.Container
	if job != "" {
		container = cfg.ContainerFor(job)
	}
	result.Cosmos.Container = container
	result.Cosmos.Configured = cfg.Cosmos.Endpoint != "" && container != "" && needsCosmos(cfg, job)
	if result.Cosmos.Configured {
		switch {
		case cfg.Cosmos.Key == "" && !result.Azure.Credential:
			result.Cosmos.Error = "no account key and no Azure credential"
		default:
			p, err := deps.cosmos(cfg, container, cred)
			if err == nil {
				err = p.Ping(ctx)
			}
			if err != nil {
				result.Cosmos.Error = err.Error()
			} else {
				result.Cosmos.Reachable = true
			}
		}
	}

	result.OverallHealthy = result.Config.Valid &&
		result.Azure.Credential &&
		(!result.Kubernetes.Required || result.Kubernetes.APIReachable) &&
		(!result.Cosmos.Configured || result.Cosmos.Reachable)

	return result
}

// needsCosmos reports whether job writes to Cosmos DB. An empty job means
// any job might.
func needsCosmos(cfg *config.Config, job string) bool {
	switch job {
	case config.JobUsage:
		return false
	case config.JobApps:
		return cfg.Apps.Save
	default:
		return true
	}
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	if result.Job != "" {
		fmt.Fprintf(w, "Environment Diagnostics (job: %s)\n", result.Job)
	} else {
		fmt.Fprintln(w, "Environment Diagnostics")
	}

	fmt.Fprintln(w, "\nConfig:")
	switch {
	case !result.Config.Loaded:
		doctorPrint(w, "Loaded", "FAIL", firstOr(result.Config.Errors, ""))
		return
	case result.Config.Path != "":
		doctorPrint(w, "Loaded", "OK", result.Config.Path)
	default:
		doctorPrint(w, "Loaded", "OK", "defaults and environment")
	}
	if result.Config.Valid {
		doctorPrint(w, "Valid", "OK", "")
	} else {
		for _, e := range result.Config.Errors {
			doctorPrint(w, "Valid", "FAIL", e)
		}
	}

	fmt.Fprintln(w, "\nAzure:")
	if result.Azure.Credential {
		doctorPrint(w, "Credential", "OK", "token expires "+result.Azure.ExpiresOn)
	} else {
		doctorPrint(w, "Credential", "FAIL", result.Azure.Error)
	}

	fmt.Fprintln(w, "\nKubernetes:")
	fail := "FAIL"
	if !result.Kubernetes.Required {
		fail = "UNAVAILABLE"
	}
	if !result.Kubernetes.KubeconfigOK {
		doctorPrint(w, "Kubeconfig", fail, result.Kubernetes.Error)
		doctorPrint(w, "API Reachable", fail, "skipped")
	} else {
		ctxName := result.Kubernetes.Context
		if result.Kubernetes.InCluster {
			ctxName = "in-cluster"
		}
		doctorPrint(w, "Kubeconfig", "OK", ctxName)
		if result.Kubernetes.APIReachable {
			doctorPrint(w, "API Reachable", "OK", "")
		} else {
			doctorPrint(w, "API Reachable", fail, result.Kubernetes.Error)
		}
	}

	fmt.Fprintln(w, "\nCosmos DB:")
	switch {
	case !result.Cosmos.Configured:
		doctorPrint(w, "Container", "Not checked", "")
	case result.Cosmos.Reachable:
		doctorPrint(w, "Container", "OK", result.Cosmos.Container)
	default:
		doctorPrint(w, "Container", "FAIL", result.Cosmos.Error)
	}
}

func firstOr(s []string, def string) string {
	if len(s) == 0 {
		return def
	}
	return s[0]
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
