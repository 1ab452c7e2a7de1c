package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/jobs"
	"github.com/platops/status-reports/internal/lockfile"
	"github.com/platops/status-reports/internal/logging"
	"github.com/platops/status-reports/internal/output"
	"github.com/platops/status-reports/internal/store"
)

// Exit codes of npm convert.
const (
	exitUsage       = 2
	exitMissingFile = 3
)

func newNpmCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "npm",
		Short: "yarn.lock conversion and npm package documents",
	}
	cmd.AddCommand(newNpmConvertCmd(opts), newNpmSaveCmd(opts))
	return cmd
}

func newNpmConvertCmd(opts *rootOptions) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a yarn.lock (v1) to package name -> version JSON",
		Long: "Reads a yarn.lock from file, or stdin when no file is given, and prints\n" +
			"the resolved version of every package as JSON with sorted keys.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return &exitError{code: exitUsage, err: errors.New("usage: reports npm convert [--debug] [file]")}
			}
			level := opts.logLevel
			if debug {
				level = "debug"
			}
			log, err := logging.New(logging.Options{Level: level, Format: opts.logFormat})
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			in := cmd.InOrStdin()
			name := "stdin"
			if len(args) == 1 {
				name = args[0]
				f, err := os.Open(name)
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return &exitError{code: exitMissingFile, err: fmt.Errorf("input file %q not found", name)}
					}
					return err
				}
				defer f.Close()
				in = f
			}
			return convertLockfile(in, cmd.OutOrStdout(), log.With(zap.String("input", name)))
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Log parsing details to stderr")
	return cmd
}

// convertLockfile writes the simplified package map of the yarn.lock read
// from r to w. An empty lockfile prints {}.
func convertLockfile(r io.Reader, w io.Writer, log *zap.Logger) error {
	lf, err := lockfile.ParseYarnLock(r)
	if err != nil {
		return err
	}
	pkgs := lockfile.Simplify(lf)
	log.Debug("lockfile parsed", zap.Int("descriptors", len(lf.Keys)), zap.Int("packages", len(pkgs)))
	return output.RenderJSON(w, pkgs)
}

func newNpmSaveCmd(opts *rootOptions) *cobra.Command {
	var lockPath, repository string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Replace the stored npm package documents",
		Long: "Reads a JSON array of package documents from stdin, or builds a single\n" +
			"document from --lockfile and --repository, and replaces every stored one.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (lockPath == "") != (repository == "") {
				return errors.New("--lockfile and --repository must be used together")
			}
			return runJob(cmd, opts, config.JobNpm, func(_ context.Context, rt *runtime) (jobs.Job, error) {
				c, err := rt.container()
				if err != nil {
					return nil, err
				}
				j := &jobs.Npm{Base: rt.base(), Store: c}
				if err := loadNpmDocuments(j, cmd.InOrStdin(), lockPath, repository); err != nil {
					return nil, err
				}
				return j, nil
			})
		},
	}
	cmd.Flags().StringVar(&lockPath, "lockfile", "", "yarn.lock to build the document from")
	cmd.Flags().StringVar(&repository, "repository", "", "Repository the lockfile belongs to, e.g. hmcts/cnp-plum")
	return cmd
}

// loadNpmDocuments sets the documents to save. With lockPath it builds the
// document of one repository and replaces only that repository's package
// set; otherwise the JSON array on stdin replaces every stored one.
func loadNpmDocuments(j *jobs.Npm, stdin io.Reader, lockPath, repository string) error {
	if lockPath == "" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return errors.New("no documents on stdin")
		}
		j.Documents, err = j.DecodeNpmDocuments(bytes.NewReader(body))
		return err
	}
	f, err := os.Open(lockPath)
	if err != nil {
		return fmt.Errorf("open lockfile: %w", err)
	}
	defer f.Close()
	lf, err := lockfile.ParseYarnLock(f)
	if err != nil {
		return err
	}
	j.Documents = []store.Document{j.NpmDocument(repository, lf)}
	j.ScopeRepository(repository)
	return nil
}
