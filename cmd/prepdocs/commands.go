package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	dombatch "github.com/kailas-cloud/docassist/internal/domain/batch"
	dombudget "github.com/kailas-cloud/docassist/internal/domain/budget"
	domdoc "github.com/kailas-cloud/docassist/internal/domain/document"
	domingest "github.com/kailas-cloud/docassist/internal/domain/ingestion"
	domperm "github.com/kailas-cloud/docassist/internal/domain/permission"
	documentuc "github.com/kailas-cloud/docassist/internal/usecase/document"
	"github.com/kailas-cloud/docassist/internal/version"
)

// documentService manages the corpus.
type documentService interface {
	Upload(ctx context.Context, files []documentuc.File, opts documentuc.UploadOptions) []dombatch.Result
	Remove(ctx context.Context, name string) (int, error)
	RemoveAll(ctx context.Context) ([]dombatch.Result, error)
}

// ingestionRunner runs ingestion in the foreground.
type ingestionRunner interface {
	Run(ctx context.Context) error
	Status() domingest.Snapshot
}

// permissionStore writes permissions.
type permissionStore interface {
	Put(ctx context.Context, p domperm.Permission) error
}

// budgetReporter reports provider token budgets.
type budgetReporter interface {
	Report() []dombudget.Status
}

// services are the dependencies of every command.
type services struct {
	documents   documentService
	ingestion   ingestionRunner
	permissions permissionStore
	budget      budgetReporter
	close       func()
}

// servicesFactory builds services for an environment.
type servicesFactory func(ctx context.Context, env string) (*services, error)

// errBatchFailed is returned when at least one item of a batch failed.
var errBatchFailed = errors.New("one or more documents failed")

type cli struct {
	env     string
	factory servicesFactory
	svc     *services
}

// newRootCmd builds the command tree. The returned cleanup releases the
// services built for the executed command, if any.
func newRootCmd(defaultEnv string, factory servicesFactory) (*cobra.Command, func()) {
	c := &cli{factory: factory}

	root := &cobra.Command{
		Use:           "prepdocs",
		Short:         "Manage the document corpus of docassist",
		Long:          `Upload and remove source documents, run ingestion and maintain permissions.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.factory(cmd.Context(), c.env)
			if err != nil {
				return err
			}
			c.svc = svc
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.env, "env", defaultEnv, "Configuration environment (config/{env}.yaml)")

	root.AddCommand(
		c.uploadCmd(),
		c.removeCmd(),
		c.removeAllCmd(),
		c.ingestCmd(),
		c.permissionCmd(),
		c.usageCmd(),
	)
	return root, c.close
}

func (c *cli) close() {
	if c.svc != nil && c.svc.close != nil {
		c.svc.close()
		c.svc = nil
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	var (
		permissions []string
		overwrite   bool
	)
	cmd := &cobra.Command{
		Use:   "upload [files...]",
		Short: "Upload documents",
		Long:  `Stores each file under its base name with the given permissions. Existing documents are skipped unless --overwrite is set.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]documentuc.File, 0, len(args))
			for _, path := range args {
				content, err := os.ReadFile(filepath.Clean(path))
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, documentuc.File{Name: filepath.Base(path), Content: content})
			}

			var perms []string
			for _, p := range permissions {
				perms = append(perms, domdoc.SplitPermissions(p)...)
			}

			results := c.svc.documents.Upload(cmd.Context(), files, documentuc.UploadOptions{
				Permissions: domdoc.NormalizePermissions(perms),
				Overwrite:   overwrite,
			})
			return printResults(cmd, results)
		},
	}
	cmd.Flags().StringSliceVarP(&permissions, "permissions", "p", nil, "Permission names granted on the documents")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace documents that already exist")
	return cmd
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [name]",
		Short: "Remove a document and its index records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.svc.documents.Remove(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("remove %s: %w", args[0], err)
			}
			cmd.Printf("Removed %s (%d index records)\n", args[0], n)
			return nil
		},
	}
}

func (c *cli) removeAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-all",
		Short: "Remove every document and its index records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := c.svc.documents.RemoveAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("remove all: %w", err)
			}
			if len(results) == 0 {
				cmd.Println("No documents found")
				return nil
			}
			return printResults(cmd, results)
		},
	}
}

func (c *cli) ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the index from every stored document",
		Long:  `Recreates the chunk index and indexes every page of every document. Interrupt to cancel.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runErr := c.svc.ingestion.Run(cmd.Context())
			snap := c.svc.ingestion.Status()

			cmd.Printf("Run %s: %s\n", snap.RunID, snap.Status)
			cmd.Printf("  Pages:          %d/%d\n", snap.PagesProcessed, snap.TotalPages)
			cmd.Printf("  Chunks:         %d\n", snap.ChunksProcessed)
			cmd.Printf("  Chunk failures: %d\n", snap.ChunkFailures)
			if snap.LastError != "" {
				cmd.Printf("  Last error:     %s\n", snap.LastError)
			}
			if !snap.StartedAt.IsZero() && !snap.FinishedAt.IsZero() {
				cmd.Printf("  Elapsed:        %s\n", snap.FinishedAt.Sub(snap.StartedAt).Round(time.Millisecond))
			}

			if runErr != nil {
				return runErr
			}
			if snap.Status == domingest.Failed {
				return errors.New("ingestion finished with failures")
			}
			return nil
		},
	}
}

func (c *cli) permissionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permission",
		Short: "Manage permissions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "put [id] [name] [right]",
		Short: "Create or replace a permission",
		Long:  `Right is one of read, write, admin (default read).`,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var right domperm.Right
			if len(args) == 3 {
				right = domperm.Right(strings.ToLower(args[2]))
			}
			p, err := domperm.New(args[0], args[1], right)
			if err != nil {
				return err
			}
			if err := c.svc.permissions.Put(cmd.Context(), p); err != nil {
				return fmt.Errorf("put permission %s: %w", p.ID(), err)
			}
			cmd.Printf("Permission %s: %s (%s)\n", p.ID(), p.Name(), p.Right())
			return nil
		},
	})
	return cmd
}

func (c *cli) usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show provider token budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses := c.svc.budget.Report()
			if len(statuses) == 0 {
				cmd.Println("No token budgets configured")
				return nil
			}
			for _, s := range statuses {
				limit := "unlimited"
				if s.Limit() > 0 {
					limit = fmt.Sprintf("%d", s.Limit())
				}
				flag := ""
				if s.Exhausted() {
					flag = "  EXHAUSTED"
				}
				cmd.Printf("%-12s %-8s %d / %s (resets %s)%s\n",
					s.Provider(), s.Period(), s.Used(), limit, s.ResetsAt().Format(time.DateOnly), flag)
			}
			return nil
		},
	}
}

func printResults(cmd *cobra.Command, results []dombatch.Result) error {
	for _, r := range results {
		switch r.Status() {
		case dombatch.StatusOK:
			cmd.Printf("  ok       %s\n", r.Name())
		case dombatch.StatusSkipped:
			cmd.Printf("  skipped  %s (%s)\n", r.Name(), r.Reason())
		case dombatch.StatusError:
			cmd.Printf("  error    %s: %v\n", r.Name(), r.Err())
		}
	}
	ok, skipped, failed := dombatch.Counts(results)
	cmd.Printf("%d succeeded, %d skipped, %d failed\n", ok, skipped, failed)
	if failed > 0 {
		return errBatchFailed
	}
	return nil
}
