// Package main creates and restores offline backups of the taskboard database.
//
// It opens the same store the server uses, so stop the server first when the
// badger driver is configured.
//
// Usage:
//
//	go run ./cmd/backup create
//	go run ./cmd/backup list
//	go run ./cmd/backup validate backups/backup-2024-01-15-093000.taskboard.zip
//	go run ./cmd/backup restore --strategy newest backup-2024-01-15-093000
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-server/internal/backup"
	"github.com/taskboard/taskboard-server/internal/cli"
	"github.com/taskboard/taskboard-server/internal/config"
	"github.com/taskboard/taskboard-server/internal/di/providers"
	"github.com/taskboard/taskboard-server/internal/logger"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// storeFlags mirror the server flags that locate the database.
type storeFlags struct {
	metadataPath string
	driver       string
	path         string
	backupDir    string
}

func (f storeFlags) args() []string {
	var args []string
	if f.metadataPath != "" {
		args = append(args, "--metadata-path", f.metadataPath)
	}
	if f.driver != "" {
		args = append(args, "--store", f.driver)
	}
	if f.path != "" {
		args = append(args, "--store-path", f.path)
	}
	return args
}

// env is what every subcommand needs: the backup service and a printer.
type env struct {
	injector *do.RootScope
	svc      *backup.Service
	search   *providers.SearchIndexHandle
	log      *logger.Logger
}

func (e *env) close() {
	_ = e.injector.Shutdown()
}

// open wires the store and search index the way the server does,
// without the HTTP layer.
func (f storeFlags) open(stderr io.Writer) (*env, error) {
	cfg, err := config.Load(f.args())
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Writer:      stderr,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	st, err := do.Invoke[*providers.StoreHandle](injector)
	if err != nil {
		_ = injector.Shutdown()
		return nil, err
	}
	idx, err := do.Invoke[*providers.SearchIndexHandle](injector)
	if err != nil {
		_ = injector.Shutdown()
		return nil, err
	}

	dir := f.backupDir
	if dir == "" {
		dir = filepath.Join(cfg.Metadata.BasePath, "backups")
	}
	return &env{
		injector: injector,
		svc:      backup.NewService(st, dir, cfg.Server.Name, version, log.Logger),
		search:   idx,
		log:      log,
	}, nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var flags storeFlags
	p := cli.NewPrinter(stdout, stderr)

	root := &cobra.Command{
		Use:           "backup",
		Short:         "Create and restore taskboard backups",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.metadataPath, "metadata-path", "", "Base path for data storage")
	pf.StringVar(&flags.driver, "store", "", "Store driver: badger or sqlite")
	pf.StringVar(&flags.path, "store-path", "", "Database path")
	pf.StringVar(&flags.backupDir, "backup-dir", "", "Backup directory (default: {metadata}/backups)")

	withEnv := func(run func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, err := flags.open(stderr)
			if err != nil {
				return p.Error("Could not open the database", err.Error(),
					"Stop the server if it is running",
					"Check --metadata-path and --store-path")
			}
			defer e.close()
			return run(cmd, e, args)
		}
	}

	root.AddCommand(
		createCommand(p, withEnv),
		listCommand(p, withEnv),
		validateCommand(p, withEnv),
		restoreCommand(p, withEnv),
		deleteCommand(p, withEnv),
	)
	return root
}

type envRunner func(run func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error

func createCommand(p *cli.Printer, withEnv envRunner) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a backup of all users and boards",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			result, err := e.svc.Create(cmd.Context(), backup.BackupOptions{OutputPath: output})
			if err != nil {
				return p.Error("Backup failed", err.Error())
			}
			p.Success("Backup written to %s", result.Path)
			p.Muted("%d users, %d boards, %d lists, %d cards (%s)",
				result.Counts.Users, result.Counts.Boards, result.Counts.Lists, result.Counts.Cards,
				formatSize(result.Size))
			p.Muted("sha256 %s", result.Checksum)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the archive here instead of the backup directory")
	return cmd
}

func listCommand(p *cli.Printer, withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups in the backup directory",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			backups, err := e.svc.List(cmd.Context())
			if err != nil {
				return p.Error("Could not list backups", err.Error())
			}
			if len(backups) == 0 {
				p.Info("No backups yet. Run 'backup create' to make one.")
				return nil
			}
			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				rows = append(rows, []string{b.ID, b.CreatedAt.Format(time.DateTime), formatSize(b.Size)})
			}
			return p.Table([]string{"ID", "Created", "Size"}, rows)
		}),
	}
}

func validateCommand(p *cli.Printer, withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <id|path>",
		Short: "Check a backup without restoring it",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			path := resolve(e.svc, args[0])
			v, err := e.svc.Validate(cmd.Context(), path)
			if err != nil {
				return err
			}
			for _, w := range v.Warnings {
				p.Warning("%s", w)
			}
			if !v.Valid {
				return p.Error("Backup is not valid", path, v.Errors...)
			}
			p.Success("Backup is valid (format %s, %d users, %d boards)",
				v.Manifest.Version, v.ExpectedCounts.Users, v.ExpectedCounts.Boards)
			return nil
		}),
	}
}

func restoreCommand(p *cli.Printer, withEnv envRunner) *cobra.Command {
	var (
		strategy string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "restore <id|path>",
		Short: "Load users and boards from a backup",
		Long: `Load users and boards from a backup.

Users that already exist are kept. Boards that already exist are resolved
with --strategy: keep_local (default), keep_backup or newest.`,
		Args: cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			ctx := cmd.Context()
			result, err := e.svc.Restore(ctx, resolve(e.svc, args[0]), backup.RestoreOptions{
				MergeStrategy: backup.MergeStrategy(strategy),
				DryRun:        dryRun,
			})
			if err != nil {
				return p.Error("Restore failed", err.Error())
			}

			if dryRun {
				p.Info("Dry run, nothing was written")
			} else if e.search.SearchIndex != nil {
				if err := reindex(ctx, e); err != nil {
					p.Warning("Search index not rebuilt: %v", err)
				}
			}

			_ = p.Table([]string{"Entity", "Imported", "Skipped"}, [][]string{
				{"users", strconv.Itoa(result.Imported["users"]), strconv.Itoa(result.Skipped["users"])},
				{"boards", strconv.Itoa(result.Imported["boards"]), strconv.Itoa(result.Skipped["boards"])},
			})
			for _, re := range result.Errors {
				p.Warning("%s %s: %s", re.EntityType, re.EntityID, re.Error)
			}
			p.Success("Restore finished in %s", result.Duration.Round(time.Millisecond))
			return nil
		}),
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(backup.MergeKeepLocal), "Conflict strategy for existing boards")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and count without writing")
	return cmd
}

func deleteCommand(p *cli.Printer, withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a backup from the backup directory",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			if err := e.svc.Delete(cmd.Context(), args[0]); err != nil {
				return p.Error("Could not delete backup", err.Error(), "Run 'backup list' to see backup ids")
			}
			p.Success("Deleted %s", args[0])
			return nil
		}),
	}
}

// reindex rebuilds the card index from every stored board.
func reindex(ctx context.Context, e *env) error {
	st := do.MustInvoke[*providers.StoreHandle](e.injector)
	boards, err := st.AllBoards(ctx)
	if err != nil {
		return err
	}
	return e.search.Rebuild(ctx, boards)
}

// resolve accepts a backup id or a path to an archive.
func resolve(svc *backup.Service, arg string) string {
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	return svc.GetPath(arg)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
