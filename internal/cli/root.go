package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/internal/memo/txn"
	"memoflow/internal/platform/config"
)

// Rollbacks is the operator view of the rollback executor.
type Rollbacks interface {
	ListRollbackLogs(ctx context.Context, filter store.RollbackLogFilter) ([]*models.RollbackLogEntry, error)
	GetRollbackLog(ctx context.Context, id string) (*models.RollbackLogEntry, error)
	ManualRollback(ctx context.Context, logID, actor, reason string) txn.Result[*models.RollbackLogEntry]
}

// Opener connects to the document store selected by cfg. The returned func releases it.
type Opener func(ctx context.Context, cfg config.Server) (Rollbacks, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	Storage  string
	MongoURI string

	Config config.Server
	Open   Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the memoctl root command. cfg supplies the defaults the
// persistent flags override.
func NewRootCommand(cfg config.Server, open Opener) *cobra.Command {
	opts := &RootOptions{Config: cfg, Open: open}

	cmd := &cobra.Command{
		Use:   "memoctl",
		Short: "Operate the memo workflow store",
		Long:  "Inspect rollback logs, compensate committed operations and mint bearer tokens.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Storage != config.StorageMemory && opts.Storage != config.StorageMongo {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid storage %q", opts.Storage))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Storage, "storage", cfg.Storage, "document store (memory|mongo)")
	cmd.PersistentFlags().StringVar(&opts.MongoURI, "mongo-uri", cfg.Mongo.URI, "mongo connection string")

	cmd.AddCommand(NewLogsCommand(opts))
	cmd.AddCommand(NewRollbackCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewHashSecretCommand(opts))

	return cmd
}

// connect opens the store with the flag overrides applied.
func (o *RootOptions) connect(ctx context.Context) (Rollbacks, func(), error) {
	if o.Open == nil {
		return nil, nil, NewExitError(ExitCommandError, "no store configured")
	}
	cfg := o.Config
	cfg.Storage = o.Storage
	cfg.Mongo.URI = o.MongoURI
	r, closeFn, err := o.Open(ctx, cfg)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open store", err)
	}
	if closeFn == nil {
		closeFn = func() {}
	}
	return r, closeFn, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
