package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
)

// LogsListOptions holds flags for the logs list command.
type LogsListOptions struct {
	*RootOptions
	MemoID        string
	Status        string
	OperationType string
	Limit         int
}

// NewLogsCommand groups the rollback log inspection commands.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect rollback logs",
	}
	cmd.AddCommand(newLogsListCommand(rootOpts))
	cmd.AddCommand(newLogsShowCommand(rootOpts))
	return cmd
}

func newLogsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rollback logs, newest first",
		Example: `  memoctl logs list --memo 6f1c...
  memoctl logs list --type memo_approval --status completed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogsList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MemoID, "memo", "", "only logs for this memo")
	cmd.Flags().StringVar(&opts.Status, "status", "", "completed|rolled_back")
	cmd.Flags().StringVar(&opts.OperationType, "type", "", "operation type, e.g. memo_approval")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries (0 for the default page)")

	return cmd
}

func runLogsList(opts *LogsListOptions, cmd *cobra.Command) error {
	status := models.LogStatus(opts.Status)
	if status != "" && status != models.LogStatusCompleted && status != models.LogStatusRolledBack {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", opts.Status))
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "limit must not be negative")
	}

	ctx := cmd.Context()
	rollbacks, closeFn, err := opts.connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := rollbacks.ListRollbackLogs(ctx, store.RollbackLogFilter{
		MemoID:        opts.MemoID,
		OperationType: models.OperationType(opts.OperationType),
		Status:        status,
		Limit:         opts.Limit,
	})
	if err != nil {
		return domainFailure("list rollback logs", err)
	}

	out := opts.formatter(cmd)
	if out.JSON() {
		if entries == nil {
			entries = []*models.RollbackLogEntry{}
		}
		return out.Success(entries)
	}
	return out.LogTable(entries)
}

func newLogsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <log-id>",
		Short:         "Show one rollback log",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rollbacks, closeFn, err := rootOpts.connect(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			entry, err := rollbacks.GetRollbackLog(ctx, args[0])
			if err != nil {
				return domainFailure("show rollback log", err)
			}
			out := rootOpts.formatter(cmd)
			if out.JSON() {
				return out.Success(entry)
			}
			return out.LogDetail(entry)
		},
	}
}
