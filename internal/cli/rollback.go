package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RollbackOptions holds flags for the rollback command.
type RollbackOptions struct {
	*RootOptions
	Actor  string
	Reason string
}

// NewRollbackCommand compensates the operation recorded by one rollback log.
func NewRollbackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RollbackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rollback <log-id>",
		Short: "Compensate a committed operation",
		Long: `Undo the operation recorded by a rollback log. The compensation and the
log update commit together, and a log can only be rolled back once.`,
		Example:       `  memoctl rollback 0b9e... --actor admin-1 --reason "approved by mistake"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "admin performing the rollback (required)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "why the operation is undone")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runRollback(opts *RollbackOptions, cmd *cobra.Command, logID string) error {
	ctx := cmd.Context()
	rollbacks, closeFn, err := opts.connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res := rollbacks.ManualRollback(ctx, logID, opts.Actor, opts.Reason)
	if !res.Success {
		return domainFailure("rollback", res.Err)
	}

	entry := res.Value
	out := opts.formatter(cmd)
	if out.JSON() {
		return out.Success(entry)
	}
	_, err = fmt.Fprintf(out.Writer, "rolled back %s (%s) on memo %s\n", entry.ID, entry.OperationType, entry.Before.MemoID)
	return err
}
