package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"memoflow/internal/memo/models"
	dErrors "memoflow/pkg/domain-errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // domain failure: not found, already rolled back, conflict
	ExitCommandError = 2 // bad flags, unreachable store
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Anything else is ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// domainFailure maps a workflow error onto an exit error. Internal errors are command errors.
func domainFailure(message string, err error) *ExitError {
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope for CLI output.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// JSON reports whether output is machine-readable.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data in the JSON envelope. Text callers write their own layout.
func (f *OutputFormatter) Success(data any) error {
	return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
}

// LogTable renders rollback log entries one per line.
func (f *OutputFormatter) LogTable(entries []*models.RollbackLogEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(f.Writer, "no rollback logs")
		return err
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPERATION\tMEMO\tSTATUS\tPERFORMED BY\tPERFORMED AT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.OperationType, e.Before.MemoID, e.Status, e.PerformedBy, e.PerformedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

// LogDetail renders one rollback log entry.
func (f *OutputFormatter) LogDetail(e *models.RollbackLogEntry) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Operation:\t%s (%s)\n", e.OperationType, e.OperationID)
	fmt.Fprintf(tw, "Memo:\t%s\n", e.Before.MemoID)
	fmt.Fprintf(tw, "Status:\t%s\n", e.Status)
	fmt.Fprintf(tw, "Performed:\t%s at %s\n", e.PerformedBy, e.PerformedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Before:\t%s/%s\n", e.Before.Status, e.Before.Folder)
	fmt.Fprintf(tw, "After:\t%s/%s\n", e.After.Status, e.After.Folder)
	if ids := e.After.DeliveryIDs; len(ids) > 0 {
		fmt.Fprintf(tw, "Deliveries:\t%s\n", strings.Join(ids, ", "))
	}
	if ids := e.After.CalendarEventIDs; len(ids) > 0 {
		fmt.Fprintf(tw, "Calendar events:\t%s\n", strings.Join(ids, ", "))
	}
	if ids := e.After.ReceiptIDs; len(ids) > 0 {
		fmt.Fprintf(tw, "Receipts:\t%s\n", strings.Join(ids, ", "))
	}
	if e.IsRolledBack() && e.RolledBackAt != nil {
		fmt.Fprintf(tw, "Rolled back:\t%s at %s\n", e.RolledBackBy, e.RolledBackAt.UTC().Format(time.RFC3339))
		if e.RollbackReason != "" {
			fmt.Fprintf(tw, "Reason:\t%s\n", e.RollbackReason)
		}
	}
	return tw.Flush()
}
