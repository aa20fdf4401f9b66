package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/schedmap/internal/mapping"
	"github.com/roach88/schedmap/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database  string
	OnUnknown string
	Override  string
	Yes       bool

	// RunID fixes the run identifier (hidden --run-id, for testing).
	// If empty, a UUIDv7 is generated.
	RunID string
}

// DocumentResult is the outcome of one document of an import.
type DocumentResult struct {
	Path    string           `json:"path"`
	Status  string           `json:"status"` // "mapped", "kept", "failed", "stopped"
	Summary *mapping.Summary `json:"summary,omitempty"`
	Notices int              `json:"notices"` // conditions reported to the operator
	Error   string           `json:"error,omitempty"`
}

// ImportResult holds the outcome of an import run.
type ImportResult struct {
	RunID     string           `json:"run_id"`
	Database  string           `json:"database"`
	Created   bool             `json:"created"`
	Documents []DocumentResult `json:"documents"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import [documents...]",
		Short: "Map XML scheduler documents into a database",
		Long: `Map scheduler Job and Plan documents into a SQLite database.

Every document is loaded into a table named after the file (schedule.xml
becomes table "schedule"). Plans are mapped before Jobs. With no document
arguments the command asks for documents one at a time until 'q'.

The database is asked for when --db is not given.

Exit codes:
  0 - All documents mapped (or kept)
  1 - A document was malformed or could not be mapped
  2 - Command error (bad flags, database cannot be opened)
  3 - Stopped by the operator on an unknown field, or interrupted

Examples:
  schedmap import --db jobs.db schedule.xml
  schedmap import --db jobs.db --on-unknown skip --override always -y *.xml
  schedmap import`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (must end in .db)")
	cmd.Flags().StringVar(&opts.OnUnknown, "on-unknown", PolicyAsk, "unknown field policy (ask|skip|abort)")
	cmd.Flags().StringVar(&opts.Override, "override", PolicyAsk, "existing table policy (ask|always|never)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not wait for Enter after notices")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "fixed run identifier")
	_ = cmd.Flags().MarkHidden("run-id")

	return cmd
}

func validateImportFlags(opts *ImportOptions) error {
	switch opts.OnUnknown {
	case PolicyAsk, PolicySkip, PolicyAbort:
	default:
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid --on-unknown %q: must be ask, skip or abort", opts.OnUnknown))
	}
	switch opts.Override {
	case PolicyAsk, PolicyAlways, PolicyNever:
	default:
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid --override %q: must be ask, always or never", opts.Override))
	}
	if opts.Database != "" {
		if err := store.ValidateDatabasePath(opts.Database); err != nil {
			return WrapExitError(ExitCommandError, "invalid --db", err)
		}
	}
	return nil
}

func runImport(opts *ImportOptions, args []string, cmd *cobra.Command) error {
	if err := validateImportFlags(opts); err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd)

	// Prompts share stdout in text mode; JSON output must stay clean.
	var promptOut io.Writer = cmd.OutOrStdout()
	if opts.Format == "json" {
		promptOut = cmd.ErrOrStderr()
	}
	console := NewConsole(cmd.InOrStdin(), promptOut, ConsoleOptions{
		OnUnknown: opts.OnUnknown,
		Override:  opts.Override,
		AssumeYes: opts.Yes,
	})

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := opts.Database
	if dbPath == "" {
		var err error
		dbPath, err = console.SelectDatabase(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "no database selected", err)
		}
	}

	created := !store.Exists(dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	if created {
		console.Success("Created new database %s", dbPath)
	} else {
		console.Info("Opened existing database %s", dbPath)
	}

	mopts := []mapping.Option{mapping.WithLogger(logger)}
	if opts.RunID != "" {
		mopts = append(mopts, mapping.WithRunID(opts.RunID))
	}
	m := mapping.New(st, console, mopts...)
	logger.Info("import started", "run_id", m.RunID(), "db", dbPath)

	result := ImportResult{
		RunID:     m.RunID(),
		Database:  dbPath,
		Created:   created,
		Documents: []DocumentResult{},
	}

	next := documentSource(ctx, console, args)
	var runErr error
	failed := false
	for runErr == nil {
		path, ok, err := next()
		if errors.Is(err, context.Canceled) {
			runErr = WrapExitError(ExitAborted, "import interrupted", err)
			break
		}
		if err != nil {
			runErr = WrapExitError(ExitCommandError, "document selection failed", err)
			break
		}
		if !ok {
			break
		}

		doc, stopErr := importDocument(ctx, m, console, path)
		result.Documents = append(result.Documents, doc)
		if doc.Status == "failed" {
			failed = true
		}
		runErr = stopErr
	}

	if runErr == nil && failed {
		runErr = NewExitError(ExitFailure, "one or more documents could not be mapped")
	}

	if opts.Format == "json" {
		if err := formatter.Result(result.RunID, result, mapping.Code(runErr), runErr); err != nil {
			return err
		}
	} else {
		writeImportText(cmd.OutOrStdout(), result)
	}
	logger.Info("import finished", "run_id", result.RunID, "documents", len(result.Documents))
	return runErr
}

// documentSource yields the documents to import: the arguments in order,
// or the interactive chooser when there are none.
func documentSource(ctx context.Context, console *Console, args []string) func() (string, bool, error) {
	if len(args) == 0 {
		return func() (string, bool, error) {
			return console.SelectDocument(ctx)
		}
	}
	i := 0
	return func() (string, bool, error) {
		if i >= len(args) {
			return "", false, nil
		}
		i++
		return args[i-1], true, nil
	}
}

// importDocument maps one document. A malformed or missing document is
// reported and recorded as failed; the returned error is non-nil only when
// the whole run has to stop.
func importDocument(ctx context.Context, m *mapping.Mapper, console *Console, path string) (DocumentResult, error) {
	doc := DocumentResult{Path: path}

	sum, err := m.MapFile(ctx, path)
	doc.Summary = sum
	if sum != nil {
		doc.Notices = len(sum.Notices)
	}
	switch {
	case err == nil && sum.Declined:
		doc.Status = "kept"
		console.Warn("Skipped %s: table %q kept.", path, sum.Table)
		return doc, nil

	case err == nil:
		doc.Status = "mapped"
		console.Success("Mapped %s into table %q: %d Plans, %d Jobs.", path, sum.Table, sum.Plans, sum.Jobs)
		return doc, nil

	case mapping.IsMalformedDocument(err),
		errors.Is(err, mapping.ErrInvalidDocument),
		errors.Is(err, store.ErrInvalidTableName):
		// Nothing was written.
		doc.Status = "failed"
		doc.Error = err.Error()
		console.Error("Cannot import %s: %v", path, err)
		return doc, nil
	}

	doc.Status = "stopped"
	doc.Error = err.Error()
	switch {
	case errors.Is(err, mapping.ErrAborted):
		console.Error("Import stopped in %s.", path)
		return doc, WrapExitError(ExitAborted, "import aborted", err)
	case errors.Is(err, context.Canceled):
		console.Error("Import interrupted in %s.", path)
		return doc, WrapExitError(ExitAborted, "import interrupted", err)
	}
	console.Error("Import of %s stopped: %v", path, err)
	return doc, WrapExitError(ExitFailure, fmt.Sprintf("failed to map %s", path), err)
}

func writeImportText(w io.Writer, result ImportResult) {
	fmt.Fprintf(w, "\nRun %s (%s)\n", result.RunID, result.Database)
	if len(result.Documents) == 0 {
		fmt.Fprintln(w, "No documents imported.")
		return
	}
	for _, doc := range result.Documents {
		switch doc.Status {
		case "mapped":
			s := doc.Summary
			fmt.Fprintf(w, "✓ %s → %s (%d Plans, %d Jobs", doc.Path, s.Table, s.Plans, s.Jobs)
			if len(s.Placeholders) > 0 {
				fmt.Fprintf(w, ", placeholders %v", s.Placeholders)
			}
			if len(s.SkippedFields) > 0 {
				fmt.Fprintf(w, ", skipped %v", s.SkippedFields)
			}
			if doc.Notices > 0 {
				fmt.Fprintf(w, ", notices %d", doc.Notices)
			}
			fmt.Fprintln(w, ")")
		case "kept":
			fmt.Fprintf(w, "- %s (table %s kept)\n", doc.Path, doc.Summary.Table)
		default:
			fmt.Fprintf(w, "✗ %s\n", doc.Path)
			fmt.Fprintf(w, "  %s\n", doc.Error)
		}
	}
}
