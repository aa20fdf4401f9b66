package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/schedmap/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Table    string
}

// HistoryResult holds the import log.
type HistoryResult struct {
	Imports []store.ImportRecord `json:"imports"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past imports",
		Long: `List the import log: one line per document mapped to completion,
oldest first, with its run id, row counts and any placeholder IDs.

Examples:
  schedmap history --db jobs.db
  schedmap history --db jobs.db --table schedule --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "only imports into this table")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	imports, err := st.Imports(ctx, opts.Table)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read import log", err)
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(HistoryResult{Imports: imports})
	}
	writeHistory(cmd.OutOrStdout(), imports)
	return nil
}

func writeHistory(w io.Writer, imports []store.ImportRecord) {
	if len(imports) == 0 {
		fmt.Fprintln(w, "No imports recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMPORTED\tRUN\tTABLE\tSOURCE\tPLANS\tJOBS\tPLACEHOLDERS\tSKIPPED")
	for _, rec := range imports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			rec.ImportedAt.Format(time.RFC3339),
			rec.RunID,
			rec.Table,
			rec.SourcePath,
			rec.Plans,
			rec.Jobs,
			joinInts(rec.Placeholders),
			orDash(strings.Join(rec.SkippedFields, ",")),
		)
	}
	tw.Flush()
}

func joinInts(ns []int64) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return orDash(strings.Join(parts, ","))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
