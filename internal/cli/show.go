package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/schedmap/internal/record"
	"github.com/roach88/schedmap/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// TableListing is the show output when no table is named.
type TableListing struct {
	Tables []TableInfo `json:"tables"`

	// Other lists tables that are not document tables.
	Other []string `json:"other_tables,omitempty"`
}

// TableInfo describes one document table.
type TableInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// TableContents is the show output for one table.
type TableContents struct {
	Table string           `json:"table"`
	Rows  []map[string]any `json:"rows"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [table]",
		Short: "Print a document table",
		Long: `Print the rows of a document table in Entry order.

Without a table name, lists the document tables in the database.

Examples:
  schedmap show --db jobs.db
  schedmap show --db jobs.db schedule
  schedmap show --db jobs.db schedule --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := ""
			if len(args) == 1 {
				table = args[0]
			}
			return runShow(opts, table, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// openExisting opens a database that must already exist.
func openExisting(path string) (*store.Store, error) {
	if err := store.ValidateDatabasePath(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --db", err)
	}
	if !store.Exists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runShow(opts *ShowOptions, table string, cmd *cobra.Command) error {
	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if table == "" {
		listing, err := listTables(ctx, st)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list tables", err)
		}
		if opts.Format == "json" {
			return formatter.Success(listing)
		}
		writeTableListing(cmd.OutOrStdout(), listing)
		return nil
	}

	if err := store.ValidateTableName(table); err != nil {
		return WrapExitError(ExitCommandError, "invalid table", err)
	}
	exists, err := st.TableExists(ctx, table)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to look up table", err)
	}
	if !exists {
		return NewExitError(ExitCommandError, fmt.Sprintf("table not found: %s", table))
	}
	isDoc, err := st.IsDocumentTable(ctx, table)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to look up table", err)
	}
	if !isDoc {
		return NewExitError(ExitCommandError, fmt.Sprintf("not a document table: %s", table))
	}

	rows, err := st.Rows(ctx, table)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read table", err)
	}

	if opts.Format == "json" {
		contents := TableContents{Table: table, Rows: make([]map[string]any, len(rows))}
		for i, r := range rows {
			contents.Rows[i] = r.Columns()
		}
		return formatter.Success(contents)
	}
	writeRows(cmd.OutOrStdout(), rows)
	return nil
}

func listTables(ctx context.Context, st *store.Store) (TableListing, error) {
	names, err := st.Tables(ctx)
	if err != nil {
		return TableListing{}, err
	}
	listing := TableListing{Tables: make([]TableInfo, 0, len(names))}
	for _, name := range names {
		isDoc, err := st.IsDocumentTable(ctx, name)
		if err != nil {
			return TableListing{}, err
		}
		if !isDoc {
			listing.Other = append(listing.Other, name)
			continue
		}
		n, err := st.CountRows(ctx, name)
		if err != nil {
			return TableListing{}, err
		}
		listing.Tables = append(listing.Tables, TableInfo{Name: name, Rows: n})
	}
	return listing, nil
}

func writeTableListing(w io.Writer, listing TableListing) {
	if len(listing.Tables) == 0 {
		fmt.Fprintln(w, "No document tables.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TABLE\tROWS")
		for _, t := range listing.Tables {
			fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.Rows)
		}
		tw.Flush()
	}
	if len(listing.Other) > 0 {
		fmt.Fprintf(w, "Other tables: %s\n", strings.Join(listing.Other, ", "))
	}
}

// writeRows prints rows as an aligned table, NULL shown as "-".
func writeRows(w io.Writer, rows []store.StoredRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprint(tw, "Entry\tObjectType")
	for _, f := range record.Fields {
		fmt.Fprintf(tw, "\t%s", f.Column())
	}
	fmt.Fprintln(tw)

	for _, r := range rows {
		cols := r.Columns()
		fmt.Fprintf(tw, "%d\t%s", r.Entry, r.ObjectType)
		for _, f := range record.Fields {
			fmt.Fprintf(tw, "\t%s", cell(cols[f.Column()]))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func cell(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}
