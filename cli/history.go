package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dh-form/domain"
	"dh-form/repository"
	"dh-form/service"
)

type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded calculations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd.OutOrStdout(), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of calculations to show")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

type historyJSON struct {
	ID        string                  `json:"id"`
	CreatedAt time.Time               `json:"created_at"`
	Rows      []domain.ParameterInput `json:"rows"`
	calcJSON
}

func runHistory(opts *HistoryOptions, out io.Writer, cmd *cobra.Command) error {
	store, err := repository.OpenHistorySQLite(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	recs, err := store.Recent(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	if opts.Format == "json" {
		entries := make([]historyJSON, len(recs))
		for i, rec := range recs {
			coord := rec.Coord
			entries[i] = historyJSON{
				ID:        rec.ID,
				CreatedAt: rec.CreatedAt,
				Rows:      rec.Rows,
				calcJSON:  resultJSON(service.NewResultView(rec.Result, &coord)),
			}
		}
		return writeJSON(out, entries)
	}

	var b strings.Builder
	for _, rec := range recs {
		coord := rec.Coord
		view := service.NewResultView(rec.Result, &coord)
		fmt.Fprintf(&b, "%s  %s  rows=%d  %s\n",
			rec.CreatedAt.Format(time.RFC3339), rec.ID, len(rec.Rows),
			strings.Join(view.Coord.Lines(), "  "))
	}
	_, err = io.WriteString(out, b.String())
	return err
}
