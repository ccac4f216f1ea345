package cli

import (
	"encoding/json"
	"errors"
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

type CalcOptions struct {
	*RootOptions
	Rows     []string
	Endpoint string
	Timeout  time.Duration
	Database string
}

func NewCalcCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CalcOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate a transform from parameter rows",
		Long: `Send Denavit-Hartenberg parameter rows to the calculation service and
print the resulting matrix and end-effector coordinates.

Each --row is "a,alpha,d,theta"; rows are sent in the order given.

Example:
  dhform calc --row 1,0,0,90 --row 2,-90,0,45
  dhform calc --row 0.5,0,0.2,30 --format json --db ./history.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(opts, cmd.OutOrStdout(), cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Rows, "row", nil, `parameter row "a,alpha,d,theta" (repeatable)`)
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", service.DefaultEndpoint, "calculation service URL")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "request timeout (0 waits indefinitely)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the calculation in this SQLite database")
	_ = cmd.MarkFlagRequired("row")

	return cmd
}

// ParseRow splits "a,alpha,d,theta" into a row. Values are trimmed but
// otherwise passed on as typed.
func ParseRow(s string) (domain.ParameterInput, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.ParameterInput{}, fmt.Errorf("row %q: want 4 comma-separated values, got %d", s, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return domain.ParameterInput{A: parts[0], Alpha: parts[1], D: parts[2], Theta: parts[3]}, nil
}

func runCalc(opts *CalcOptions, out io.Writer, cmd *cobra.Command) error {
	inputs := make([]domain.ParameterInput, 0, len(opts.Rows))
	for _, r := range opts.Rows {
		in, err := ParseRow(r)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid row", err)
		}
		inputs = append(inputs, in)
	}

	var history repository.HistoryRepository = repository.NewHistoryMemory()
	if opts.Database != "" {
		store, err := repository.OpenHistorySQLite(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		history = store
	}

	logger := slog.Default()
	client := service.NewComputeClient(opts.Endpoint, opts.Timeout, logger)
	formService := service.NewFormService(repository.NewMemoryCache(), history, client,
		domain.UUIDGenerator{}, service.DefaultFormOptions(), logger)

	result, err := formService.Calculate(cmd.Context(), inputs)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return WrapExitError(ExitCommandError, "invalid rows", err)
	case err != nil:
		return WrapExitError(ExitFailure, "calculation failed", err)
	}

	coord := result.Coord
	view := service.NewResultView(result.Result, &coord)
	if opts.Format == "json" {
		return writeJSON(out, resultJSON(view))
	}
	return service.RenderText(out, view)
}

type coordJSON struct {
	X string `json:"x"`
	Y string `json:"y"`
	Z string `json:"z"`
}

type calcJSON struct {
	Result [][]string `json:"result"`
	Coord  *coordJSON `json:"coord,omitempty"`
}

func resultJSON(view service.ResultView) calcJSON {
	out := calcJSON{Result: view.Rows}
	if out.Result == nil {
		out.Result = [][]string{}
	}
	if view.Coord != nil {
		out.Coord = &coordJSON{X: view.Coord.X, Y: view.Coord.Y, Z: view.Coord.Z}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
