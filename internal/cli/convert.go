package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nconklindev/sheet2csv/internal/batch"
	"github.com/nconklindev/sheet2csv/internal/naming"
)

func newConvertCommand(a *app) *cobra.Command {
	var formatName, dateStr string

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert files without the interactive UI",
		Example: `  sheet2csv convert report.xlsx
  sheet2csv convert --format "Daily Sales" --date 2024-03-07 a.xlsx b.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()

			opts := a.batchOptions()

			if cmd.Flags().Changed("date") && formatName == "" {
				return errors.New("--date only applies to templated names; pass --format as well")
			}

			if formatName != "" {
				f, ok := a.cfg.Lookup(formatName)
				if !ok {
					return fmt.Errorf("unknown output format %q (available: %s)", formatName, strings.Join(a.formatNames(), ", "))
				}
				opts.Format = f

				opts.Date = time.Now()
				if dateStr != "" {
					d, err := naming.ParseDate(dateStr)
					if err != nil {
						return err
					}
					opts.Date = d
				}
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s := batch.Run(ctx, args, opts, nil)
			printSummary(cmd, s)

			if s.Failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed", s.Failed, len(s.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "", "output format name from the config file (default: same name as input)")
	cmd.Flags().StringVarP(&dateStr, "date", "d", "", "date used in templated file names, YYYY-MM-DD (default: today)")

	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printSummary(cmd *cobra.Command, s *batch.Summary) {
	out := cmd.OutOrStdout()
	for _, r := range s.Results {
		if r.Err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", r.InputFile, r.Err)
			continue
		}
		fmt.Fprintf(out, "✓ %s -> %s (%d rows", r.InputFile, r.OutputFile, r.Result.RowsProcessed)
		if r.Result.CellMisses > 0 {
			fmt.Fprintf(out, ", %d unrecognized dates", r.Result.CellMisses)
		}
		fmt.Fprintln(out, ")")
	}
	fmt.Fprintf(out, "Successfully converted %d file(s). Failed to convert %d file(s).\n", s.Succeeded, s.Failed)
}
