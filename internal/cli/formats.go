package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFormatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the output formats defined in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()

			out := cmd.OutOrStdout()
			if len(a.cfg.OutputFormats) == 0 {
				fmt.Fprintln(out, "No output formats configured.")
				return nil
			}
			for _, f := range a.cfg.OutputFormats {
				fmt.Fprintf(out, "%-30s %s_YYYYMMDD.csv\n", f.DisplayName, f.FileName)
			}
			return nil
		},
	}
}

func (a *app) formatNames() []string {
	names := make([]string, len(a.cfg.OutputFormats))
	for i, f := range a.cfg.OutputFormats {
		names[i] = f.DisplayName
	}
	return names
}
