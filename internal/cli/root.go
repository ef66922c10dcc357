package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// RootOptions carries the global flags down to every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string
}

// printer builds the Printer for one invocation, wired to cobra's streams
// so tests can capture output.
func (o *RootOptions) printer(cmd *cobra.Command) *Printer {
	return &Printer{
		Format:  o.Format,
		Out:     cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
		Verbose: o.Verbose,
	}
}

// NewRootCommand assembles the syncbox command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syncbox",
		Short: "Self-updating .sync archives",
		Long: `Inspect, create, validate and refresh .sync archives: ZIP-compatible
containers whose payload can update itself via a sandboxed guest module.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Format {
			case FormatText, FormatJSON:
				return nil
			default:
				return fmt.Errorf("invalid format %q: must be %s or %s", opts.Format, FormatText, FormatJSON)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose diagnostics on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json)")

	for _, sub := range []*cobra.Command{
		NewInspectCommand(opts),
		NewCreateCommand(opts),
		NewValidateCommand(opts),
		NewRefreshCommand(opts),
		NewLsCommand(opts),
	} {
		cmd.AddCommand(sub)
	}
	return cmd
}
