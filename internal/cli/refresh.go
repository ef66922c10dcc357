package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/syncbox/internal/guest"
	"github.com/roach88/syncbox/internal/lifecycle"
	"github.com/roach88/syncbox/internal/registry"
)

// RefreshResult is the refresh command's output payload.
type RefreshResult struct {
	Path        string `json:"path"`
	Stale       bool   `json:"stale"`
	Updated     bool   `json:"updated"`
	PayloadSize int    `json:"payload_size"`
	Warning     string `json:"warning,omitempty"`
}

func (r RefreshResult) renderText(w io.Writer) {
	switch {
	case r.Updated:
		fmt.Fprintf(w, "updated %s (%d byte payload)\n", r.Path, r.PayloadSize)
	case r.Stale:
		fmt.Fprintf(w, "%s is stale, payload unchanged\n", r.Path)
	default:
		fmt.Fprintf(w, "%s is fresh, nothing to do\n", r.Path)
	}
	if r.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n", r.Warning)
	}
}

type refreshOptions struct {
	hostApp      string
	registryPath string
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &refreshOptions{}

	cmd := &cobra.Command{
		Use:   "refresh <archive.sync>",
		Short: "Run the archive's update module if the payload is stale",
		Long: `Check the archive's TTL and, when the payload is stale and an update
module is bundled, execute it in a sandboxed guest session. A successful
run replaces the payload atomically; a failed one leaves the archive
untouched and reports a warning.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(rootOpts.printer(cmd), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.hostApp, "host-app", "", "guest harness binary to sandbox the update module in")
	cmd.Flags().StringVar(&opts.registryPath, "registry", "", "registry database to invalidate and re-register in")

	return cmd
}

func runRefresh(p *Printer, opts *refreshOptions, path string, cmd *cobra.Command) error {
	ctrlOpts := []lifecycle.ControllerOption{}
	if opts.hostApp != "" {
		ctrlOpts = append(ctrlOpts,
			lifecycle.WithRunner(&guest.SubprocessRunner{HostApp: opts.hostApp, Args: []string{"guest"}}),
			lifecycle.WithHostApp(opts.hostApp),
		)
	}

	var reg *registry.Registry
	if opts.registryPath != "" {
		var err error
		if reg, err = registry.Open(opts.registryPath); err != nil {
			return p.Fail(ExitCommandError, err, nil)
		}
		defer reg.Close()
		ctrlOpts = append(ctrlOpts, lifecycle.WithInvalidator(reg))
	}

	ctrl := lifecycle.NewController(ctrlOpts...)
	out, err := ctrl.Refresh(cmd.Context(), path)
	if err != nil {
		return p.Fail(ExitCommandError, err, nil)
	}

	if reg != nil {
		clock := lifecycle.SystemClock{}
		if err := reg.Register(cmd.Context(), path, out.Archive, clock.Now()); err != nil {
			p.Debugf("re-register failed: %v", err)
		}
	}

	return p.Emit(RefreshResult{
		Path:        path,
		Stale:       out.Stale,
		Updated:     out.Updated,
		PayloadSize: len(out.Payload),
		Warning:     out.Warning,
	})
}
