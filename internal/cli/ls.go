package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/lifecycle"
	"github.com/roach88/syncbox/internal/registry"
	"github.com/roach88/syncbox/internal/vfs"
)

// LsEntry is one mount entry in ls output.
type LsEntry struct {
	DisplayName string `json:"display_name"`
	LogicalPath string `json:"logical_path"`
	Size        int64  `json:"size"`
}

// LsResult is the ls command's output payload.
type LsResult struct {
	Dir     string    `json:"dir"`
	Entries []LsEntry `json:"entries"`
}

func (r LsResult) renderText(w io.Writer) {
	if len(r.Entries) == 0 {
		fmt.Fprintf(w, "no archives in %s\n", r.Dir)
		return
	}
	for _, e := range r.Entries {
		fmt.Fprintf(w, "%-30s %10d  %s\n", e.DisplayName, e.Size, e.LogicalPath)
	}
}

type lsOptions struct {
	registryPath string
}

// NewLsCommand creates the ls command.
func NewLsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &lsOptions{}

	cmd := &cobra.Command{
		Use:           "ls <dir>",
		Short:         "List the archives in a directory as mount entries",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd.Context(), rootOpts.printer(cmd), opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.registryPath, "registry", "", "registry database to record listed archives in")

	return cmd
}

func runLs(ctx context.Context, p *Printer, opts *lsOptions, dir string) error {
	mount, err := vfs.NewMount(dir, vfs.ReadOnly)
	if err != nil {
		return p.Fail(ExitCommandError, err, nil)
	}

	entries, err := mount.Entries()
	if err != nil {
		return p.Fail(ExitCommandError, err, nil)
	}

	if opts.registryPath != "" {
		if err := registerEntries(ctx, opts.registryPath, entries); err != nil {
			p.Debugf("registry update failed: %v", err)
		}
	}

	result := LsResult{Dir: dir}
	for _, e := range entries {
		result.Entries = append(result.Entries, LsEntry{
			DisplayName: e.DisplayName,
			LogicalPath: e.LogicalPath,
			Size:        e.Size,
		})
	}
	return p.Emit(result)
}

// registerEntries records every listed archive in the registry so later
// staleness scans can skip unchanged files.
func registerEntries(ctx context.Context, registryPath string, entries []vfs.Entry) error {
	reg, err := registry.Open(registryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	clock := lifecycle.SystemClock{}
	for _, e := range entries {
		a, err := archive.OpenFile(e.LogicalPath)
		if err != nil {
			continue
		}
		if err := reg.Register(ctx, e.LogicalPath, a, clock.Now()); err != nil {
			return err
		}
	}
	return nil
}
