package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/lifecycle"
	"github.com/roach88/syncbox/internal/view"
)

// EntryInfo is one container entry in inspect output.
type EntryInfo struct {
	Name   string `json:"name"`
	Mode   string `json:"mode"`
	Size   uint64 `json:"size"`
	Offset uint64 `json:"offset"`
}

// InspectResult is the inspect command's output payload.
type InspectResult struct {
	Path        string      `json:"path"`
	Version     string      `json:"version"`
	ContentType string      `json:"content_type"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   string      `json:"created_at"`
	TTL         int64       `json:"ttl"`
	Timeout     int64       `json:"timeout"`
	Stale       bool        `json:"stale"`
	HasPayload  bool        `json:"has_payload"`
	PayloadSize int64       `json:"payload_size"`
	HasModule   bool        `json:"has_module"`
	HasContext  bool        `json:"has_context"`
	HasProof    bool        `json:"has_proof"`
	AllowHosts  []string    `json:"allow_hosts"`
	Entries     []EntryInfo `json:"entries"`
}

func (r InspectResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s (format %s)\n", r.Path, r.Version)
	fmt.Fprintf(w, "  content-type: %s\n", r.ContentType)
	fmt.Fprintf(w, "  created:      %s by %s\n", r.CreatedAt, r.CreatedBy)
	fmt.Fprintf(w, "  ttl/timeout:  %ds / %ds\n", r.TTL, r.Timeout)
	fmt.Fprintf(w, "  stale:        %v\n", r.Stale)
	if len(r.AllowHosts) > 0 {
		fmt.Fprintf(w, "  allow-hosts:  %v\n", r.AllowHosts)
	}
	fmt.Fprintln(w, "  entries:")
	for _, e := range r.Entries {
		fmt.Fprintf(w, "    %-14s %-10s %8d bytes @ %d\n", e.Name, e.Mode, e.Size, e.Offset)
	}
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "inspect <archive.sync>",
		Short:         "Show an archive's manifest, entries and staleness",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts.printer(cmd), args[0])
		},
	}
}

func runInspect(p *Printer, path string) error {
	a, err := archive.OpenFile(path)
	if err != nil {
		return p.Fail(ExitCommandError, err, nil)
	}

	v, err := view.New(a)
	if err != nil {
		return p.Fail(ExitCommandError, err, nil)
	}

	m := v.Manifest()
	ctrl := lifecycle.NewController()
	result := InspectResult{
		Path:        path,
		Version:     m.Sync.Version,
		ContentType: m.Sync.ContentType,
		CreatedBy:   m.Meta.CreatedBy,
		CreatedAt:   m.Meta.CreatedAt,
		TTL:         m.Policy.TTL,
		Timeout:     m.Policy.Timeout,
		Stale:       ctrl.IsStale(m),
		HasPayload:  v.HasPayload(),
		PayloadSize: int64(len(v.Payload())),
		HasModule:   v.HasModule(),
		HasContext:  v.HasContext(),
		HasProof:    a.HasProof(),
		AllowHosts:  m.Permissions.AllowHosts,
	}
	for _, e := range v.Entries() {
		result.Entries = append(result.Entries, EntryInfo{
			Name:   e.Name,
			Mode:   e.Mode.String(),
			Size:   e.Size,
			Offset: e.Offset,
		})
	}

	return p.Emit(result)
}
