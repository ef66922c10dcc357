package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/manifest"
)

// CreateResult is the create command's output payload.
type CreateResult struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	PayloadSize int    `json:"payload_size"`
	HasModule   bool   `json:"has_module"`
}

func (r CreateResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "created %s (%d byte payload)\n", r.Path, r.PayloadSize)
}

type createOptions struct {
	payloadPath string
	modulePath  string
	contextPath string
	output      string
	contentType string
	createdBy   string
	ttl         int64
	timeout     int64
	allowHosts  []string
	allowEnv    []string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:           "create --payload <file> -o <archive.sync>",
		Short:         "Wrap a payload file into a new archive",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(rootOpts.printer(cmd), opts)
		},
	}

	cmd.Flags().StringVar(&opts.payloadPath, "payload", "", "payload file (required)")
	cmd.Flags().StringVar(&opts.modulePath, "module", "", "wasm update module")
	cmd.Flags().StringVar(&opts.contextPath, "context", "", "JSON context document")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output archive path (required)")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "application/octet-stream", "payload MIME type")
	cmd.Flags().StringVar(&opts.createdBy, "created-by", "syncbox", "creator recorded in the manifest")
	cmd.Flags().Int64Var(&opts.ttl, "ttl", 3600, "payload time-to-live in seconds")
	cmd.Flags().Int64Var(&opts.timeout, "timeout", 30, "guest execution timeout in seconds")
	cmd.Flags().StringSliceVar(&opts.allowHosts, "allow-host", nil, "host the guest may reach (repeatable)")
	cmd.Flags().StringSliceVar(&opts.allowEnv, "allow-env", nil, "environment variable forwarded to the guest (repeatable)")
	_ = cmd.MarkFlagRequired("payload")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runCreate(p *Printer, opts *createOptions) error {
	payload, err := os.ReadFile(opts.payloadPath)
	if err != nil {
		return p.Fail(ExitCommandError, err, nil)
	}

	tpl := manifest.Template{
		CreatedBy:      opts.createdBy,
		DefaultTTL:     opts.ttl,
		DefaultTimeout: opts.timeout,
		AllowHosts:     opts.allowHosts,
	}
	ext := strings.TrimPrefix(filepath.Ext(opts.payloadPath), ".")
	m := tpl.Manifest(time.Now(), opts.contentType, ext)
	m.Permissions.AllowEnv = append([]string{}, opts.allowEnv...)

	b := archive.New().WithManifest(m).WithPayloadBytes(payload)

	if opts.modulePath != "" {
		module, err := os.ReadFile(opts.modulePath)
		if err != nil {
			return p.Fail(ExitCommandError, err, nil)
		}
		b = b.WithModuleBytes(module)
		p.Debugf("bundled update module %s (%d bytes)", opts.modulePath, len(module))
	}
	if opts.contextPath != "" {
		doc, err := os.ReadFile(opts.contextPath)
		if err != nil {
			return p.Fail(ExitCommandError, err, nil)
		}
		b = b.WithContext(doc)
	}

	if err := b.WriteFile(opts.output); err != nil {
		return p.Fail(ExitCommandError, err, nil)
	}

	return p.Emit(CreateResult{
		Path:        opts.output,
		ContentType: opts.contentType,
		PayloadSize: len(payload),
		HasModule:   opts.modulePath != "",
	})
}
