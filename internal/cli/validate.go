package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/syncbox/internal/archive"
	"github.com/roach88/syncbox/internal/manifest"
)

// ValidationResult is the validate command's output payload.
type ValidationResult struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
}

func (r ValidationResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "✓ %s is valid\n", r.Path)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <archive.sync | manifest.toml>",
		Short: "Validate an archive or a bare manifest",
		Long: `Validate a .sync container or a standalone manifest.toml.

Containers are checked structurally (entry names, storage modes, required
manifest) and their manifest is run through schema validation. A bare .toml
file is validated as a manifest only.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts.printer(cmd), args[0])
		},
	}
}

func runValidate(p *Printer, path string) error {
	var err error
	if strings.HasSuffix(path, ".toml") {
		p.Debugf("validating %s as a bare manifest", path)
		err = validateManifestFile(path)
	} else {
		p.Debugf("validating %s as a container", path)
		_, err = archive.OpenFile(path)
	}

	if err != nil {
		if p.Format == FormatText {
			fmt.Fprintf(p.Out, "✗ %s is not valid\n", path)
		}
		return p.Fail(ExitFailure, err, ValidationResult{Path: path, Valid: false})
	}

	return p.Emit(ValidationResult{Path: path, Valid: true})
}

func validateManifestFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = manifest.Parse(data)
	return err
}
