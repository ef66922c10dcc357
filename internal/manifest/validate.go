package manifest

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// validateSchema unifies the decoded TOML tree with the embedded #Manifest
// schema. Any unification or validation error is reported as a
// SchemaViolation carrying the offending field path.
//
// Uses the CUE SDK's Go API directly (not CLI subprocess).
func validateSchema(tree map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal error: compile manifest schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("internal error: lookup #Manifest: %w", err)
	}

	data := ctx.Encode(tree)
	if err := data.Err(); err != nil {
		return newMalformed(fmt.Sprintf("encode manifest tree: %v", err))
	}

	// Concrete validation: required fields left unfilled by the data are
	// incomplete values, which must be rejected, not tolerated.
	unified := def.Unify(data)
	if err := unified.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return schemaViolation(err)
	}

	return nil
}

// schemaViolation converts a CUE validation error into a manifest Error,
// extracting the first error's field path for diagnostics.
func schemaViolation(err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return newSchemaViolation("", err.Error())
	}

	first := errs[0]
	field := strings.Join(first.Path(), ".")

	// Format without position info - the input is in-memory bytes, the
	// schema.cue positions are meaningless to callers.
	format, args := first.Msg()
	return newSchemaViolation(field, fmt.Sprintf(format, args...))
}
