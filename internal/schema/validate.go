package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed diagnostic.cue
var diagnosticSchema string

// ValidationError reports an entry that does not satisfy #Diagnostic.
type ValidationError struct {
	Index   int       // position of the entry in the tool output
	Path    string    // dotted path inside the entry, empty for the entry itself
	Message string    // CUE error text
	Pos     token.Pos // position in diagnostic.cue, if known
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("entry %d: %s: %s", e.Index, e.Path, e.Message)
	}
	return fmt.Sprintf("entry %d: %s", e.Index, e.Message)
}

// Validator checks diagnostic entries against the embedded CUE contract.
// A Validator is not safe for concurrent use.
type Validator struct {
	ctx *cue.Context
	def cue.Value
}

// NewValidator compiles the embedded contract.
func NewValidator() (*Validator, error) {
	return compile(diagnosticSchema)
}

func compile(src string) (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("diagnostic.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile diagnostic schema: %w", err)
	}

	def := v.LookupPath(cue.ParsePath("#Diagnostic"))
	if !def.Exists() {
		return nil, fmt.Errorf("compile diagnostic schema: #Diagnostic not defined")
	}

	return &Validator{ctx: ctx, def: def}, nil
}

// Validate checks every entry and returns the first violation.
func (v *Validator) Validate(entries []any) error {
	for i, e := range entries {
		if err := v.validateEntry(i, e); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateEntry(index int, entry any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return &ValidationError{Index: index, Message: fmt.Sprintf("encode entry: %v", err)}
	}

	expr, err := cuejson.Extract(fmt.Sprintf("entry[%d]", index), data)
	if err != nil {
		return &ValidationError{Index: index, Message: fmt.Sprintf("extract entry: %v", err)}
	}

	unified := v.def.Unify(v.ctx.BuildExpr(expr))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toValidationError(index, err)
	}
	return nil
}

// toValidationError keeps the first CUE error with its path and position.
func toValidationError(index int, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Index: index, Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	verr := &ValidationError{
		Index:   index,
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		verr.Pos = positions[0]
	}
	return verr
}
