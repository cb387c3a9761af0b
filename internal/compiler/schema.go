package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dapseq/internal/dap"
)

// ColumnTypes lists the accepted values of a column's type field.
var ColumnTypes = []string{
	"byte", "int16", "uint16", "int32", "uint32",
	"float32", "float64", "string", "structure", "sequence",
}

// CompileSchemas compiles every field of the top-level "sequence" struct in
// declaration order. All column errors are collected rather than stopping at
// the first.
func CompileSchemas(v cue.Value) ([]*dap.Sequence, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	seqVal := v.LookupPath(cue.ParsePath("sequence"))
	if !seqVal.Exists() {
		return nil, []error{&CompileError{
			Field:   "sequence",
			Message: "no sequence declarations found",
			Pos:     v.Pos(),
		}}
	}

	iter, err := seqVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var seqs []*dap.Sequence
	var errs []error
	for iter.Next() {
		s, err := CompileSequence(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seqs = append(seqs, s)
	}
	return seqs, errs
}

// CompileSource compiles a single CUE document. filename is used only for
// error positions.
func CompileSource(filename string, src []byte) ([]*dap.Sequence, []error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileSchemas(v)
}

// CompileSequence builds a Sequence template from one declaration. The
// sequence takes its name from the declaration's label.
func CompileSequence(v cue.Value) (*dap.Sequence, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name := labelName(v)

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{
			Field:   "columns",
			Message: fmt.Sprintf("sequence %q: columns is required", name),
			Pos:     v.Pos(),
		}
	}
	cols, err := compileColumns(colsVal)
	if err != nil {
		return nil, err
	}

	s := dap.NewSequence(name)
	for _, c := range cols {
		s.AddVariable(c)
	}
	return s, nil
}

// labelName returns the unquoted last path label of v.
func labelName(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	sel := sels[len(sels)-1]
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func compileColumns(v cue.Value) ([]dap.Variable, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []dap.Variable
	for iter.Next() {
		col, err := compileColumn(iter.Value())
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     v.Pos(),
		}
	}
	return cols, nil
}

func compileColumn(v cue.Value) (dap.Variable, error) {
	name, err := requiredString(v, "name")
	if err != nil {
		return nil, err
	}
	typ, err := requiredString(v, "type")
	if err != nil {
		return nil, err
	}

	nested := v.LookupPath(cue.ParsePath("columns"))

	var col dap.Variable
	switch strings.ToLower(typ) {
	case "byte":
		col = dap.NewByte(name, 0)
	case "int16":
		col = dap.NewInt16(name, 0)
	case "uint16":
		col = dap.NewUInt16(name, 0)
	case "int32":
		col = dap.NewInt32(name, 0)
	case "uint32":
		col = dap.NewUInt32(name, 0)
	case "float32":
		col = dap.NewFloat32(name, 0)
	case "float64":
		col = dap.NewFloat64(name, 0)
	case "string":
		col = dap.NewString(name, "")
	case "structure", "sequence":
		if !nested.Exists() {
			return nil, &CompileError{
				Field:   "columns",
				Message: fmt.Sprintf("%s column %q needs columns", typ, name),
				Pos:     v.Pos(),
			}
		}
		members, err := compileColumns(nested)
		if err != nil {
			return nil, err
		}
		if strings.ToLower(typ) == "structure" {
			st := dap.NewStructure(name)
			for _, m := range members {
				st.AddVariable(m)
			}
			return st, nil
		}
		seq := dap.NewSequence(name)
		for _, m := range members {
			seq.AddVariable(m)
		}
		return seq, nil
	default:
		return nil, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("column %q: unknown type %q (want one of %s)", name, typ, strings.Join(ColumnTypes, ", ")),
			Pos:     v.LookupPath(cue.ParsePath("type")).Pos(),
		}
	}

	if nested.Exists() {
		return nil, &CompileError{
			Field:   "columns",
			Message: fmt.Sprintf("%s column %q cannot have columns", typ, name),
			Pos:     nested.Pos(),
		}
	}
	return col, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
