package dap

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

// Row is one instance of a Sequence template: values positionally aligned
// with the template columns.
type Row []Variable

// Sequence holds N sequentially accessed instances of a set of variables.
// It is a table of N Structures sharing one template.
//
// INVARIANTS:
//   - every row has the template's arity, column names and column types
//   - template order is fixed once rows arrive
//   - rows are owned by the Sequence; Clone shares nothing
//
// Thread-safety: Decode is serialized per instance. Other methods are not
// synchronized; a Sequence belongs to one request scope at a time.
type Sequence struct {
	base
	template []Variable
	rows     []Row
	level    int

	decodeMu sync.Mutex
}

// NewSequence creates an empty top-level Sequence.
func NewSequence(name string) *Sequence {
	return &Sequence{base: base{name: name}}
}

func (*Sequence) TypeName() string { return "Sequence" }

// Level returns the nesting depth; 0 is the outermost sequence.
func (s *Sequence) Level() int { return s.level }

func (s *Sequence) setLevel(level int) {
	s.level = level
	for _, v := range s.template {
		if nested, ok := v.(*Sequence); ok {
			nested.setLevel(level + 1)
		}
	}
}

// AddVariable appends v to the template. A nested Sequence moves to
// s.Level()+1. Names are not checked here; see CheckSemantics.
func (s *Sequence) AddVariable(v Variable) {
	v.setParent(s)
	s.template = append(s.template, v)
	if nested, ok := v.(*Sequence); ok {
		nested.setLevel(s.level + 1)
	}
}

// NewRow returns a fresh row cloned from the template.
func (s *Sequence) NewRow() Row {
	return Row(cloneVars(s.template, s))
}

// AddRow appends a copy of row. The row must match the template column for
// column, including the members of nested containers at every depth. The
// caller keeps row; later changes to it do not reach s.
func (s *Sequence) AddRow(row Row) error {
	if len(row) != len(s.template) {
		return fmt.Errorf("%w: sequence %q has %d columns, row has %d",
			ErrRowMismatch, s.name, len(s.template), len(row))
	}
	for i, v := range row {
		col := s.template[i]
		if !sameShape(col, v) {
			return fmt.Errorf("%w: sequence %q column %d is %s %s, row has %s %s of a different shape",
				ErrRowMismatch, s.name, i, col.TypeName(), col.Name(), v.TypeName(), v.Name())
		}
	}
	owned := Row(cloneVars(row, s))
	for _, v := range owned {
		if nested, ok := v.(*Sequence); ok {
			nested.setLevel(s.level + 1)
		}
	}
	s.rows = append(s.rows, owned)
	return nil
}

// Row returns row i. The returned slice aliases the stored row.
func (s *Sequence) Row(i int) (Row, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, fmt.Errorf("%w: sequence %q row %d (have %d)", ErrOutOfRange, s.name, i, len(s.rows))
	}
	return s.rows[i], nil
}

// DelRow removes row i, shifting later rows down.
func (s *Sequence) DelRow(i int) error {
	if i < 0 || i >= len(s.rows) {
		return fmt.Errorf("%w: sequence %q row %d (have %d)", ErrOutOfRange, s.name, i, len(s.rows))
	}
	s.rows = slices.Delete(s.rows, i, i+1)
	return nil
}

// RowCount returns the number of materialized rows.
func (s *Sequence) RowCount() int { return len(s.rows) }

// Lookup returns the template variable at path. Template variables hold no
// data; use RowVariable for values.
func (s *Sequence) Lookup(path string) (Variable, error) {
	return lookup(s.template, path, s.name)
}

// RowVariable returns the value at path within row.
func (s *Sequence) RowVariable(row int, path string) (Variable, error) {
	r, err := s.Row(row)
	if err != nil {
		return nil, err
	}
	return lookup(r, path, s.name)
}

// Var returns template column i.
func (s *Sequence) Var(i int) (Variable, error) {
	if i < 0 || i >= len(s.template) {
		return nil, &NoSuchVariableError{Container: s.name, Path: fmt.Sprintf("#%d", i)}
	}
	return s.template[i], nil
}

// Vars returns the template columns.
func (s *Sequence) Vars() []Variable {
	return append([]Variable(nil), s.template...)
}

func (s *Sequence) ElementCount(leaves bool) int {
	if !leaves {
		return len(s.template)
	}
	count := 0
	for _, v := range s.template {
		count += v.ElementCount(true)
	}
	return count
}

// CheckSemantics fails if two template columns share a name. With all, every
// column is checked too.
func (s *Sequence) CheckSemantics(all bool) error {
	if err := uniqueNames(s.template, s.name, s.TypeName()); err != nil {
		return err
	}
	if all {
		for _, v := range s.template {
			if err := v.CheckSemantics(true); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone deep-copies the template and every row.
func (s *Sequence) Clone() Variable {
	c := &Sequence{base: base{name: s.name}, level: s.level}
	c.template = cloneVars(s.template, c)
	c.rows = make([]Row, len(s.rows))
	for i, row := range s.rows {
		c.rows[i] = Row(cloneVars(row, c))
	}
	return c
}

func (s *Sequence) PrintDecl(w io.Writer, indent string, semi bool) {
	printMembersDecl(w, s, s.template, indent, semi)
}

// PrintVal writes every row as "{ v, v }" inside an outer brace pair.
func (s *Sequence) PrintVal(w io.Writer, indent string, decl bool) {
	if decl {
		s.PrintDecl(w, indent, false)
		io.WriteString(w, " = ")
	}
	io.WriteString(w, "{ ")
	for i, row := range s.rows {
		if i > 0 {
			io.WriteString(w, ", ")
		}
		printMembersVal(w, row)
	}
	io.WriteString(w, " }")
	if decl {
		io.WriteString(w, ";\n")
	}
}
