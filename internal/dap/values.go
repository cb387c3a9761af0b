package dap

import "fmt"

// ValueOf converts v to plain Go values: scalars to their Go type,
// Structures to map[string]any, Sequences to [][]any of row values.
func ValueOf(v Variable) any {
	switch t := v.(type) {
	case Scalar:
		return t.Get()
	case *Structure:
		m := make(map[string]any, len(t.vars))
		for _, member := range t.vars {
			m[member.Name()] = ValueOf(member)
		}
		return m
	case *Sequence:
		rows := make([][]any, len(t.rows))
		for i, row := range t.rows {
			rows[i] = row.Values()
		}
		return rows
	default:
		return nil
	}
}

// Values returns the plain Go value of every column in the row.
func (r Row) Values() []any {
	out := make([]any, len(r))
	for i, v := range r {
		out[i] = ValueOf(v)
	}
	return out
}

// Assign sets v from plain Go values, the inverse of ValueOf. Structures
// accept a list in member order or a map keyed by member name; Sequences
// accept a list of rows, each a list in template order.
func Assign(v Variable, x any) error {
	switch t := v.(type) {
	case Scalar:
		return t.Set(x)
	case *Structure:
		return assignStructure(t, x)
	case *Sequence:
		rows, ok := x.([]any)
		if !ok {
			return fmt.Errorf("dap: Sequence %q: want a list of rows, got %T", t.name, x)
		}
		for i, raw := range rows {
			vals, ok := raw.([]any)
			if !ok {
				return fmt.Errorf("dap: Sequence %q row %d: want a list, got %T", t.name, i, raw)
			}
			row, err := t.BuildRow(vals...)
			if err != nil {
				return err
			}
			if err := t.AddRow(row); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("dap: cannot assign to %T", v)
	}
}

func assignStructure(s *Structure, x any) error {
	switch vals := x.(type) {
	case []any:
		if len(vals) != len(s.vars) {
			return fmt.Errorf("dap: Structure %q has %d members, got %d values", s.name, len(s.vars), len(vals))
		}
		for i, member := range s.vars {
			if err := Assign(member, vals[i]); err != nil {
				return err
			}
		}
	case map[string]any:
		for _, member := range s.vars {
			val, ok := vals[member.Name()]
			if !ok {
				return fmt.Errorf("dap: Structure %q: missing member %q", s.name, member.Name())
			}
			if err := Assign(member, val); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("dap: Structure %q: want a list or map, got %T", s.name, x)
	}
	return nil
}

// BuildRow clones the template and assigns vals column by column. The row
// is not appended.
func (s *Sequence) BuildRow(vals ...any) (Row, error) {
	if len(vals) != len(s.template) {
		return nil, fmt.Errorf("%w: sequence %q has %d columns, got %d values",
			ErrRowMismatch, s.name, len(s.template), len(vals))
	}
	row := s.NewRow()
	for i, v := range row {
		if err := Assign(v, vals[i]); err != nil {
			return nil, err
		}
	}
	return row, nil
}
