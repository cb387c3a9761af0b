package dap

import (
	"context"
	"io"
)

// Structure is a constructor holding an ordered set of members, all present
// exactly once.
type Structure struct {
	base
	vars []Variable
}

// NewStructure creates an empty Structure.
func NewStructure(name string) *Structure {
	return &Structure{base: base{name: name}}
}

func (*Structure) TypeName() string { return "Structure" }

// AddVariable appends v as the last member.
func (s *Structure) AddVariable(v Variable) {
	v.setParent(s)
	s.vars = append(s.vars, v)
}

func (s *Structure) Lookup(path string) (Variable, error) {
	return lookup(s.vars, path, s.name)
}

func (s *Structure) Vars() []Variable {
	return append([]Variable(nil), s.vars...)
}

func (s *Structure) ElementCount(leaves bool) int {
	if !leaves {
		return len(s.vars)
	}
	count := 0
	for _, v := range s.vars {
		count += v.ElementCount(true)
	}
	return count
}

func (s *Structure) CheckSemantics(all bool) error {
	if err := uniqueNames(s.vars, s.name, s.TypeName()); err != nil {
		return err
	}
	if all {
		for _, v := range s.vars {
			if err := v.CheckSemantics(true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Structure) Clone() Variable {
	c := NewStructure(s.name)
	c.vars = cloneVars(s.vars, c)
	return c
}

func (s *Structure) Decode(ctx context.Context, r io.Reader, peer *Peer, sink ProgressSink) error {
	for _, v := range s.vars {
		if err := checkCancelled(ctx, sink); err != nil {
			return err
		}
		if err := v.Decode(ctx, r, peer, sink); err != nil {
			return err
		}
	}
	return nil
}

func (s *Structure) Encode(w io.Writer) error {
	for _, v := range s.vars {
		if err := v.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

func (s *Structure) PrintDecl(w io.Writer, indent string, semi bool) {
	printMembersDecl(w, s, s.vars, indent, semi)
}

func (s *Structure) PrintVal(w io.Writer, indent string, decl bool) {
	if decl {
		s.PrintDecl(w, indent, false)
		io.WriteString(w, " = ")
	}
	printMembersVal(w, s.vars)
	if decl {
		io.WriteString(w, ";\n")
	}
}
