package dap

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Variable is the closed set of DAP variables. Only the types in this
// package implement it.
type Variable interface {
	Name() string
	SetName(name string)

	// TypeName returns the DAP type name ("Float64", "Sequence", ...).
	TypeName() string

	// Parent returns the owning container, or nil. The link is for path
	// lookup only; it never keeps the parent alive or mutates it.
	Parent() Container

	// Clone returns a deep copy with no parent. Nothing is shared with the
	// receiver at any depth.
	Clone() Variable

	// ElementCount returns 1 for scalars. For containers it returns the
	// number of direct members, or with leaves the number of scalar
	// descendants.
	ElementCount(leaves bool) int

	// CheckSemantics validates the variable; with all, members too.
	CheckSemantics(all bool) error

	// Decode reads the variable's value from r. ctx and sink are consulted
	// for cancellation before each element of a container.
	Decode(ctx context.Context, r io.Reader, peer *Peer, sink ProgressSink) error

	// Encode writes the variable's value to w.
	Encode(w io.Writer) error

	// PrintDecl writes the DDS declaration, each line prefixed by indent.
	PrintDecl(w io.Writer, indent string, semi bool)

	// PrintVal writes the value, optionally preceded by its declaration.
	PrintVal(w io.Writer, indent string, decl bool)

	setParent(c Container)
}

// Container is a Variable holding named members.
type Container interface {
	Variable

	// Lookup resolves a dotted path against the container's members.
	Lookup(path string) (Variable, error)

	// Vars returns the members in declaration order. The slice is a copy;
	// the members are not.
	Vars() []Variable
}

// base carries the name and parent link shared by every variant.
type base struct {
	name   string
	parent Container
}

func (b *base) Name() string { return b.name }

func (b *base) SetName(name string) { b.name = name }

func (b *base) Parent() Container { return b.parent }

func (b *base) setParent(c Container) { b.parent = c }

func (b *base) ElementCount(bool) int { return 1 }

func (b *base) CheckSemantics(bool) error { return nil }

// lookup resolves "a.b.c" against vars, descending into containers.
func lookup(vars []Variable, path, owner string) (Variable, error) {
	head, rest, nested := strings.Cut(path, ".")
	for _, v := range vars {
		if v.Name() != head {
			continue
		}
		if !nested {
			return v, nil
		}
		if c, ok := v.(Container); ok {
			return c.Lookup(rest)
		}
		break
	}
	return nil, &NoSuchVariableError{Container: owner, Path: path}
}

// uniqueNames fails on the first name that appears twice among vars.
func uniqueNames(vars []Variable, owner, typeName string) error {
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if _, dup := seen[v.Name()]; dup {
			return &SemanticsError{Container: owner, TypeName: typeName, Name: v.Name()}
		}
		seen[v.Name()] = struct{}{}
	}
	return nil
}

// sameShape reports whether got declares the same name and type as want and,
// for containers, the same members in the same order at every depth.
func sameShape(want, got Variable) bool {
	if want.TypeName() != got.TypeName() || want.Name() != got.Name() {
		return false
	}
	wc, ok := want.(Container)
	if !ok {
		return true
	}
	gc, ok := got.(Container)
	if !ok {
		return false
	}
	wv, gv := wc.Vars(), gc.Vars()
	if len(wv) != len(gv) {
		return false
	}
	for i := range wv {
		if !sameShape(wv[i], gv[i]) {
			return false
		}
	}
	return true
}

func cloneVars(vars []Variable, parent Container) []Variable {
	out := make([]Variable, len(vars))
	for i, v := range vars {
		c := v.Clone()
		c.setParent(parent)
		out[i] = c
	}
	return out
}

func printDecl(w io.Writer, v Variable, indent string, semi bool) {
	fmt.Fprintf(w, "%s%s %s", indent, v.TypeName(), v.Name())
	if semi {
		fmt.Fprintln(w, ";")
	}
}

// printMembersDecl writes a constructor declaration: "Type {", members, "} name".
func printMembersDecl(w io.Writer, v Variable, members []Variable, indent string, semi bool) {
	fmt.Fprintf(w, "%s%s {\n", indent, v.TypeName())
	for _, m := range members {
		m.PrintDecl(w, indent+"    ", true)
	}
	fmt.Fprintf(w, "%s} %s", indent, v.Name())
	if semi {
		fmt.Fprintln(w, ";")
	}
}

// printMembersVal writes "{ v, v }".
func printMembersVal(w io.Writer, members []Variable) {
	io.WriteString(w, "{ ")
	for i, m := range members {
		if i > 0 {
			io.WriteString(w, ", ")
		}
		m.PrintVal(w, "", false)
	}
	io.WriteString(w, " }")
}
