package dap

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Scalar is a Variable holding a single value.
type Scalar interface {
	Variable

	// Get returns the value as its natural Go type.
	Get() any

	// Set assigns x, converting numeric and string inputs when the
	// conversion is lossless.
	Set(x any) error
}

// XDR framing: every integer narrower than 32 bits still occupies 4 bytes.
const xdrUnit = 4

func readFull(r io.Reader, buf []byte, sink ProgressSink) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	report(sink, len(buf))
	return nil
}

func readUint32(r io.Reader, sink ProgressSink) (uint32, error) {
	var buf [xdrUnit]byte
	if err := readFull(r, buf[:], sink); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeUint32(w io.Writer, u uint32) error {
	var buf [xdrUnit]byte
	binary.BigEndian.PutUint32(buf[:], u)
	_, err := w.Write(buf[:])
	return err
}

// Byte is an unsigned 8-bit integer.
type Byte struct {
	base
	Value uint8
}

func NewByte(name string, v uint8) *Byte { return &Byte{base: base{name: name}, Value: v} }

func (*Byte) TypeName() string { return "Byte" }

func (v *Byte) Clone() Variable { return NewByte(v.name, v.Value) }

func (v *Byte) Decode(_ context.Context, r io.Reader, _ *Peer, sink ProgressSink) error {
	u, err := readUint32(r, sink)
	if err != nil {
		return err
	}
	v.Value = uint8(u)
	return nil
}

func (v *Byte) Encode(w io.Writer) error { return writeUint32(w, uint32(v.Value)) }

func (v *Byte) Get() any { return v.Value }

func (v *Byte) Set(x any) error {
	n, err := toInt64(x, 0, math.MaxUint8)
	if err != nil {
		return fmt.Errorf("dap: %s %q: %w", v.TypeName(), v.name, err)
	}
	v.Value = uint8(n)
	return nil
}

func (v *Byte) PrintDecl(w io.Writer, indent string, semi bool) { printDecl(w, v, indent, semi) }

func (v *Byte) PrintVal(w io.Writer, indent string, decl bool) {
	printScalarVal(w, v, indent, decl, strconv.FormatUint(uint64(v.Value), 10))
}

// Int16 is a signed 16-bit integer.
type Int16 struct {
	base
	Value int16
}

func NewInt16(name string, v int16) *Int16 { return &Int16{base: base{name: name}, Value: v} }

func (*Int16) TypeName() string { return "Int16" }

func (v *Int16) Clone() Variable { return NewInt16(v.name, v.Value) }

func (v *Int16) Decode(_ context.Context, r io.Reader, _ *Peer, sink ProgressSink) error {
	u, err := readUint32(r, sink)
	if err != nil {
		return err
	}
	v.Value = int16(int32(u))
	return nil
}

func (v *Int16) Encode(w io.Writer) error { return writeUint32(w, uint32(int32(v.Value))) }

func (v *Int16) Get() any { return v.Value }

func (v *Int16) Set(x any) error {
	n, err := toInt64(x, math.MinInt16, math.MaxInt16)
	if err != nil {
		return fmt.Errorf("dap: %s %q: %w", v.TypeName(), v.name, err)
	}
	v.Value = int16(n)
	return nil
}

func (v *Int16) PrintDecl(w io.Writer, indent string, semi bool) { printDecl(w, v, indent, semi) }

func (v *Int16) PrintVal(w io.Writer, indent string, decl bool) {
	printScalarVal(w, v, indent, decl, strconv.FormatInt(int64(v.Value), 10))
}

// UInt16 is an unsigned 16-bit integer.
type UInt16 struct {
	base
	Value uint16
}

func NewUInt16(name string, v uint16) *UInt16 { return &UInt16{base: base{name: name}, Value: v} }

func (*UInt16) TypeName() string { return "UInt16" }

func (v *UInt16) Clone() Variable { return NewUInt16(v.name, v.Value) }

func (v *UInt16) Decode(_ context.Context, r io.Reader, _ *Peer, sink ProgressSink) error {
	u, err := readUint32(r, sink)
	if err != nil {
		return err
	}
	v.Value = uint16(u)
	return nil
}

func (v *UInt16) Encode(w io.Writer) error { return writeUint32(w, uint32(v.Value)) }

func (v *UInt16) Get() any { return v.Value }

func (v *UInt16) Set(x any) error {
	n, err := toInt64(x, 0, math.MaxUint16)
	if err != nil {
		return fmt.Errorf("dap: %s %q: %w", v.TypeName(), v.name, err)
	}
	v.Value = uint16(n)
	return nil
}

func (v *UInt16) PrintDecl(w io.Writer, indent string, semi bool) { printDecl(w, v, indent, semi) }

func (v *UInt16) PrintVal(w io.Writer, indent string, decl bool) {
	printScalarVal(w, v, indent, decl, strconv.FormatUint(uint64(v.Value), 10))
}

// Int32 is a signed 32-bit integer.
type Int32 struct {
	base
	Value int32
}

func NewInt32(name string, v int32) *Int32 { return &Int32{base: base{name: name}, Value: v} }

func (*Int32) TypeName() string { return "Int32" }

func (v *Int32) Clone() Variable { return NewInt32(v.name, v.Value) }

func (v *Int32) Decode(_ context.Context, r io.Reader, _ *Peer, sink ProgressSink) error {
	u, err := readUint32(r, sink)
	if err != nil {
		return err
	}
	v.Value = int32(u)
	return nil
}

func (v *Int32) Encode(w io.Writer) error { return writeUint32(w, uint32(v.Value)) }

func (v *Int32) Get() any { return v.Value }

func (v *Int32) Set(x any) error {
	n, err := toInt64(x, math.MinInt32, math.MaxInt32)
	if err != nil {
		return fmt.Errorf("dap: %s %q: %w", v.TypeName(), v.name, err)
	}
	v.Value = int32(n)
	return nil
}

func (v *Int32) PrintDecl(w io.Writer, indent string, semi bool) { printDecl(w, v, indent, semi) }

func (v *Int32) PrintVal(w io.Writer, indent string, decl bool) {
	printScalarVal(w, v, indent, decl, strconv.FormatInt(int64(v.Value), 10))
}

// UInt32 is an unsigned 32-bit integer.
type UInt32 struct {
	base
	Value uint32
}

func NewUInt32(name string, v uint32) *UInt32 { return &UInt32{base: base{name: name}, Value: v} }

func (*UInt32) TypeName() string { return "UInt32" }

func (v *UInt32) Clone() Variable { return NewUInt32(v.name, v.Value) }

func (v *UInt32) Decode(_ context.Context, r io.Reader, _ *Peer, sink ProgressSink) error {
	u, err := readUint32(r, sink)
	if err != nil {
		return err
	}
	v.Value = u
	return nil
}

func (v *UInt32) Encode(w io.Writer) error { return writeUint32(w, v.Value) }

func (v *UInt32) Get() any { return v.Value }

func (v *UInt32) Set(x any) error {
	n, err := toInt64(x, 0, math.MaxUint32)
	if err != nil {
		return fmt.Errorf("dap: %s %q: %w", v.TypeName(), v.name, err)
	}
	v.Value = uint32(n)
	return nil
}

func (v *UInt32) PrintDecl(w io.Writer, indent string, semi bool) { printDecl(w, v, indent, semi) }

func (v *UInt32) PrintVal(w io.Writer, indent string, decl bool) {
	printScalarVal(w, v, indent, decl, strconv.FormatUint(uint64(v.Value), 10))
}

// Float32 is an IEEE 754 single precision value.
type Float32 struct {
	base
	Value float32
}

func NewFloat32(name string, v float32) *Float32 { return &Float32{base: base{name: name}, Value: v} }

func (*Float32) TypeName() string { return "Float32" }

func (v *Float32) Clone() Variable { return NewFloat32(v.name, v.Value) }

func (v *Float32) Decode(_ context.Context, r io.Reader, _ *Peer, sink ProgressSink) error {
	u, err := readUint32(r, sink)
	if err != nil {
		return err
	}
	v.Value = math.Float32frombits(u)
	return nil
}

func (v *Float32) Encode(w io.Writer) error { return writeUint32(w, math.Float32bits(v.Value)) }

func (v *Float32) Get() any { return v.Value }

func (v *Float32) Set(x any) error {
	f, err := toFloat64(x)
	if err != nil {
		return fmt.Errorf("dap: %s %q: %w", v.TypeName(), v.name, err)
	}
	v.Value = float32(f)
	return nil
}

func (v *Float32) PrintDecl(w io.Writer, indent string, semi bool) { printDecl(w, v, indent, semi) }

func (v *Float32) PrintVal(w io.Writer, indent string, decl bool) {
	printScalarVal(w, v, indent, decl, strconv.FormatFloat(float64(v.Value), 'g', -1, 32))
}

// Float64 is an IEEE 754 double precision value.
type Float64 struct {
	base
	Value float64
}

func NewFloat64(name string, v float64) *Float64 { return &Float64{base: base{name: name}, Value: v} }

func (*Float64) TypeName() string { return "Float64" }

func (v *Float64) Clone() Variable { return NewFloat64(v.name, v.Value) }

func (v *Float64) Decode(_ context.Context, r io.Reader, _ *Peer, sink ProgressSink) error {
	var buf [8]byte
	if err := readFull(r, buf[:], sink); err != nil {
		return err
	}
	v.Value = math.Float64frombits(binary.BigEndian.Uint64(buf[:]))
	return nil
}

func (v *Float64) Encode(w io.Writer) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v.Value))
	_, err := w.Write(buf[:])
	return err
}

func (v *Float64) Get() any { return v.Value }

func (v *Float64) Set(x any) error {
	f, err := toFloat64(x)
	if err != nil {
		return fmt.Errorf("dap: %s %q: %w", v.TypeName(), v.name, err)
	}
	v.Value = f
	return nil
}

func (v *Float64) PrintDecl(w io.Writer, indent string, semi bool) { printDecl(w, v, indent, semi) }

func (v *Float64) PrintVal(w io.Writer, indent string, decl bool) {
	printScalarVal(w, v, indent, decl, strconv.FormatFloat(v.Value, 'g', -1, 64))
}

// String is a counted byte string padded to a 4-byte boundary on the wire.
type String struct {
	base
	Value string
}

// MaxStringLen bounds the length prefix accepted on decode.
const MaxStringLen = 1 << 24

func NewString(name string, v string) *String { return &String{base: base{name: name}, Value: v} }

func (*String) TypeName() string { return "String" }

func (v *String) Clone() Variable { return NewString(v.name, v.Value) }

func (v *String) Decode(_ context.Context, r io.Reader, _ *Peer, sink ProgressSink) error {
	n, err := readUint32(r, sink)
	if err != nil {
		return err
	}
	if n > MaxStringLen {
		return fmt.Errorf("dap: String %q: length %d exceeds limit %d", v.name, n, MaxStringLen)
	}
	buf := make([]byte, padded(int(n)))
	if err := readFull(r, buf, sink); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	v.Value = string(buf[:n])
	return nil
}

func (v *String) Encode(w io.Writer) error {
	if err := writeUint32(w, uint32(len(v.Value))); err != nil {
		return err
	}
	buf := make([]byte, padded(len(v.Value)))
	copy(buf, v.Value)
	_, err := w.Write(buf)
	return err
}

func (v *String) Get() any { return v.Value }

func (v *String) Set(x any) error {
	switch s := x.(type) {
	case string:
		v.Value = s
	case fmt.Stringer:
		v.Value = s.String()
	default:
		return fmt.Errorf("dap: String %q: cannot assign %T", v.name, x)
	}
	return nil
}

func (v *String) PrintDecl(w io.Writer, indent string, semi bool) { printDecl(w, v, indent, semi) }

func (v *String) PrintVal(w io.Writer, indent string, decl bool) {
	printScalarVal(w, v, indent, decl, strconv.Quote(v.Value))
}

func padded(n int) int {
	return (n + xdrUnit - 1) / xdrUnit * xdrUnit
}

func printScalarVal(w io.Writer, v Variable, indent string, decl bool, text string) {
	if !decl {
		io.WriteString(w, text)
		return
	}
	printDecl(w, v, indent, false)
	fmt.Fprintf(w, " = %s;\n", text)
}

// toInt64 converts x to an integer within [lo, hi].
func toInt64(x any, lo, hi int64) (int64, error) {
	var n int64
	switch v := x.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d out of range [%d, %d]", v, lo, hi)
		}
		n = int64(v)
	case float64:
		if v != math.Trunc(v) || math.IsNaN(v) {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		if v < float64(lo) || v > float64(hi) {
			return 0, fmt.Errorf("value %v out of range [%d, %d]", v, lo, hi)
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not an integer", v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("cannot assign %T", x)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("value %d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func toFloat64(x any) (float64, error) {
	switch v := x.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot assign %T", x)
	}
}
