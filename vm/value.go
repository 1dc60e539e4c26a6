package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Value: the tagged runtime value shared by compiler constants and VM operands
// ---------------------------------------------------------------------------

// Value is the interface implemented by all runtime values. Containers
// (lists, strings, closures, constructor instances) are shared by handle;
// copying a Value never copies contents.
type Value interface {
	value() // marker method
	// TypeName returns the Afrikaans type name used in error messages.
	TypeName() string
	// String renders the value the way druk prints it.
	String() string
}

// Nil is the nil value.
type Nil struct{}

func (Nil) value()           {}
func (Nil) TypeName() string { return "nil" }
func (Nil) String() string   { return "nil" }

// Bool is a boolean value.
type Bool bool

func (Bool) value()           {}
func (Bool) TypeName() string { return "boolean" }
func (b Bool) String() string {
	if b {
		return "waar"
	}
	return "vals"
}

// Int is a 64-bit integer value.
type Int int64

func (Int) value()           {}
func (Int) TypeName() string { return "heelgetal" }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Float is a 64-bit floating-point value.
type Float float64

func (Float) value()           {}
func (Float) TypeName() string { return "getal" }
func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// String is a string value. The underlying Go string header gives the
// shared-ownership copy semantics for free.
type String string

func (String) value()           {}
func (String) TypeName() string { return "string" }
func (s String) String() string { return string(s) }

// List is an immutable sequence of values, shared by pointer.
type List struct {
	Items []Value
}

func (*List) value()           {}
func (*List) TypeName() string { return "lys" }

func (l *List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, item := range l.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// UpvalueDesc describes one captured variable of a compiled function: the
// slot (or upvalue index) in the immediately enclosing scope, and whether it
// is a local there.
type UpvalueDesc struct {
	Index   int
	IsLocal bool
}

// Function is a compiled function: its chunk plus capture descriptors. It
// appears in constant pools; the VM never calls one directly without first
// wrapping it in a Closure.
type Function struct {
	Name     string
	Arity    int
	Chunk    *Chunk
	Upvalues []UpvalueDesc
}

func (*Function) value()           {}
func (*Function) TypeName() string { return "funksie" }

func (f *Function) String() string {
	if f.Name == "" {
		return "<fn>"
	}
	return "<fn " + f.Name + ">"
}

// Upvalue is a capture cell: open while its stack slot is live, closed (owns
// the value) afterwards.
type Upvalue struct {
	Index  int   // stack index while open
	Closed bool
	Value  Value // valid once closed
}

// Closure pairs a function with its captured upvalue cells.
type Closure struct {
	Fn       *Function
	Upvalues []*Upvalue
}

func (*Closure) value()           {}
func (*Closure) TypeName() string { return "funksie" }
func (c *Closure) String() string { return c.Fn.String() }

// BuiltinFn is the signature of a native function. Builtins that call back
// into the language (kaart, filter, vou, vir_elk) use the VM handle.
type BuiltinFn func(v *VM, args []Value) (Value, error)

// Builtin is a native function value.
type Builtin struct {
	Name  string
	Arity int
	Fn    BuiltinFn
}

func (*Builtin) value()           {}
func (*Builtin) TypeName() string { return "funksie" }
func (b *Builtin) String() string { return "<ingeboude fn " + b.Name + ">" }

// Constructor is a variant of an algebraic data type. With Fields nil it is
// the callable constructor itself (as bound by tipe); applying it yields a
// new Constructor carrying the field values. A zero-arity constructor is its
// own instance.
type Constructor struct {
	Type    string
	Variant   string
	Arity     int
	Fields    []Value
}

func (*Constructor) value()           {}
func (c *Constructor) TypeName() string { return c.Type }

func (c *Constructor) String() string {
	if len(c.Fields) == 0 {
		return c.Variant
	}
	var sb strings.Builder
	sb.WriteString(c.Variant)
	sb.WriteByte('(')
	for i, f := range c.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// ---------------------------------------------------------------------------
// Value operations
// ---------------------------------------------------------------------------

// Truthy reports whether a value counts as true: everything except nil and
// vals.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(t)
	default:
		return true
	}
}

// numeric returns the float64 view of an Int or Float.
func numeric(v Value) (float64, bool) {
	switch t := v.(type) {
	case Int:
		return float64(t), true
	case Float:
		return float64(t), true
	}
	return 0, false
}

// Equal implements structural equality for primitives, lists and
// constructors, numeric equality across Int and Float, and reference
// equality for functions, closures and builtins.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		if y, ok := b.(Int); ok {
			return x == y
		}
		if y, ok := b.(Float); ok {
			return float64(x) == float64(y)
		}
		return false
	case Float:
		if y, ok := b.(Float); ok {
			return x == y
		}
		if y, ok := b.(Int); ok {
			return float64(x) == float64(y)
		}
		return false
	case String:
		y, ok := b.(String)
		return ok && x == y
	case *List:
		y, ok := b.(*List)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case *Function:
		y, ok := b.(*Function)
		return ok && x == y
	case *Closure:
		y, ok := b.(*Closure)
		return ok && x == y
	case *Builtin:
		y, ok := b.(*Builtin)
		return ok && x == y
	case *Constructor:
		y, ok := b.(*Constructor)
		if !ok || x.Type != y.Type || x.Variant != y.Variant || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if !Equal(x.Fields[i], y.Fields[i]) {
				return false
			}
		}
		return true
	}
	return false
}
