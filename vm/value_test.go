package vm

import "testing"

func TestValueStrings(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{Nil{}, "nil"},
		{Bool(true), "waar"},
		{Bool(false), "vals"},
		{Int(42), "42"},
		{Int(-7), "-7"},
		{Float(3.14), "3.14"},
		{Float(7), "7"},
		{String("hallo"), "hallo"},
		{&List{Items: []Value{Int(1), Int(4), Int(9)}}, "[1, 4, 9]"},
		{&List{}, "[]"},
		{&Function{Name: "fakulteit"}, "<fn fakulteit>"},
		{&Function{}, "<fn>"},
		{&Builtin{Name: "kaart"}, "<ingeboude fn kaart>"},
		{&Constructor{Type: "Opsie", Variant: "Niks"}, "Niks"},
		{&Constructor{Type: "Opsie", Variant: "Sommige", Arity: 1, Fields: []Value{Int(42)}}, "Sommige(42)"},
	}

	for _, tc := range tests {
		if got := tc.value.String(); got != tc.want {
			t.Errorf("%T.String() = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	falsy := []Value{Nil{}, Bool(false)}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("Truthy(%v) = true, want false", v)
		}
	}

	truthy := []Value{Bool(true), Int(0), Float(0), String(""), &List{}, &Function{}}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("Truthy(%v) = false, want true", v)
		}
	}
}

func TestEqualStructural(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{Int(1), Int(1), true},
		{Int(1), Int(2), false},
		{Int(1), Float(1), true}, // numeric cross-equality
		{Float(2.5), Float(2.5), true},
		{String("a"), String("a"), true},
		{String("a"), String("b"), false},
		{Nil{}, Nil{}, true},
		{Nil{}, Bool(false), false},
		{Bool(true), Int(1), false},
		{
			&List{Items: []Value{Int(1), Int(2)}},
			&List{Items: []Value{Int(1), Int(2)}},
			true,
		},
		{
			&List{Items: []Value{Int(1)}},
			&List{Items: []Value{Int(1), Int(2)}},
			false,
		},
		{
			&Constructor{Type: "Opsie", Variant: "Sommige", Arity: 1, Fields: []Value{Int(1)}},
			&Constructor{Type: "Opsie", Variant: "Sommige", Arity: 1, Fields: []Value{Int(1)}},
			true,
		},
		{
			&Constructor{Type: "Opsie", Variant: "Sommige", Arity: 1, Fields: []Value{Int(1)}},
			&Constructor{Type: "Opsie", Variant: "Sommige", Arity: 1, Fields: []Value{Int(2)}},
			false,
		},
		{
			&Constructor{Type: "Opsie", Variant: "Niks"},
			&Constructor{Type: "Opsie", Variant: "Sommige"},
			false,
		},
	}

	for _, tc := range tests {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Errorf("Equal(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestEqualFunctionsByReference(t *testing.T) {
	f1 := &Function{Name: "f"}
	f2 := &Function{Name: "f"}
	if !Equal(f1, f1) {
		t.Error("function not equal to itself")
	}
	if Equal(f1, f2) {
		t.Error("distinct functions compare equal")
	}

	c1 := &Closure{Fn: f1}
	c2 := &Closure{Fn: f1}
	if Equal(c1, c2) {
		t.Error("distinct closures over the same function compare equal")
	}
}
