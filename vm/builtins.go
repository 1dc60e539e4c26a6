package vm

import "fmt"

// ---------------------------------------------------------------------------
// Builtins: the native function table
// ---------------------------------------------------------------------------

// defineBuiltins installs the native functions as globals. Lists are
// immutable; every builtin that "changes" a list returns a new one.
func (v *VM) defineBuiltins() {
	builtins := []*Builtin{
		{Name: "druk", Arity: 1, Fn: builtinDruk},
		{Name: "lengte", Arity: 1, Fn: builtinLengte},
		{Name: "kop", Arity: 1, Fn: builtinKop},
		{Name: "stert", Arity: 1, Fn: builtinStert},
		{Name: "leeg", Arity: 1, Fn: builtinLeeg},
		{Name: "voeg_by", Arity: 2, Fn: builtinVoegBy},
		{Name: "heg_aan", Arity: 2, Fn: builtinHegAan},
		{Name: "ketting", Arity: 2, Fn: builtinKetting},
		{Name: "omgekeer", Arity: 1, Fn: builtinOmgekeer},
		{Name: "kaart", Arity: 2, Fn: builtinKaart},
		{Name: "filter", Arity: 2, Fn: builtinFilter},
		{Name: "vou", Arity: 3, Fn: builtinVou},
		{Name: "vir_elk", Arity: 2, Fn: builtinVirElk},
	}
	for _, b := range builtins {
		v.globals[b.Name] = b
	}
}

// BuiltinNames lists the native functions; the LSP server keys completions
// on it.
func BuiltinNames() []string {
	return []string{
		"druk", "lengte", "kop", "stert", "leeg",
		"voeg_by", "heg_aan", "ketting", "omgekeer",
		"kaart", "filter", "vou", "vir_elk",
	}
}

func builtinDruk(v *VM, args []Value) (Value, error) {
	fmt.Fprintln(v.stdout, args[0].String())
	return Nil{}, nil
}

func builtinLengte(v *VM, args []Value) (Value, error) {
	switch a := args[0].(type) {
	case *List:
		return Int(len(a.Items)), nil
	case String:
		return Int(len([]rune(string(a)))), nil
	}
	return nil, runtimeErrorf(TypeError, "lengte() verwag 'n lys of string, nie 'n %s nie", args[0].TypeName())
}

func builtinKop(v *VM, args []Value) (Value, error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "kop() verwag 'n lys, nie 'n %s nie", args[0].TypeName())
	}
	if len(list.Items) == 0 {
		return nil, runtimeErrorf(IndexError, "kan nie kop van leë lys kry nie")
	}
	return list.Items[0], nil
}

func builtinStert(v *VM, args []Value) (Value, error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "stert() verwag 'n lys, nie 'n %s nie", args[0].TypeName())
	}
	if len(list.Items) == 0 {
		return nil, runtimeErrorf(IndexError, "kan nie stert van leë lys kry nie")
	}
	tail := make([]Value, len(list.Items)-1)
	copy(tail, list.Items[1:])
	return &List{Items: tail}, nil
}

func builtinLeeg(v *VM, args []Value) (Value, error) {
	switch a := args[0].(type) {
	case *List:
		return Bool(len(a.Items) == 0), nil
	case String:
		return Bool(len(a) == 0), nil
	}
	return nil, runtimeErrorf(TypeError, "leeg() verwag 'n lys of string, nie 'n %s nie", args[0].TypeName())
}

// builtinVoegBy prepends an element: voeg_by(x, lys).
func builtinVoegBy(v *VM, args []Value) (Value, error) {
	list, ok := args[1].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "voeg_by() verwag 'n lys as tweede argument, nie 'n %s nie", args[1].TypeName())
	}
	if err := v.checkListLen(len(list.Items) + 1); err != nil {
		return nil, err
	}
	items := make([]Value, 0, len(list.Items)+1)
	items = append(items, args[0])
	items = append(items, list.Items...)
	return &List{Items: items}, nil
}

// builtinHegAan appends an element: heg_aan(lys, x).
func builtinHegAan(v *VM, args []Value) (Value, error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "heg_aan() verwag 'n lys as eerste argument, nie 'n %s nie", args[0].TypeName())
	}
	if err := v.checkListLen(len(list.Items) + 1); err != nil {
		return nil, err
	}
	items := make([]Value, 0, len(list.Items)+1)
	items = append(items, list.Items...)
	items = append(items, args[1])
	return &List{Items: items}, nil
}

func builtinKetting(v *VM, args []Value) (Value, error) {
	a, aok := args[0].(*List)
	b, bok := args[1].(*List)
	if !aok || !bok {
		return nil, runtimeErrorf(TypeError, "ketting() verwag twee lyste, nie %s en %s nie", args[0].TypeName(), args[1].TypeName())
	}
	if err := v.checkListLen(len(a.Items) + len(b.Items)); err != nil {
		return nil, err
	}
	items := make([]Value, 0, len(a.Items)+len(b.Items))
	items = append(items, a.Items...)
	items = append(items, b.Items...)
	return &List{Items: items}, nil
}

func builtinOmgekeer(v *VM, args []Value) (Value, error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "omgekeer() verwag 'n lys, nie 'n %s nie", args[0].TypeName())
	}
	items := make([]Value, len(list.Items))
	for i, item := range list.Items {
		items[len(items)-1-i] = item
	}
	return &List{Items: items}, nil
}

func builtinKaart(v *VM, args []Value) (Value, error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "kaart() verwag 'n lys as eerste argument, nie 'n %s nie", args[0].TypeName())
	}
	items := make([]Value, len(list.Items))
	for i, item := range list.Items {
		result, err := v.CallValue(args[1], []Value{item})
		if err != nil {
			return nil, err
		}
		items[i] = result
	}
	return &List{Items: items}, nil
}

func builtinFilter(v *VM, args []Value) (Value, error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "filter() verwag 'n lys as eerste argument, nie 'n %s nie", args[0].TypeName())
	}
	var items []Value
	for _, item := range list.Items {
		keep, err := v.CallValue(args[1], []Value{item})
		if err != nil {
			return nil, err
		}
		if Truthy(keep) {
			items = append(items, item)
		}
	}
	return &List{Items: items}, nil
}

// builtinVou is a left fold: vou(lys, begin, fn) with fn(akkumulator, element).
func builtinVou(v *VM, args []Value) (Value, error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "vou() verwag 'n lys as eerste argument, nie 'n %s nie", args[0].TypeName())
	}
	acc := args[1]
	for _, item := range list.Items {
		next, err := v.CallValue(args[2], []Value{acc, item})
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func builtinVirElk(v *VM, args []Value) (Value, error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, runtimeErrorf(TypeError, "vir_elk() verwag 'n lys as eerste argument, nie 'n %s nie", args[0].TypeName())
	}
	for _, item := range list.Items {
		if _, err := v.CallValue(args[1], []Value{item}); err != nil {
			return nil, err
		}
	}
	return Nil{}, nil
}

func (v *VM) checkListLen(n int) error {
	if n > v.limits.ListLen {
		return runtimeErrorf(LimitError, "lys oorskry maksimum lengte %d", v.limits.ListLen)
	}
	return nil
}
