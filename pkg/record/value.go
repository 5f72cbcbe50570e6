package record

// Value is the result of resolving a logical field against an upstream
// record. A zero Value is absent.
type Value struct {
	s  string
	ok bool
}

// Some returns a present Value. An empty string is treated as absent.
func Some(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{s: s, ok: true}
}

// None returns an absent Value.
func None() Value {
	return Value{}
}

// Get returns the resolved string and whether it was present.
func (v Value) Get() (string, bool) {
	return v.s, v.ok
}

// Present reports whether the value was resolved.
func (v Value) Present() bool {
	return v.ok
}

// String returns the resolved string, or "" when absent.
// Use this only where a value leaves the reconciler (row assembly).
func (v Value) String() string {
	return v.s
}

// Or returns v when present, otherwise the first present alternative.
func (v Value) Or(alternatives ...Value) Value {
	if v.ok {
		return v
	}
	for _, alt := range alternatives {
		if alt.ok {
			return alt
		}
	}
	return Value{}
}

// First returns the first present value, or an absent Value.
func First(values ...Value) Value {
	return Value{}.Or(values...)
}
