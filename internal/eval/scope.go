package eval

import "math/big"

// Scope holds the concrete generic parameter bindings visible while
// evaluating one declaration application. A name present here always
// maps to a concrete integer; a name absent is either not one of the
// enclosing declaration's parameters, or is one of its own free
// parameters left symbolic because nothing has instantiated it yet
// (§4.9) — the two cases are indistinguishable from Scope alone, which
// is exactly why a lookup miss against a free parameter surfaces as an
// ordinary NameUnresolved diagnostic rather than a panic.
type Scope struct {
	values map[string]*big.Int
}

// NewScope creates an empty scope.
func NewScope() *Scope { return &Scope{values: make(map[string]*big.Int)} }

// Bind records name = v, returning the same Scope for chaining.
func (s *Scope) Bind(name string, v *big.Int) *Scope {
	s.values[name] = v
	return s
}

// Lookup returns the bound value for name, if any.
func (s *Scope) Lookup(name string) (*big.Int, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Env exposes the scope as the map[string]*big.Int the ir package's
// ConstExpr/Predicate evaluators expect.
func (s *Scope) Env() map[string]*big.Int { return s.values }
