package eval

import (
	"fmt"
	"math/big"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
	"github.com/robert-at-pretension-io/tilc/internal/tilast"
)

// bindGenericArgs binds args (positional, then named — §4.4) against
// params, evaluating each supplied argument expression under
// callerScope and each default under the callee's own
// partially-built scope (so later defaults may reference earlier
// parameters of the same list). The returned Scope holds this
// declaration's own parameters.
//
// When allowFree is true and a parameter receives neither an argument
// nor has a default, it is left unbound rather than rejected — this is
// the top-level "apply no arguments" case (§4.9: a streamlet's own
// free generic parameters stay symbolic until something actually
// instantiates it). Any later attempt to concretely evaluate an
// expression that reads such a name surfaces as an ordinary
// NameUnresolved diagnostic against that one declaration, not a crash
// of the whole compilation. When allowFree is false — every nested
// instance application — a parameter with no argument and no default
// is a genuine ArgumentArity error, since nothing downstream can ever
// supply it.
func bindGenericArgs(params []tilast.ParamDecl, args []tilast.Arg, callerScope *Scope, allowFree bool) (*Scope, error) {
	supplied := make(map[string]*tilast.Arg, len(args))
	positional := 0
	sawNamed := false
	for i := range args {
		a := &args[i]
		if a.Name == "" {
			if sawNamed {
				return nil, &ir.InvariantError{Kind: ir.ArgumentArity, Message: "positional argument follows a named argument"}
			}
			if positional >= len(params) {
				return nil, &ir.InvariantError{Kind: ir.ArgumentArity, Message: fmt.Sprintf("too many positional arguments (expected at most %d)", len(params))}
			}
			supplied[params[positional].Name] = a
			positional++
			continue
		}
		sawNamed = true
		if _, dup := supplied[a.Name]; dup {
			return nil, &ir.InvariantError{Kind: ir.ArgumentArity, Message: fmt.Sprintf("duplicate argument %q", a.Name)}
		}
		found := false
		for _, p := range params {
			if p.Name == a.Name {
				found = true
				break
			}
		}
		if !found {
			return nil, &ir.InvariantError{Kind: ir.ArgumentArity, Message: fmt.Sprintf("unknown parameter %q", a.Name)}
		}
		supplied[a.Name] = a
	}

	out := NewScope()
	for _, p := range params {
		kind, err := paramKindOf(p.Kind)
		if err != nil {
			return nil, err
		}
		var v *big.Int
		if a, ok := supplied[p.Name]; ok {
			v, err = evalConstExpr(&a.Value, callerScope)
			if err != nil {
				return nil, err
			}
		} else if p.Default == nil && allowFree {
			continue
		} else {
			v, err = evalConstExpr(p.Default, out)
			if err != nil {
				return nil, err
			}
		}
		if !kind.InRange(v) {
			return nil, &ir.InvariantError{Kind: ir.ArgumentKind, Message: fmt.Sprintf("parameter %q = %s violates its kind (%s)", p.Name, v, p.Kind)}
		}
		if p.Constraint != nil {
			ok, err := evalPredicate(p.Constraint, v, out)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &ir.InvariantError{Kind: ir.ConstraintViolation, Message: fmt.Sprintf("parameter %q = %s violates its constraint", p.Name, v)}
			}
		}
		out.Bind(p.Name, v)
	}
	return out, nil
}

// bindDomainArgs resolves a child streamlet's declared domain names
// against the DomainArg list of an instance declaration: positional
// first, then named, named must not precede positional (§4.5,
// DomainReorder), and any child domain left unassigned inherits the
// parent's DefaultDomain only when the child declares no domain list
// at all; otherwise it is DomainUnassigned.
func bindDomainArgs(childDomains []ir.DomainName, args []tilast.DomainArg) (*ir.DomainBinding, error) {
	b := ir.NewDomainBinding()
	positional := 0
	sawNamed := false
	for _, a := range args {
		if a.Name == "" {
			if sawNamed {
				return nil, &ir.InvariantError{Kind: ir.DomainReorder, Message: "positional domain argument follows a named one"}
			}
			if positional >= len(childDomains) {
				return nil, &ir.InvariantError{Kind: ir.ArgumentArity, Message: "too many positional domain arguments"}
			}
			b.ChildToParent[childDomains[positional]] = ir.DomainName(a.Parent)
			positional++
			continue
		}
		sawNamed = true
		b.ChildToParent[ir.DomainName(a.Name)] = ir.DomainName(a.Parent)
	}
	if len(childDomains) == 0 {
		return b, nil
	}
	for _, d := range childDomains {
		if _, ok := b.ChildToParent[d]; !ok {
			return nil, &ir.InvariantError{Kind: ir.DomainUnassigned, Message: fmt.Sprintf("domain %q has no binding", d)}
		}
	}
	return b, nil
}
