package eval

import (
	"fmt"
	"math/big"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
	"github.com/robert-at-pretension-io/tilc/internal/tilast"
)

// evalConstExpr reduces a surface ConstExprNode to a concrete integer
// under scope. A reference that scope does not bind is reported as
// NameUnresolved.
func evalConstExpr(n *tilast.ConstExprNode, scope *Scope) (*big.Int, error) {
	if n == nil {
		return nil, &ir.InvariantError{Kind: ir.ArgumentArity, Message: "generic parameter has no default value and no argument was supplied"}
	}
	switch {
	case n.Lit != nil:
		return big.NewInt(*n.Lit), nil
	case n.Ref != "":
		v, ok := scope.Lookup(n.Ref)
		if !ok {
			return nil, &ir.InvariantError{Kind: ir.NameUnresolved, Message: fmt.Sprintf("unbound reference %q in constant expression", n.Ref)}
		}
		return new(big.Int).Set(v), nil
	case n.Op != "":
		lhs, err := evalConstExpr(n.LHS, scope)
		if err != nil {
			return nil, err
		}
		rhs, err := evalConstExpr(n.RHS, scope)
		if err != nil {
			return nil, err
		}
		out := new(big.Int)
		switch n.Op {
		case "+":
			out.Add(lhs, rhs)
		case "-":
			out.Sub(lhs, rhs)
		case "*":
			out.Mul(lhs, rhs)
		case "/":
			if rhs.Sign() == 0 {
				return nil, &ir.InvariantError{Kind: ir.DivisionByZero, Message: "division by zero"}
			}
			out.Quo(lhs, rhs)
		case "%":
			if rhs.Sign() == 0 {
				return nil, &ir.InvariantError{Kind: ir.DivisionByZero, Message: "modulo by zero"}
			}
			out.Rem(lhs, rhs)
		default:
			return nil, fmt.Errorf("unknown operator %q", n.Op)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("empty constant expression")
	}
}

// evalPredicate evaluates a surface PredicateNode directly against
// subject under scope; no ir.Predicate is built.
func evalPredicate(n *tilast.PredicateNode, subject *big.Int, scope *Scope) (bool, error) {
	if n == nil {
		return true, nil
	}
	switch {
	case n.Rel != "":
		v, err := evalConstExpr(n.Value, scope)
		if err != nil {
			return false, err
		}
		cmp := subject.Cmp(v)
		switch n.Rel {
		case "=":
			return cmp == 0, nil
		case "!=":
			return cmp != 0, nil
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		default:
			return false, fmt.Errorf("unknown relational operator %q", n.Rel)
		}
	case len(n.OneOf) > 0:
		for _, c := range n.OneOf {
			v, err := evalConstExpr(&c, scope)
			if err != nil {
				return false, err
			}
			if subject.Cmp(v) == 0 {
				return true, nil
			}
		}
		return false, nil
	case n.And[0] != nil:
		l, err := evalPredicate(n.And[0], subject, scope)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return evalPredicate(n.And[1], subject, scope)
	case n.Or[0] != nil:
		l, err := evalPredicate(n.Or[0], subject, scope)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalPredicate(n.Or[1], subject, scope)
	case n.Not != nil:
		v, err := evalPredicate(n.Not, subject, scope)
		if err != nil {
			return false, err
		}
		return !v, nil
	default:
		return true, nil
	}
}

func paramKindOf(s string) (ir.ParamKind, error) {
	switch s {
	case "natural":
		return ir.Natural, nil
	case "positive":
		return ir.Positive, nil
	case "integer":
		return ir.Integer, nil
	case "dimensionality":
		return ir.Dimensionality, nil
	default:
		return 0, fmt.Errorf("unknown parameter kind %q", s)
	}
}

func synchronicityOf(s string) ir.Synchronicity {
	switch s {
	case "Flatten":
		return ir.Flatten
	case "Desync":
		return ir.Desync
	case "FlatDesync":
		return ir.FlatDesync
	default:
		return ir.Sync
	}
}

func directionOf(s string) ir.Direction {
	if s == "Reverse" {
		return ir.Reverse
	}
	return ir.Forward
}

// toConstExpr mirrors a surface ConstExprNode into the symbolic
// ir.ConstExpr AST, keeping every ParamRef free rather than reducing
// it — this is the declared-parameter shape an ir.Streamlet's own
// Generics list carries (§3.1), as opposed to the concrete *big.Int
// bindGenericArgs produces once a caller actually applies the
// streamlet to arguments.
func toConstExpr(n *tilast.ConstExprNode) ir.ConstExpr {
	if n == nil {
		return ir.ConstExpr{}
	}
	switch {
	case n.Lit != nil:
		return ir.Lit(*n.Lit)
	case n.Ref != "":
		return ir.ParamRef(n.Ref)
	case n.Op != "":
		op := map[string]ir.ExprOp{"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv, "%": ir.OpMod}[n.Op]
		return ir.BinOp(op, toConstExpr(n.LHS), toConstExpr(n.RHS))
	default:
		return ir.ConstExpr{}
	}
}

// toPredicate mirrors a surface PredicateNode into the symbolic
// ir.Predicate AST (see toConstExpr).
func toPredicate(n *tilast.PredicateNode) *ir.Predicate {
	if n == nil {
		return nil
	}
	switch {
	case n.Rel != "":
		rel := map[string]ir.RelOp{"=": ir.RelEq, "!=": ir.RelNe, "<": ir.RelLt, "<=": ir.RelLe, ">": ir.RelGt, ">=": ir.RelGe}[n.Rel]
		return &ir.Predicate{Kind: ir.PredRelational, Rel: rel, Operand: toConstExpr(n.Value)}
	case len(n.OneOf) > 0:
		choices := make([]ir.ConstExpr, len(n.OneOf))
		for i := range n.OneOf {
			choices[i] = toConstExpr(&n.OneOf[i])
		}
		return &ir.Predicate{Kind: ir.PredOneOf, Choices: choices}
	case n.And[0] != nil:
		return &ir.Predicate{Kind: ir.PredAnd, LHS: toPredicate(n.And[0]), RHS: toPredicate(n.And[1])}
	case n.Or[0] != nil:
		return &ir.Predicate{Kind: ir.PredOr, LHS: toPredicate(n.Or[0]), RHS: toPredicate(n.Or[1])}
	case n.Not != nil:
		return &ir.Predicate{Kind: ir.PredNot, Inner: toPredicate(n.Not)}
	default:
		return nil
	}
}

// toParameters mirrors a surface generics list into the declared
// ir.Parameter form an ir.Streamlet carries as its own Generics field
// (§3.1), independent of whatever concrete values this particular
// reduction happens to bind them to.
func toParameters(decls []tilast.ParamDecl) ([]ir.Parameter, error) {
	if len(decls) == 0 {
		return nil, nil
	}
	out := make([]ir.Parameter, len(decls))
	for i, p := range decls {
		kind, err := paramKindOf(p.Kind)
		if err != nil {
			return nil, err
		}
		out[i] = ir.Parameter{Name: p.Name, Kind: kind, Constraint: toPredicate(p.Constraint)}
		if p.Default != nil {
			out[i].Default = toConstExpr(p.Default)
		}
	}
	return out, nil
}
