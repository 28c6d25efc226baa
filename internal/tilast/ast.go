// Package tilast defines the untyped parse tree that the front end
// (internal/tilparse) produces and the evaluator (internal/eval)
// consumes. Per spec §1 the core treats parsing/grammar as an external
// concern; this package is the stable contract boundary between the
// two — it carries no evaluation logic, only shape and source spans.
package tilast

import "github.com/robert-at-pretension-io/tilc/internal/ir"

// File is one parsed source file: a sequence of namespace blocks. A
// file with no explicit `namespace` block is treated as one implicit
// block at the empty path.
type File struct {
	Path       string
	Namespaces []NamespaceBlock
}

// NamespaceBlock groups declarations and imports under one namespace
// path (§3.1 Namespace, §6.1).
type NamespaceBlock struct {
	Path    string
	Imports []Import
	Decls   []Decl
	Span    ir.Span
}

// Import is the surface syntax for an ImportSpec (§3.1, §4.8).
type Import struct {
	From     string
	Wildcard bool
	Items    []ImportItem
	Prefix   string
	Span     ir.Span
}

// ImportItem is one selectively-imported symbol.
type ImportItem struct {
	Kind  DeclKind
	Name  string
	Alias string
	Span  ir.Span
}

// DeclKind tags a top-level declaration or import-item kind.
type DeclKind uint8

const (
	DeclType DeclKind = iota
	DeclStreamlet
	DeclInterface
	DeclImpl
)

// Decl is a tagged top-level declaration. Exactly one of the *Body
// fields is non-nil, matching Kind.
type Decl struct {
	Kind      DeclKind
	Name      string
	Doc       string
	Generics  []ParamDecl
	Domains   []string
	Type      *TypeExpr       // DeclType
	Streamlet *StreamletBody  // DeclStreamlet, DeclInterface
	Impl      *ImplBody       // DeclImpl (standalone implementation)
	Span      ir.Span
}

// ParamDecl is the surface syntax for a generic Parameter (§3.1).
type ParamDecl struct {
	Name       string
	Kind       string // "natural" | "positive" | "integer" | "dimensionality"
	Default    *ConstExprNode
	Constraint *PredicateNode
	Span       ir.Span
}

// TypeExpr is the surface syntax for a LogicalType: either a reference
// to a previously-declared/generic type (Ref, with optional Args for
// parametric application) or one of the structural constructors.
type TypeExpr struct {
	// Exactly one of the following is set.
	Ref      string       // reference by name (possibly namespaced, possibly a generic param)
	Args     []Arg        // arguments, if Ref names a parametric declaration
	Null     bool
	Bits     *ConstExprNode
	Fields   []FieldExpr // Group
	Variants []FieldExpr // Union
	Stream   *StreamExpr
	Span     ir.Span
}

// FieldExpr is one Group field or Union variant.
type FieldExpr struct {
	Name string
	Type TypeExpr
	Span ir.Span
}

// StreamExpr is the surface syntax for a Stream LogicalType; every
// field but Data is optional and falls back to the spec's defaults
// when omitted (§3.1).
type StreamExpr struct {
	Data           TypeExpr
	Throughput     *RationalLit
	Dimensionality *ConstExprNode
	Synchronicity  string // "Sync"|"Flatten"|"Desync"|"FlatDesync", "" = default
	Complexity     []uint32
	Direction      string // "Forward"|"Reverse", "" = default
	User           *TypeExpr
	Keep           *bool
	Span           ir.Span
}

// RationalLit is a literal throughput value, e.g. `2.0` or `3/2`.
type RationalLit struct {
	Num, Den int64
	Span     ir.Span
}

// Arg is one generic argument, positional or named.
type Arg struct {
	Name  string // "" if positional
	Value ConstExprNode
	Span  ir.Span
}

// ConstExprNode is the surface syntax for a ConstExpr (§3.1).
type ConstExprNode struct {
	Lit   *int64
	Ref   string // parameter reference
	Op    string // "+","-","*","/","%"
	LHS   *ConstExprNode
	RHS   *ConstExprNode
	Span  ir.Span
}

// PredicateNode is the surface syntax for a Predicate (§3.1).
type PredicateNode struct {
	Rel     string // "=","!=","<","<=",">",">="
	Value   *ConstExprNode
	OneOf   []ConstExprNode
	And     [2]*PredicateNode
	Or      [2]*PredicateNode
	Not     *PredicateNode
	Span    ir.Span
}

// StreamletBody is the surface syntax shared by `streamlet` and
// `interface` declarations (§4.6): a port list and, for streamlets
// only, an optional implementation.
type StreamletBody struct {
	AdoptFrom string // non-"" for `comp2 = comp1` adoption syntax
	Ports     []PortDecl
	Impl      *ImplBody // inline implementation, nil if none
	ImplRef   string    // non-"" names a standalone `impl` declaration instead
	Span      ir.Span
}

// PortDecl is the surface syntax for a Port.
type PortDecl struct {
	Name      string
	Direction string // "in" | "out"
	Stream    TypeExpr
	Domain    string // "" = use enclosing streamlet's default domain
	Doc       string
	Span      ir.Span
}

// ImplBody is the surface syntax for an Implementation: either
// Structural (Instances/Connections set) or Linked (Path set).
type ImplBody struct {
	Path        string // non-"" => Linked
	Ports       []PortDecl
	Instances   []InstanceDecl
	Connections []ConnectionDecl
	Span        ir.Span
}

// InstanceDecl is one `name = streamlet<generics>('domains)` instance
// statement.
type InstanceDecl struct {
	Name          string
	StreamletRef  string
	GenericArgs   []Arg
	DomainArgs    []DomainArg
	Span          ir.Span
}

// DomainArg is one domain-binding entry on an instance, positional
// (Name == "") or named (§4.5).
type DomainArg struct {
	Name   string // "" if positional
	Parent string
	Span   ir.Span
}

// ConnectionDecl is one `x -- y` statement.
type ConnectionDecl struct {
	A, B EndpointExpr
	Span ir.Span
}

// EndpointExpr is the surface syntax for an Endpoint: either a bare
// port name (parent-side) or `instance.port`.
type EndpointExpr struct {
	Instance string // "" => parent port
	Port     string
	Span     ir.Span
}
