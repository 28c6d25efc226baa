package ir

import "fmt"

// ErrorKind enumerates the error kinds of spec §7. LexicalForm is
// reported only by the front end (internal/tilparse); every other kind
// originates from the core packages.
type ErrorKind string

const (
	LexicalForm              ErrorKind = "LexicalForm"
	NameUnresolved            ErrorKind = "NameUnresolved"
	NameAmbiguous             ErrorKind = "NameAmbiguous"
	NameKindMismatch          ErrorKind = "NameKindMismatch"
	TypeInvariant             ErrorKind = "TypeInvariant"
	ArgumentArity             ErrorKind = "ArgumentArity"
	ArgumentKind              ErrorKind = "ArgumentKind"
	ConstraintViolation       ErrorKind = "ConstraintViolation"
	DivisionByZero            ErrorKind = "DivisionByZero"
	DomainUnassigned          ErrorKind = "DomainUnassigned"
	DomainReorder             ErrorKind = "DomainReorder"
	DomainMismatch            ErrorKind = "DomainMismatch"
	CycleDetected             ErrorKind = "CycleDetected"
	ConnectionDriveMultiplicity ErrorKind = "ConnectionDriveMultiplicity"
	ConnectionDirection       ErrorKind = "ConnectionDirection"
	ConnectionTypeMismatch    ErrorKind = "ConnectionTypeMismatch"
	ConnectionDomainMismatch  ErrorKind = "ConnectionDomainMismatch"
	EndpointUnknown           ErrorKind = "EndpointUnknown"
	DeclarationRedefinition   ErrorKind = "DeclarationRedefinition"
	DerivedFromFailed         ErrorKind = "DerivedFromFailed"
)

// Span is a source location threaded from the parse tree through
// evaluation into every Diagnostic (§3 NEW, §4.9).
type Span struct {
	File               string
	Line, Col          int
	EndLine, EndCol    int
}

func (sp Span) String() string {
	if sp.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", sp.File, sp.Line, sp.Col)
}

// Diagnostic is one accumulated error record (§7).
type Diagnostic struct {
	Kind    ErrorKind
	Message string
	Span    Span
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Kind, d.Message)
}

// InvariantError is the concrete error type returned by the local
// constructors in this package (InternBits, InternGroup, ...). It
// carries no Span because the IR layer itself is span-agnostic; the
// evaluator (internal/eval) attaches the span of the declaration being
// reduced when it turns this into a Diagnostic.
type InvariantError struct {
	Kind    ErrorKind
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Diagnostics accumulates Diagnostic records across a whole
// compilation. Like the Store, it is append-only and shared by a
// single compilation context (§5, §7 "Propagation").
type Diagnostics struct {
	records []Diagnostic
}

// Add appends a diagnostic, preserving the declaration order it was
// discovered in (§5 "Diagnostic emission preserves declaration order").
func (d *Diagnostics) Add(diag Diagnostic) {
	d.records = append(d.records, diag)
}

// Addf is a convenience wrapper building a Diagnostic from a kind, span
// and formatted message.
func (d *Diagnostics) Addf(kind ErrorKind, span Span, format string, args ...any) {
	d.Add(Diagnostic{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.records) > 0 }

// All returns every accumulated diagnostic in declaration order.
func (d *Diagnostics) All() []Diagnostic { return d.records }
