// Package irschema serializes a compiled ir.Store to its JSON dump
// shape and validates that shape against an embedded CUE schema before
// it is handed to any downstream consumer (the `tilc inspect` command,
// which prints it on stdout, primarily). The contract lives in
// schema.cue.
package irschema

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
)

//go:embed schema.cue
var schemaFS embed.FS

// Validator checks a Dump against the embedded #Dump CUE definition.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema once. Reused across every dump a
// compilation produces.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	raw, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}
	schema := ctx.CompileBytes(raw)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate marshals dump to JSON, compiles it as a CUE value, and
// unifies it against #Dump. A shape mismatch here means the dump
// format drifted from the schema, not that the IR itself is wrong.
func (v *Validator) Validate(dump Dump) error {
	raw, err := json.Marshal(dump)
	if err != nil {
		return fmt.Errorf("marshaling dump: %w", err)
	}
	data := v.ctx.CompileBytes(raw)
	if data.Err() != nil {
		return fmt.Errorf("compiling dump as CUE: %w", data.Err())
	}
	def := v.schema.LookupPath(cue.ParsePath("#Dump"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #Dump definition: %w", def.Err())
	}
	unified := def.Unify(data)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("IR dump failed schema validation: %w", err)
	}
	return nil
}

// Dump is the JSON-serializable mirror of an ir.Store's contents.
type Dump struct {
	Types      []TypeEntry      `json:"types"`
	Streamlets []StreamletEntry `json:"streamlets"`
	Impls      []ImplEntry      `json:"impls"`
}

type NamedRef struct {
	Name string `json:"name"`
	Type int32  `json:"type"`
}

type StreamPayload struct {
	Data           int32    `json:"data"`
	Throughput     string   `json:"throughput"`
	Dimensionality int      `json:"dimensionality"`
	Synchronicity  string   `json:"synchronicity"`
	Complexity     []uint32 `json:"complexity"`
	Direction      string   `json:"direction"`
	User           int32    `json:"user"`
	Keep           bool     `json:"keep"`
}

type TypeEntry struct {
	ID       int32          `json:"id"`
	Kind     string         `json:"kind"`
	Bits     int            `json:"bits,omitempty"`
	Fields   []NamedRef     `json:"fields,omitempty"`
	Variants []NamedRef     `json:"variants,omitempty"`
	Stream   *StreamPayload `json:"stream,omitempty"`
}

type PortEntry struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Stream    int32  `json:"stream"`
	Domain    string `json:"domain"`
}

type GenericEntry struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	HasDefault    bool   `json:"hasDefault"`
	HasConstraint bool   `json:"hasConstraint"`
}

type GenericArgEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type StreamletEntry struct {
	ID          int32             `json:"id"`
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	Domains     []string          `json:"domains"`
	Interface   int32             `json:"interface"`
	Impl        *int32            `json:"impl,omitempty"`
	IsInterface bool              `json:"isInterface"`
	Generics    []GenericEntry    `json:"generics,omitempty"`
	GenericArgs []GenericArgEntry `json:"genericArgs,omitempty"`
}

type InstanceEntry struct {
	Name      string `json:"name"`
	Streamlet int32  `json:"streamlet"`
}

type ConnectionEntry struct {
	A string `json:"a"`
	B string `json:"b"`
}

type ImplEntry struct {
	ID          int32             `json:"id"`
	Kind        string            `json:"kind"`
	Ports       []PortEntry       `json:"ports"`
	Instances   []InstanceEntry   `json:"instances,omitempty"`
	Connections []ConnectionEntry `json:"connections,omitempty"`
	LinkedPath  string            `json:"linkedPath,omitempty"`
}

func typeKindName(k ir.TypeKind) string {
	switch k {
	case ir.KindNull:
		return "Null"
	case ir.KindBits:
		return "Bits"
	case ir.KindGroup:
		return "Group"
	case ir.KindUnion:
		return "Union"
	case ir.KindStream:
		return "Stream"
	default:
		return "Null"
	}
}

func paramKindName(k ir.ParamKind) string {
	switch k {
	case ir.Natural:
		return "Natural"
	case ir.Positive:
		return "Positive"
	case ir.Integer:
		return "Integer"
	case ir.Dimensionality:
		return "Dimensionality"
	default:
		return "Natural"
	}
}

func portDirName(d ir.PortDir) string {
	if d == ir.Out {
		return "out"
	}
	return "in"
}

func toPortEntries(ports []ir.Port) []PortEntry {
	out := make([]PortEntry, len(ports))
	for i, p := range ports {
		out[i] = PortEntry{Name: p.Name, Direction: portDirName(p.Direction), Stream: int32(p.Stream), Domain: string(p.Domain)}
	}
	return out
}

// BuildDump walks every entity interned in store and produces its JSON
// dump form. Ids are dense and stable for the lifetime of store (C1),
// so the dump is deterministic across repeated calls for the same
// compilation.
func BuildDump(store *ir.Store) Dump {
	d := Dump{}
	for i := 0; i < store.TypeCount(); i++ {
		id := ir.TypeID(i)
		lt, ok := store.Type(id)
		if !ok {
			continue
		}
		e := TypeEntry{ID: int32(id), Kind: typeKindName(lt.Kind), Bits: lt.Bits}
		for _, f := range lt.Fields {
			e.Fields = append(e.Fields, NamedRef{Name: f.Name, Type: int32(f.Type)})
		}
		for _, v := range lt.Variants {
			e.Variants = append(e.Variants, NamedRef{Name: v.Name, Type: int32(v.Type)})
		}
		if lt.Kind == ir.KindStream {
			s := lt.Stream
			e.Stream = &StreamPayload{
				Data:           int32(s.Data),
				Throughput:     s.Throughput.String(),
				Dimensionality: s.Dimensionality,
				Synchronicity:  s.Synchronicity.String(),
				Complexity:     []uint32(s.Complexity),
				Direction:      directionName(s.Direction),
				User:           int32(s.User),
				Keep:           s.Keep,
			}
		}
		d.Types = append(d.Types, e)
	}
	for i := 0; i < store.StreamletCount(); i++ {
		id := ir.StreamletID(i)
		st, ok := store.Streamlet(id)
		if !ok {
			continue
		}
		domains := make([]string, len(st.Domains))
		for i, dn := range st.Domains {
			domains[i] = string(dn)
		}
		e := StreamletEntry{ID: int32(id), Name: st.Name, Namespace: st.Namespace, Domains: domains, Interface: st.InterfaceID, IsInterface: st.IsInterface}
		if st.Impl != nil {
			v := int32(*st.Impl)
			e.Impl = &v
		}
		for _, p := range st.Generics {
			hasDefault := p.Default.Kind != ir.ExprLiteral || p.Default.Lit != nil
			e.Generics = append(e.Generics, GenericEntry{
				Name:          p.Name,
				Kind:          paramKindName(p.Kind),
				HasDefault:    hasDefault,
				HasConstraint: p.Constraint != nil,
			})
		}
		for _, g := range st.GenericArgs {
			e.GenericArgs = append(e.GenericArgs, GenericArgEntry{Name: g.Name, Value: g.Value.String()})
		}
		d.Streamlets = append(d.Streamlets, e)
	}
	for i := 0; i < store.ImplCount(); i++ {
		id := ir.ImplID(i)
		impl, ok := store.Implementation(id)
		if !ok {
			continue
		}
		kind := "Structural"
		if impl.Kind == ir.Linked {
			kind = "Linked"
		}
		e := ImplEntry{ID: int32(id), Kind: kind, Ports: toPortEntries(impl.Ports), LinkedPath: impl.LinkedPath}
		for _, inst := range impl.Instances {
			e.Instances = append(e.Instances, InstanceEntry{Name: inst.Name, Streamlet: int32(inst.Streamlet)})
		}
		for _, c := range impl.Connections {
			e.Connections = append(e.Connections, ConnectionEntry{A: c.A.String(), B: c.B.String()})
		}
		d.Impls = append(d.Impls, e)
	}
	return d
}

func directionName(d ir.Direction) string {
	if d == ir.Reverse {
		return "Reverse"
	}
	return "Forward"
}
