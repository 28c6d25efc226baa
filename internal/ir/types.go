package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeKind tags the LogicalType variant (§3.1).
type TypeKind uint8

const (
	KindNull TypeKind = iota
	KindBits
	KindGroup
	KindUnion
	KindStream
)

// Synchronicity is one of the four stream synchronicity modes.
type Synchronicity uint8

const (
	Sync Synchronicity = iota
	Flatten
	Desync
	FlatDesync
)

func (s Synchronicity) String() string {
	switch s {
	case Sync:
		return "Sync"
	case Flatten:
		return "Flatten"
	case Desync:
		return "Desync"
	case FlatDesync:
		return "FlatDesync"
	default:
		return "Sync"
	}
}

// Direction is the stream's carried direction, or the flip applied by a
// Reverse node encountered while computing a physical view (§4.3).
type Direction uint8

const (
	Forward Direction = iota
	Reverse
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Forward {
		return Reverse
	}
	return Forward
}

// Rational is a reduced positive rational (throughput, §3.1). Den is
// always > 0 and gcd(Num, Den) == 1 once constructed via NewRational.
type Rational struct {
	Num, Den int64
}

// NewRational reduces num/den. den must be nonzero; the sign is
// normalized onto num.
func NewRational(num, den int64) (Rational, error) {
	if den == 0 {
		return Rational{}, fmt.Errorf("rational: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs64(num), den)
	if g == 0 {
		g = 1
	}
	return Rational{Num: num / g, Den: den / g}, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func (r Rational) String() string {
	if r.Den == 1 {
		return strconv.FormatInt(r.Num, 10)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Positive reports whether the rational is strictly greater than zero.
func (r Rational) Positive() bool { return r.Num > 0 }

// Ceil returns ceil(r) as an int, never less than 1.
func (r Rational) Ceil() int {
	q := r.Num / r.Den
	if r.Num%r.Den != 0 {
		q++
	}
	if q < 1 {
		q = 1
	}
	return int(q)
}

// ComplexityVersion is a non-empty sequence of non-negative integers,
// compared lexicographically (§3.1). DefaultComplexity is "1".
type ComplexityVersion []uint32

var DefaultComplexity = ComplexityVersion{1}

// Compare returns -1, 0, or 1 comparing a to b lexicographically;
// a shorter common prefix compares as less (e.g. [6] < [6,1]).
func (a ComplexityVersion) Compare(b ComplexityVersion) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether a >= threshold.
func (a ComplexityVersion) AtLeast(threshold ComplexityVersion) bool {
	return a.Compare(threshold) >= 0
}

func (a ComplexityVersion) String() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ".")
}

// Field is one member of a Group: an ordered (name, type) pair.
type Field struct {
	Name string
	Type TypeID
}

// Variant is one member of a Union: an ordered (name, type) pair.
type Variant struct {
	Name string
	Type TypeID
}

// StreamType is the payload of a Stream LogicalType (§3.1). Defaults
// per the spec: Complexity=DefaultComplexity, Throughput=1/1,
// Direction=Forward, User=NullType, Keep=false.
type StreamType struct {
	Data           TypeID
	Throughput     Rational
	Dimensionality int
	Synchronicity  Synchronicity
	Complexity     ComplexityVersion
	Direction      Direction
	User           TypeID
	Keep           bool
}

// LogicalType is the tagged variant described in spec §3.1. Only the
// fields matching Kind are meaningful; the zero value of the others is
// ignored. Hash is a content fingerprint (see hash.go); it is not part
// of the IR JSON dump and not used for interning identity (the
// canonical string key is).
type LogicalType struct {
	Kind     TypeKind
	Bits     int
	Fields   []Field
	Variants []Variant
	Stream   StreamType
	Hash     uint64
}

// Type looks up an interned LogicalType by Id.
func (s *Store) Type(id TypeID) (LogicalType, bool) {
	return s.types.get(int32(id))
}

// InternNull returns the single interned Null type (always TypeID 0).
func (s *Store) InternNull() TypeID {
	return NullType
}

// InternBits interns Bits(n). n must be >= 1 (§4.2).
func (s *Store) InternBits(n int) (TypeID, error) {
	if n < 1 {
		return 0, &InvariantError{Kind: TypeInvariant, Message: fmt.Sprintf("Bits(%d): width must be >= 1", n)}
	}
	lt := LogicalType{Kind: KindBits, Bits: n}
	key := fmt.Sprintf("bits:%d", n)
	lt.Hash = contentHash(key)
	return TypeID(s.types.intern(key, lt)), nil
}

// InternGroup interns a Group over fields, preserving declaration order
// (semantically significant, §4.1). Field names must be unique and the
// field list non-empty (§4.2).
func (s *Store) InternGroup(fields []Field) (TypeID, error) {
	if len(fields) == 0 {
		return 0, &InvariantError{Kind: TypeInvariant, Message: "Group: must have at least one field"}
	}
	seen := make(map[string]bool, len(fields))
	var key strings.Builder
	key.WriteString("group:")
	for _, f := range fields {
		if seen[f.Name] {
			return 0, &InvariantError{Kind: TypeInvariant, Message: fmt.Sprintf("Group: duplicate field %q", f.Name)}
		}
		seen[f.Name] = true
		fmt.Fprintf(&key, "%s=%d,", f.Name, f.Type)
	}
	lt := LogicalType{Kind: KindGroup, Fields: append([]Field(nil), fields...)}
	lt.Hash = contentHash(key.String())
	return TypeID(s.types.intern(key.String(), lt)), nil
}

// InternUnion interns a Union over variants, preserving declaration
// order. Variant names must be unique and the variant list non-empty.
func (s *Store) InternUnion(variants []Variant) (TypeID, error) {
	if len(variants) == 0 {
		return 0, &InvariantError{Kind: TypeInvariant, Message: "Union: must have at least one variant"}
	}
	seen := make(map[string]bool, len(variants))
	var key strings.Builder
	key.WriteString("union:")
	for _, v := range variants {
		if seen[v.Name] {
			return 0, &InvariantError{Kind: TypeInvariant, Message: fmt.Sprintf("Union: duplicate variant %q", v.Name)}
		}
		seen[v.Name] = true
		fmt.Fprintf(&key, "%s=%d,", v.Name, v.Type)
	}
	lt := LogicalType{Kind: KindUnion, Variants: append([]Variant(nil), variants...)}
	lt.Hash = contentHash(key.String())
	return TypeID(s.types.intern(key.String(), lt)), nil
}

// InternStream interns a fully-concrete Stream. Throughput must be
// positive, dimensionality non-negative, and Complexity non-empty
// (§4.2); zero values for Complexity/Throughput/User are filled with
// the spec defaults by callers (the evaluator), not here, since this
// constructor only validates, it does not default.
func (s *Store) InternStream(st StreamType) (TypeID, error) {
	if !st.Throughput.Positive() {
		return 0, &InvariantError{Kind: TypeInvariant, Message: "Stream: throughput must be positive"}
	}
	if st.Dimensionality < 0 {
		return 0, &InvariantError{Kind: TypeInvariant, Message: "Stream: dimensionality must be >= 0"}
	}
	if len(st.Complexity) == 0 {
		return 0, &InvariantError{Kind: TypeInvariant, Message: "Stream: complexity must be non-empty"}
	}
	key := fmt.Sprintf("stream:data=%d,thr=%s,dim=%d,sync=%d,complex=%s,dir=%d,user=%d,keep=%t",
		st.Data, st.Throughput, st.Dimensionality, st.Synchronicity, st.Complexity, st.Direction, st.User, st.Keep)
	lt := LogicalType{Kind: KindStream, Stream: st}
	lt.Hash = contentHash(key)
	return TypeID(s.types.intern(key, lt)), nil
}

// IsStream reports whether id names a Stream LogicalType.
func (s *Store) IsStream(id TypeID) bool {
	lt, ok := s.types.get(int32(id))
	return ok && lt.Kind == KindStream
}
