// Package physical computes the physical-signal view of a fully
// concrete logical Stream type (C3, spec §4.3): the concrete set of
// handshake signal bundles — data, last, stai, endi, strb, user — and
// their bit widths, split at every nested Stream boundary.
package physical

import (
	"fmt"
	"math/bits"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
)

// complexityStaiEndi and complexityStrb are the Tydi-convention
// thresholds spec §4.3/§9 records as authoritative for this
// implementation (Open Question decision, see SPEC_FULL.md §9).
var (
	complexityStaiEndi = ir.ComplexityVersion{6}
	complexityStrb     = ir.ComplexityVersion{7}
)

// Stream is one physical signal bundle produced for a single split
// point in a logical Stream type (§4.3).
type Stream struct {
	DataWidth     int
	LastWidth     int
	HasStai       bool
	HasEndi       bool
	IndexWidth    int // width shared by stai and endi when present
	HasStrb       bool
	StrbWidth     int
	UserWidth     int
	Direction     ir.Direction
	ElementCount  int
}

// Compute returns the physical view of the Stream LogicalType named
// by id: one Stream record for id itself, followed by one record per
// nested Stream discovered while flattening its data and user types
// (§4.3 "split point"), in the order they are encountered (data before
// user, depth-first, declaration order within Group/Union). parentDir
// is the direction the port itself carries (In ports see their own
// stream as Forward-rooted from the component's perspective; this is
// the caller's concern, not physical's — Compute only applies the
// Reverse flips contributed by Stream nodes within the type graph).
func Compute(store *ir.Store, id ir.TypeID, parentDir ir.Direction) ([]Stream, error) {
	lt, ok := store.Type(id)
	if !ok {
		return nil, fmt.Errorf("physical: unknown type id %d", id)
	}
	if lt.Kind != ir.KindStream {
		return nil, fmt.Errorf("physical: type id %d is not a Stream", id)
	}
	return flattenStream(store, lt.Stream, parentDir)
}

func flattenStream(store *ir.Store, st ir.StreamType, parentDir ir.Direction) ([]Stream, error) {
	dir := parentDir
	if st.Direction == ir.Reverse {
		dir = dir.Flip()
	}

	var nested []Stream
	dataBits, err := leafWidth(store, st.Data, dir, &nested)
	if err != nil {
		return nil, err
	}
	userBits, err := leafWidth(store, st.User, dir, &nested)
	if err != nil {
		return nil, err
	}

	elemCount := st.Throughput.Ceil()

	out := Stream{
		ElementCount: elemCount,
		DataWidth:    dataBits * elemCount,
		UserWidth:    userBits,
		Direction:    dir,
	}
	if st.Dimensionality > 0 {
		out.LastWidth = ceilLog2(st.Dimensionality+1) * elemCount
	}
	if st.Complexity.AtLeast(complexityStaiEndi) {
		out.HasStai = true
		out.HasEndi = true
		out.IndexWidth = ceilLog2(elemCount)
	}
	if st.Complexity.AtLeast(complexityStrb) || st.Keep {
		out.HasStrb = true
		out.StrbWidth = elemCount
	}

	return append([]Stream{out}, nested...), nil
}

// leafWidth computes the bit width contributed by id at the level of
// the Stream currently being flattened. Null contributes 0, Bits(n)
// contributes n, Group sums its fields, Union contributes tag bits
// plus the widest variant. A nested Stream contributes 0 here (its
// bits travel on an independent physical bundle) and is instead
// flattened recursively and appended to *splits (§4.3).
func leafWidth(store *ir.Store, id ir.TypeID, dir ir.Direction, splits *[]Stream) (int, error) {
	lt, ok := store.Type(id)
	if !ok {
		return 0, fmt.Errorf("physical: unknown type id %d", id)
	}
	switch lt.Kind {
	case ir.KindNull:
		return 0, nil
	case ir.KindBits:
		return lt.Bits, nil
	case ir.KindGroup:
		total := 0
		for _, f := range lt.Fields {
			w, err := leafWidth(store, f.Type, dir, splits)
			if err != nil {
				return 0, err
			}
			total += w
		}
		return total, nil
	case ir.KindUnion:
		maxW := 0
		for _, v := range lt.Variants {
			w, err := leafWidth(store, v.Type, dir, splits)
			if err != nil {
				return 0, err
			}
			if w > maxW {
				maxW = w
			}
		}
		return ceilLog2(len(lt.Variants)) + maxW, nil
	case ir.KindStream:
		nested, err := flattenStream(store, lt.Stream, dir)
		if err != nil {
			return 0, err
		}
		*splits = append(*splits, nested...)
		return 0, nil
	default:
		return 0, fmt.Errorf("physical: unknown type kind %v", lt.Kind)
	}
}

// ceilLog2 returns ceil(log2(n)) for n >= 1, and 0 for n <= 1.
func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
