package physical

import (
	"testing"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
)

func internStream(t *testing.T, store *ir.Store, st ir.StreamType) ir.TypeID {
	t.Helper()
	if st.Throughput == (ir.Rational{}) {
		st.Throughput = ir.Rational{Num: 1, Den: 1}
	}
	if st.Complexity == nil {
		st.Complexity = ir.DefaultComplexity
	}
	id, err := store.InternStream(st)
	if err != nil {
		t.Fatalf("InternStream: %v", err)
	}
	return id
}

func TestComputeSimpleBitsStream(t *testing.T) {
	store := ir.NewStore()
	bits, err := store.InternBits(8)
	if err != nil {
		t.Fatalf("InternBits: %v", err)
	}
	streamID := internStream(t, store, ir.StreamType{Data: bits})

	out, err := Compute(store, streamID, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected a single physical split, got %d", len(out))
	}
	s := out[0]
	if s.DataWidth != 8 {
		t.Fatalf("DataWidth = %d, want 8", s.DataWidth)
	}
	if s.HasStai || s.HasEndi || s.HasStrb {
		t.Fatalf("complexity 1 must not carry stai/endi/strb: %+v", s)
	}
	if s.Direction != ir.Forward {
		t.Fatalf("Direction = %v, want Forward", s.Direction)
	}
}

func TestComputeRejectsNonStreamType(t *testing.T) {
	store := ir.NewStore()
	bits, _ := store.InternBits(8)
	if _, err := Compute(store, bits, ir.Forward); err == nil {
		t.Fatalf("Compute on a non-Stream type must fail")
	}
}

func TestComputeThroughputWidensData(t *testing.T) {
	store := ir.NewStore()
	bits, _ := store.InternBits(8)
	streamID := internStream(t, store, ir.StreamType{Data: bits, Throughput: ir.Rational{Num: 5, Den: 2}})

	out, err := Compute(store, streamID, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// ceil(5/2) = 3 elements per transfer, each 8 bits wide.
	if out[0].ElementCount != 3 {
		t.Fatalf("ElementCount = %d, want 3", out[0].ElementCount)
	}
	if out[0].DataWidth != 24 {
		t.Fatalf("DataWidth = %d, want 24", out[0].DataWidth)
	}
}

func TestComputeDimensionalityAddsLast(t *testing.T) {
	store := ir.NewStore()
	bits, _ := store.InternBits(8)
	streamID := internStream(t, store, ir.StreamType{Data: bits, Dimensionality: 2})

	out, err := Compute(store, streamID, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// ceilLog2(2+1) = 2 bits of last per element, 1 element.
	if out[0].LastWidth != 2 {
		t.Fatalf("LastWidth = %d, want 2", out[0].LastWidth)
	}
}

func TestComputeComplexityThresholdsStaiEndiAndStrb(t *testing.T) {
	store := ir.NewStore()
	bits, _ := store.InternBits(8)

	below := internStream(t, store, ir.StreamType{Data: bits, Complexity: ir.ComplexityVersion{5}})
	out, err := Compute(store, below, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if out[0].HasStai || out[0].HasEndi || out[0].HasStrb {
		t.Fatalf("complexity 5 must not carry stai/endi/strb: %+v", out[0])
	}

	staiEndi := internStream(t, store, ir.StreamType{Data: bits, Complexity: ir.ComplexityVersion{6}})
	out, err = Compute(store, staiEndi, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !out[0].HasStai || !out[0].HasEndi || out[0].HasStrb {
		t.Fatalf("complexity 6 must carry stai/endi but not strb: %+v", out[0])
	}

	strb := internStream(t, store, ir.StreamType{Data: bits, Complexity: ir.ComplexityVersion{7}})
	out, err = Compute(store, strb, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !out[0].HasStai || !out[0].HasEndi || !out[0].HasStrb {
		t.Fatalf("complexity 7 must carry stai/endi/strb: %+v", out[0])
	}

	keep := internStream(t, store, ir.StreamType{Data: bits, Complexity: ir.ComplexityVersion{1}, Keep: true})
	out, err = Compute(store, keep, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !out[0].HasStrb {
		t.Fatalf("Keep=true must force strb regardless of complexity: %+v", out[0])
	}
}

func TestComputeGroupSumsFieldWidths(t *testing.T) {
	store := ir.NewStore()
	a, _ := store.InternBits(8)
	b, _ := store.InternBits(4)
	group, err := store.InternGroup([]ir.Field{{Name: "a", Type: a}, {Name: "b", Type: b}})
	if err != nil {
		t.Fatalf("InternGroup: %v", err)
	}
	streamID := internStream(t, store, ir.StreamType{Data: group})

	out, err := Compute(store, streamID, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if out[0].DataWidth != 12 {
		t.Fatalf("DataWidth = %d, want 12 (8+4)", out[0].DataWidth)
	}
}

func TestComputeUnionAddsTagBitsAndTakesWidestVariant(t *testing.T) {
	store := ir.NewStore()
	a, _ := store.InternBits(8)
	b, _ := store.InternBits(2)
	c, _ := store.InternBits(4)
	union, err := store.InternUnion([]ir.Variant{{Name: "a", Type: a}, {Name: "b", Type: b}, {Name: "c", Type: c}})
	if err != nil {
		t.Fatalf("InternUnion: %v", err)
	}
	streamID := internStream(t, store, ir.StreamType{Data: union})

	out, err := Compute(store, streamID, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// ceilLog2(3) = 2 tag bits + widest variant (8) = 10.
	if out[0].DataWidth != 10 {
		t.Fatalf("DataWidth = %d, want 10 (2 tag bits + 8 widest variant)", out[0].DataWidth)
	}
}

func TestComputeNestedStreamSplitsAndReverseFlips(t *testing.T) {
	store := ir.NewStore()
	leafBits, _ := store.InternBits(8)
	innerStream := internStream(t, store, ir.StreamType{Data: leafBits, Direction: ir.Reverse})
	group, err := store.InternGroup([]ir.Field{{Name: "inner", Type: innerStream}})
	if err != nil {
		t.Fatalf("InternGroup: %v", err)
	}
	outerStream := internStream(t, store, ir.StreamType{Data: group})

	out, err := Compute(store, outerStream, ir.Forward)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected the outer stream plus one nested split, got %d", len(out))
	}
	if out[0].DataWidth != 0 {
		t.Fatalf("outer DataWidth = %d, want 0 (all bits traveled on the nested split)", out[0].DataWidth)
	}
	if out[0].Direction != ir.Forward {
		t.Fatalf("outer Direction = %v, want Forward", out[0].Direction)
	}
	if out[1].Direction != ir.Reverse {
		t.Fatalf("nested split Direction = %v, want Reverse (flipped by its own Reverse tag)", out[1].Direction)
	}
	if out[1].DataWidth != 8 {
		t.Fatalf("nested split DataWidth = %d, want 8", out[1].DataWidth)
	}
}

func TestComputeParentDirectionPropagatesWithoutReverseTag(t *testing.T) {
	store := ir.NewStore()
	bits, _ := store.InternBits(8)
	streamID := internStream(t, store, ir.StreamType{Data: bits})

	out, err := Compute(store, streamID, ir.Reverse)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if out[0].Direction != ir.Reverse {
		t.Fatalf("Direction = %v, want Reverse (inherited from an Out port's parentDir)", out[0].Direction)
	}
}
