// Package shredtest provides shared invariant assertions for the node
// tree produced by pkg/shred and its format adapters, so every format
// package's tests can walk a converted tree the same way.
package shredtest

import (
	"testing"

	"github.com/mvilim/bamboo/pkg/shred"
	"github.com/stretchr/testify/require"
)

// AssertNodeInvariants walks node and its descendants, asserting the
// universal invariants from spec.md §8:
//
//  1. size = non_null_count + |null_index|; null_index strictly increasing,
//     each entry < size.
//  2. every RecordNode field's size equals the record's size.
//  3. every ListNode: sum(offsets) == child.size; |offsets| == size - |null_index|.
//  4. every PrimitiveNode: vector length == size - |null_index|.
//  5. every enum index < dictionary size.
func AssertNodeInvariants(t *testing.T, node shred.Node) {
	t.Helper()
	assertNullIndicator(t, node.Null())

	switch n := node.(type) {
	case *shred.RecordNode:
		size := n.Null().Size()
		for i, name := range n.FieldNames() {
			field := n.FieldByIndex(i)
			require.Equalf(t, size, field.Null().Size(), "field %q size mismatch", name)
			AssertNodeInvariants(t, field)
		}
	case *shred.ListNode:
		nullCount := len(n.Null().NullIndex())
		require.Equal(t, n.Null().Size()-nullCount, len(n.Offsets()), "list offsets count mismatch")
		sum := 0
		for _, o := range n.Offsets() {
			sum += o
		}
		require.Equal(t, sum, n.Child().Null().Size(), "list child size mismatch")
		AssertNodeInvariants(t, n.Child())
	case *shred.PrimitiveNode:
		nullCount := len(n.Null().NullIndex())
		want := n.Null().Size() - nullCount
		require.Equal(t, want, n.Vector().Len(), "primitive vector length mismatch")
		if n.Vector().Type() == shred.ENUM {
			enumVec := n.Vector().(interface {
				Dict() *shred.EnumDict
				Indices() []uint32
			})
			dictSize := enumVec.Dict().Size()
			for _, idx := range enumVec.Indices() {
				require.Lessf(t, int(idx), dictSize, "enum index must be < dictionary size")
			}
		}
	case *shred.IncompleteNode:
		// no further structure to check
	}
}

func assertNullIndicator(t *testing.T, ni *shred.NullIndicator) {
	t.Helper()
	idx := ni.NullIndex()
	prev := -1
	for _, p := range idx {
		require.Greaterf(t, p, prev, "null_index must be strictly increasing")
		require.Lessf(t, p, ni.Size(), "null_index entry must be < size")
		prev = p
	}
}
