package jsonfmt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvilim/bamboo/internal/shredtest"
	"github.com/mvilim/bamboo/pkg/bytesource"
	"github.com/mvilim/bamboo/pkg/formats/jsonfmt"
	"github.com/mvilim/bamboo/pkg/shred"
)

// TestScenarioS1 implements spec.md §8 scenario S1 through the real
// goccy/go-json decode path (pkg/shred/convert_test.go covers the same
// scenario against a synthetic native-value adapter).
func TestScenarioS1(t *testing.T) {
	src := bytesource.FromReader(strings.NewReader(`[{"a":1,"b":null},{"a":null,"b":"x"},{"a":3}]`), 0)
	root, err := jsonfmt.ConvertJSON(src)
	require.NoError(t, err)

	require.Equal(t, 1, root.Null().Size())
	require.Equal(t, []int{3}, root.Offsets())

	rec := root.Child().(*shred.RecordNode)
	require.Equal(t, 3, rec.Null().Size())

	a := rec.FieldByIndex(rec.FieldIndex("a")).(*shred.PrimitiveNode)
	require.Equal(t, shred.INT64, a.Vector().Type())
	require.Equal(t, []int{1}, a.Null().NullIndex())
	require.Equal(t, []int64{1, 3}, a.Vector().(interface{ Values() []int64 }).Values())

	b := rec.FieldByIndex(rec.FieldIndex("b")).(*shred.PrimitiveNode)
	require.Equal(t, shred.STRING, b.Vector().Type())
	require.Equal(t, []int{0, 2}, b.Null().NullIndex())
	require.Equal(t, []string{"x"}, b.Vector().(*shred.StringVector).Values())

	shredtest.AssertNodeInvariants(t, root)
}

func TestUnsignedOverflowLiteral(t *testing.T) {
	src := bytesource.FromReader(strings.NewReader(`[{"n":18446744073709551615}]`), 0)
	root, err := jsonfmt.ConvertJSON(src)
	require.NoError(t, err)
	rec := root.Child().(*shred.RecordNode)
	n := rec.FieldByIndex(rec.FieldIndex("n")).(*shred.PrimitiveNode)
	require.Equal(t, shred.UINT64, n.Vector().Type())
	require.Equal(t, []uint64{18446744073709551615}, n.Vector().(interface{ Values() []uint64 }).Values())
}

func TestNestedListsAndRecords(t *testing.T) {
	src := bytesource.FromReader(strings.NewReader(`[{"a":null,"b":[2,3]},{"a":1,"b":[2,4]}]`), 0)
	root, err := jsonfmt.ConvertJSON(src)
	require.NoError(t, err)
	rec := root.Child().(*shred.RecordNode)

	a := rec.FieldByIndex(rec.FieldIndex("a")).(*shred.PrimitiveNode)
	require.Equal(t, []int64{1}, a.Vector().(interface{ Values() []int64 }).Values())
	require.Equal(t, []int{0}, a.Null().NullIndex())

	b := rec.FieldByIndex(rec.FieldIndex("b")).(*shred.ListNode)
	require.Equal(t, []int{2, 2}, b.Offsets())
	bVals := b.Child().(*shred.PrimitiveNode).Vector().(interface{ Values() []int64 }).Values()
	require.Equal(t, []int64{2, 3, 2, 4}, bVals)

	shredtest.AssertNodeInvariants(t, root)
}

func TestMalformedInputEmptyStream(t *testing.T) {
	src := bytesource.FromReader(strings.NewReader(``), 0)
	_, err := jsonfmt.ConvertJSON(src)
	require.Error(t, err)
	require.True(t, shred.IsKind(err, shred.ErrMalformedInput))
}
