package arrow

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/mvilim/bamboo/pkg/shred"
)

// enumDicts hands out one shared EnumDict per dictionary-encoded field,
// keyed by that field's own PrimitiveNode so successive batches on the
// same column keep extending the same dictionary handle rather than each
// allocating (and then failing to agree on) a fresh one. Every dictionary
// in this package carries shred.ConsistentlySourced identity, per spec
// §3's "distinguished consistently-sourced marker for Arrow dictionaries";
// enumVector.Add's actual merge check is Go pointer equality on the
// *EnumDict handle itself, so per-field scoping here is what keeps
// unrelated dictionary columns from being merged, not the shared source tag.
type enumDicts struct {
	dicts map[*shred.PrimitiveNode]*shred.EnumDict
}

func newEnumDicts() *enumDicts {
	return &enumDicts{dicts: make(map[*shred.PrimitiveNode]*shred.EnumDict)}
}

func (e *enumDicts) forNode(node *shred.PrimitiveNode) *shred.EnumDict {
	if d, ok := e.dicts[node]; ok {
		return d
	}
	d := shred.NewEnumDict(shred.ConsistentlySourced)
	e.dicts[node] = d
	return d
}

// extendNodeAt appends the single value at row i of arr onto node, dispatch
// mirroring pkg/shred.Convert's own Record/List/Primitive/Incomplete
// switch, but driven directly off a materialized Arrow array rather than
// through the Adapter interface: an Arrow record batch already holds every
// row for every column, so there is no lazy per-value decode step to
// coordinate through Classify/Fields/List the way the stream-decoded Avro
// and Protobuf adapters need.
func extendNodeAt(node shred.Node, arr arrow.Array, i int, dicts *enumDicts) (shred.Node, error) {
	if arr.IsNull(i) {
		shred.PropagateAbsence(node)
		return node, nil
	}
	switch n := node.(type) {
	case *shred.RecordNode:
		s, ok := arr.(*array.Struct)
		if !ok {
			return node, shred.NewError(shred.ErrSchemaConflict, "expected Arrow struct array").
				WithDetail("actual_type", arr.DataType().String())
		}
		st, ok := s.DataType().(*arrow.StructType)
		if !ok {
			return node, shred.NewError(shred.ErrSchemaConflict, "struct array missing struct type")
		}
		for idx, name := range n.FieldNames() {
			colIdx, ok := fieldIndex(st, name)
			if !ok {
				continue
			}
			child := n.FieldByIndex(idx)
			newChild, err := extendNodeAt(child, s.Field(colIdx), i, dicts)
			if err != nil {
				return node, err
			}
			n.SetField(idx, newChild)
		}
		n.Null().AddNotNull()
		return node, nil
	case *shred.ListNode:
		l, ok := arr.(*array.List)
		if !ok {
			return node, shred.NewError(shred.ErrSchemaConflict, "expected Arrow list array").
				WithDetail("actual_type", arr.DataType().String())
		}
		offsets := l.Offsets()
		start, end := offsets[i], offsets[i+1]
		values := l.ListValues()
		child := n.Child()
		for j := start; j < end; j++ {
			newChild, err := extendNodeAt(child, values, int(j), dicts)
			if err != nil {
				return node, err
			}
			child = newChild
		}
		n.SetChild(child)
		n.PushLength(int(end - start))
		n.Null().AddNotNull()
		return node, nil
	case *shred.PrimitiveNode:
		if err := appendPrimitiveValue(n, arr, i, dicts); err != nil {
			return node, err
		}
		n.Null().AddNotNull()
		return node, nil
	default:
		return node, shred.NewError(shred.ErrSchemaConflict, "unexpected skeleton node kind")
	}
}

func fieldIndex(st *arrow.StructType, name string) (int, bool) {
	for i, f := range st.Fields() {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// appendPrimitiveValue appends the value at row i of arr onto node,
// specializing node's vector on first use exactly like Convert's own
// AddPrimitive path. Types spec §4.6 lists as unsupported (Null, Binary,
// FixedSizeBinary, Date/Time/Timestamp/Interval, Decimal128, Union) fall
// through to the default case.
func appendPrimitiveValue(node *shred.PrimitiveNode, arr arrow.Array, i int, dicts *enumDicts) error {
	switch c := arr.(type) {
	case *array.Boolean:
		return node.Add(c.Value(i))
	case *array.Int8:
		return node.Add(c.Value(i))
	case *array.Int16:
		return node.Add(c.Value(i))
	case *array.Int32:
		return node.Add(c.Value(i))
	case *array.Int64:
		return node.Add(c.Value(i))
	case *array.Uint8:
		return node.Add(c.Value(i))
	case *array.Uint16:
		return node.Add(c.Value(i))
	case *array.Uint32:
		return node.Add(c.Value(i))
	case *array.Uint64:
		return node.Add(c.Value(i))
	case *array.Float32:
		return node.Add(c.Value(i))
	case *array.Float64:
		return node.Add(c.Value(i))
	case *array.String:
		_, err := node.AddString(c.Value(i))
		return err
	case *array.LargeString:
		_, err := node.AddString(c.Value(i))
		return err
	case *array.Dictionary:
		return appendDictionaryValue(node, c, i, dicts)
	default:
		return shred.NewError(shred.ErrNotImplemented, "unsupported Arrow array type").
			WithDetail("type", arr.DataType().String())
	}
}

// appendDictionaryValue implements spec §4.6's dictionary case: the
// dictionary's values (which must be strings; any other value type fails
// NotImplemented) are interned into the field's shared
// dictionary once, the first time this node's dictionary array is seen, and
// every row after that appends its own local index directly, since the
// dictionary's index space and the Arrow array's local index space are then
// identical.
func appendDictionaryValue(node *shred.PrimitiveNode, c *array.Dictionary, i int, dicts *enumDicts) error {
	values, ok := c.Dictionary().(*array.String)
	if !ok {
		return shred.NewError(shred.ErrNotImplemented, "only string-valued Arrow dictionaries are supported").
			WithDetail("value_type", c.Dictionary().DataType().String())
	}
	dict := dicts.forNode(node)
	if dict.Size() == 0 {
		for j := 0; j < values.Len(); j++ {
			dict.Intern(values.Value(j))
		}
	}
	localIdx := c.GetValueIndex(i)
	return node.AddEnum(dict, uint32(localIdx))
}
