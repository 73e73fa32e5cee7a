package shred

// FieldIterator produces (name, child-datum) pairs for a Record datum, in
// the adapter's natural field order. The three format adapters expose named
// fields (Avro/Protobuf schema field names, JSON object member names; Arrow
// has no adapter and keys struct fields by name on its own direct path), so
// the generic converter keys record children by
// name rather than by the more general name-or-index key spec.md allows.
type FieldIterator interface {
	// Next advances to the next field, returning false when exhausted.
	Next() (name string, childDatum interface{}, ok bool)
}

// ListIterator produces child-datum values for a List datum.
type ListIterator interface {
	// Next advances to the next element, returning false when exhausted.
	Next() (childDatum interface{}, ok bool)
}

// erroringIterator is implemented by iterators that can stop early because
// of a decode failure rather than genuine exhaustion (Avro's fieldIterator,
// which must keep consuming wire bytes for column-filtered-out fields).
// Next's own two-value signature has no room for an error, so convertRecord
// and convertList check for this optionally after a false ok.
type erroringIterator interface {
	Err() error
}

// Adapter is the per-format capability set the generic converter drives.
// A format package implements Adapter once and hands it, plus a byte
// stream's decoded data, to Convert.
type Adapter interface {
	// Classify reports which node variant datum represents.
	Classify(datum interface{}) (NodeKind, error)
	// Fields returns an iterator over datum's record fields. Only called
	// when Classify(datum) == Record.
	Fields(datum interface{}) (FieldIterator, error)
	// List returns an iterator over datum's list elements. Only called
	// when Classify(datum) == List.
	List(datum interface{}) (ListIterator, error)
	// AddPrimitive appends datum's value onto node. Only called when
	// Classify(datum) == Primitive.
	AddPrimitive(node *PrimitiveNode, datum interface{}) error
}

// specialize replaces an Incomplete node with a freshly allocated node of
// the given kind, carrying the accumulated null indicator forward.
func specialize(incomplete *IncompleteNode, kind NodeKind) Node {
	null := incomplete.null
	switch kind {
	case Primitive:
		return newPrimitiveNode(null)
	case List:
		return newListNode(null, NewIncompleteNode())
	case Record:
		return newRecordNode(null)
	default:
		panic("shred: specialize called with non-concrete kind")
	}
}

// Convert drives the generic record-shredding algorithm for a single
// (node, datum) observation, per spec:
//
//  1. classify the datum
//  2. if node is Incomplete and classification is not Incomplete,
//     specialize it to the matching variant, preserving the null indicator
//  3. if the node variant and classification disagree (and classification
//     is not Incomplete), fail with SchemaConflict
//  4. dispatch by classification
//
// It returns the (possibly newly specialized) node; callers must store the
// returned node back into their own parent slot, since specialization
// allocates a new concrete node.
func Convert(node Node, datum interface{}, adapter Adapter) (Node, error) {
	kind, err := adapter.Classify(datum)
	if err != nil {
		return node, err
	}

	if inc, ok := node.(*IncompleteNode); ok && kind != Incomplete {
		node = specialize(inc, kind)
	}

	if kind != Incomplete && node.Kind() != kind {
		return node, NewError(ErrSchemaConflict, "node variant disagrees with observed classification").
			WithDetail("node_kind", node.Kind().String()).
			WithDetail("observed_kind", kind.String())
	}

	switch kind {
	case Record:
		return node, convertRecord(node.(*RecordNode), datum, adapter)
	case List:
		return node, convertList(node.(*ListNode), datum, adapter)
	case Primitive:
		return node, convertPrimitive(node.(*PrimitiveNode), datum, adapter)
	case Incomplete:
		// A bare AddNull suffices for a still-Incomplete node (nothing
		// beneath it to keep in sync) or a List (its child's size is
		// governed by the sum of offsets, not by the list's own event
		// count, so an absent list leaves the child untouched). A Record
		// that already has established fields is different: §8 invariant
		// 2 requires every field to reach the record's own size no matter
		// how the record's own null arrived, so an explicit null on an
		// already-specialized record (e.g. an Avro null|record union
		// selecting its null branch, or a JSON object field later sent
		// null) must still propagate one absence down to every field,
		// exactly like propagateAbsence's JSON-omitted-key case below.
		propagateAbsence(node)
		return node, nil
	default:
		panic("shred: unreachable classification")
	}
}

func convertRecord(rec *RecordNode, datum interface{}, adapter Adapter) error {
	it, err := adapter.Fields(datum)
	if err != nil {
		return err
	}
	touched := make(map[int]bool)
	for {
		name, childDatum, ok := it.Next()
		if !ok {
			if e, has := it.(erroringIterator); has && e.Err() != nil {
				return e.Err()
			}
			break
		}
		idx := rec.FieldIndex(name)
		touched[idx] = true
		child := rec.FieldByIndex(idx)
		newChild, err := Convert(child, childDatum, adapter)
		if err != nil {
			return err
		}
		rec.SetField(idx, newChild)
	}

	// Schema-bearing adapters (Avro in schema order, Protobuf via its
	// missing-field bitmap pass) always yield every known field, so this
	// loop never fires for them. Schema-less JSON only yields the keys
	// actually present on this object; any field this record's object
	// simply omits must still reach this record's new observation count,
	// per the record/field size invariant (spec.md §8 invariant 2) and
	// worked example S1 (field "b" reaches size 3 with only two explicit
	// mentions across three records).
	for i := 0; i < rec.FieldCount(); i++ {
		if !touched[i] {
			propagateAbsence(rec.FieldByIndex(i))
		}
	}

	rec.Null().AddNotNull()
	return nil
}

// propagateAbsence records a null observation for node and, if node is
// itself a RecordNode, recurses into its fields so the record/field size
// invariant (§8 invariant 2) holds regardless of why the absence arose:
// a schema-less format simply never mentioning a known field this record
// (convertRecord's untouched-field pass, below) or an explicit null value
// landing on an already-specialized record (Convert's own Incomplete
// dispatch, above). Both reduce to the same operation: everything already
// known to exist under node gets exactly one more null event. List
// children are left untouched: an absent observation never lengthens a
// list's offsets, so its child's size is unaffected, and
// list.Null().AddNull() alone keeps every invariant intact.
// PropagateAbsence is propagateAbsence exported for format adapters that
// build the node tree directly rather than through Convert (pkg/formats/arrow,
// whose batches are already fully materialized and so extend nodes
// column-at-a-time instead of driving one datum through the generic
// converter per value). Both call sites need the exact same "one more null
// event, recursed into any already-established record's fields" behavior.
func PropagateAbsence(node Node) {
	propagateAbsence(node)
}

func propagateAbsence(node Node) {
	node.Null().AddNull()
	if rec, ok := node.(*RecordNode); ok {
		for i := 0; i < rec.FieldCount(); i++ {
			propagateAbsence(rec.FieldByIndex(i))
		}
	}
}

func convertList(list *ListNode, datum interface{}, adapter Adapter) error {
	it, err := adapter.List(datum)
	if err != nil {
		return err
	}
	count := 0
	for {
		childDatum, ok := it.Next()
		if !ok {
			if e, has := it.(erroringIterator); has && e.Err() != nil {
				return e.Err()
			}
			break
		}
		newChild, err := Convert(list.Child(), childDatum, adapter)
		if err != nil {
			return err
		}
		list.SetChild(newChild)
		count++
	}
	list.PushLength(count)
	list.Null().AddNotNull()
	return nil
}

func convertPrimitive(prim *PrimitiveNode, datum interface{}, adapter Adapter) error {
	if err := adapter.AddPrimitive(prim, datum); err != nil {
		return err
	}
	prim.Null().AddNotNull()
	return nil
}
