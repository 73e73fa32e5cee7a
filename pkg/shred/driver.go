package shred

// NewRoot allocates the outer List(Record) root node every top-level
// Convert* driver returns, per spec.md §6: "Every top-level convert_*
// returns a List node containing exactly one list of length = number of
// records, whose element node is a Record." If preRecord is non-nil it
// seeds the list's child with an already-specialized RecordNode (the
// schema-bearing adapters pre-build this during initialization, per
// spec.md §4.5/§4.8); otherwise the child starts Incomplete, letting the
// first record's own classification specialize it (JSON's schema-less path).
func NewRoot(preRecord *RecordNode) *ListNode {
	var child Node = NewIncompleteNode()
	if preRecord != nil {
		child = preRecord
	}
	return newListNode(NullIndicator{}, child)
}

// RecordSource yields successive record datums for DriveRecords to feed
// into the converter. It returns ok=false once the source is exhausted.
type RecordSource func() (datum interface{}, ok bool, err error)

// DriveRecords consumes source to completion, converting each record datum
// against root's child node and accumulating the total record count into
// root's single list-length observation, per spec.md §4.9.
func DriveRecords(root *ListNode, adapter Adapter, source RecordSource) error {
	count := 0
	for {
		datum, ok, err := source()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		child, err := Convert(root.Child(), datum, adapter)
		if err != nil {
			return err
		}
		root.SetChild(child)
		count++
	}
	root.PushLength(count)
	root.Null().AddNotNull()
	return nil
}
