package arrow

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/mvilim/bamboo/pkg/bytesource"
	"github.com/mvilim/bamboo/pkg/shred"
)

// ConvertArrowStream shreds every record batch of an Arrow IPC stream (the
// format ipc.NewReader produces, distinct from the random-access Arrow
// IPC *file* format ipc.NewFileReader targets) into a single List root,
// per spec.md §4.6. Unlike ConvertAvro/ConvertJSON/ConvertPBD this
// does not build a shred.Adapter and drive it through shred.Convert: each
// batch already holds every row of every column as a random-access
// arrow.Array, so shredding is a direct per-row tree extension
// (extendNodeAt) rather than a lazy decode-as-you-go pull.
func ConvertArrowStream(src bytesource.ByteSource, filter *shred.ColumnFilter) (*shred.ListNode, error) {
	r, err := ipc.NewReader(bytesource.Reader(src))
	if err != nil {
		return nil, shred.WrapError(err, shred.ErrMalformedInput, "failed to open Arrow IPC stream")
	}
	defer r.Release()

	rootImplicit := filter.RootImplicitInclude()
	rec := buildRootSkeleton(r.Schema(), filter, rootImplicit)
	root := shred.NewRoot(rec)
	dicts := newEnumDicts()

	// The root record's own fields come from a batch's top-level columns
	// directly, not from one struct array the way a nested record field
	// does (an IPC record batch has no wrapping struct array of its own) --
	// so this loop plays the same role as extendNodeAt's RecordNode case,
	// one level up, and every nested field below it still goes through
	// extendNodeAt itself.
	totalRows := 0
	for r.Next() {
		batch := r.Record()
		st := r.Schema()
		numRows := int(batch.NumRows())
		for i := 0; i < numRows; i++ {
			for idx, name := range rec.FieldNames() {
				colIdx, ok := fieldIndexByName(st, name)
				if !ok {
					continue
				}
				child := rec.FieldByIndex(idx)
				newChild, err := extendNodeAt(child, batch.Column(colIdx), i, dicts)
				if err != nil {
					return nil, err
				}
				rec.SetField(idx, newChild)
			}
			rec.Null().AddNotNull()
		}
		totalRows += numRows
	}
	if err := r.Err(); err != nil {
		return nil, shred.WrapError(err, shred.ErrMalformedInput, "failed reading Arrow IPC stream")
	}

	root.PushLength(totalRows)
	root.Null().AddNotNull()
	return root, nil
}

func fieldIndexByName(schema *arrow.Schema, name string) (int, bool) {
	for i, f := range schema.Fields() {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}
