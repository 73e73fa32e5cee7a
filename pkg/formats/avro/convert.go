package avro

import (
	"bytes"
	"errors"
	"io"

	"github.com/mvilim/bamboo/pkg/bytesource"
	"github.com/mvilim/bamboo/pkg/shred"
)

// ConvertAvro shreds an Avro Object Container File read from src into a
// List(Record) root node, applying filter (nil means no filtering) to
// prune excluded columns. Per spec.md §4.5, the writer schema is read once
// from the file header, the node skeleton is pre-built from it, and each
// data block's records are decoded directly against that schema — there is
// no intermediate generic-datum representation.
func ConvertAvro(src bytesource.ByteSource, filter *shred.ColumnFilter) (*shred.ListNode, error) {
	c, err := openContainer(src)
	if err != nil {
		return nil, err
	}

	rootImplicit := filter.RootImplicitInclude()
	skeleton := buildSkeleton(c.schema, filter, rootImplicit)
	rec, ok := skeleton.(*shred.RecordNode)
	if !ok {
		return nil, shred.NewError(shred.ErrSchemaConflict, "Avro OCF file schema must be a record")
	}

	root := shred.NewRoot(rec)

	a := newAdapter(nil)
	remaining := int64(0)

	err = shred.DriveRecords(root, a, func() (interface{}, bool, error) {
		for remaining == 0 {
			b, err := nextBlock(c)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil, false, nil
				}
				return nil, false, err
			}
			remaining = b.count
			a.dec = newDecoder(bytes.NewReader(b.data))
		}
		remaining--
		return &position{schema: c.schema, filter: filter, implicit: rootImplicit}, true, nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}
