package jsonfmt

import (
	"io"

	"github.com/mvilim/bamboo/pkg/bytesource"
	"github.com/mvilim/bamboo/pkg/jsonpool"
	"github.com/mvilim/bamboo/pkg/shred"
)

// ConvertJSON reads the single top-level JSON value on src and shreds it
// into a List(Record) root, per spec §4.7/§6. The top-level value is
// usually an array of objects, each element becoming one record; a bare
// top-level object is also accepted and treated as a single-record stream.
func ConvertJSON(src bytesource.ByteSource) (*shred.ListNode, error) {
	dec := jsonpool.GetDecoder(bytesource.Reader(src))
	defer jsonpool.PutDecoder(dec)

	var top interface{}
	if err := dec.Decode(&top); err != nil {
		if err == io.EOF {
			return nil, shred.NewError(shred.ErrMalformedInput, "empty JSON input")
		}
		return nil, shred.WrapError(err, shred.ErrMalformedInput, "failed to decode JSON document")
	}

	root := shred.NewRoot(nil)
	a := adapter{}

	if records, ok := top.([]interface{}); ok {
		i := 0
		err := shred.DriveRecords(root, a, func() (interface{}, bool, error) {
			if i >= len(records) {
				return nil, false, nil
			}
			d := records[i]
			i++
			return d, true, nil
		})
		return root, err
	}

	consumed := false
	err := shred.DriveRecords(root, a, func() (interface{}, bool, error) {
		if consumed {
			return nil, false, nil
		}
		consumed = true
		return top, true, nil
	})
	return root, err
}
