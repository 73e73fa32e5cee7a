package protobuf

import (
	"bufio"
	"errors"
	"io"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/mvilim/bamboo/pkg/bufpool"
	"github.com/mvilim/bamboo/pkg/bytesource"
	"github.com/mvilim/bamboo/pkg/shred"
)

// ConvertPBD shreds a stream of varint-length-prefixed Protobuf messages
// read from src into a List(Record) root node, applying filter (nil means
// no filtering) to prune excluded columns. msgDescriptor supplies the
// schema a raw wire decode has no way to recover on its own: the caller
// gets it from protodesc.NewFile (a self-describing FileDescriptorProto,
// per spec.md §6's byte-source contract) or straight from generated code's
// (*T)(nil).ProtoReflect().Descriptor(). Per spec.md §4.8, the descriptor
// is walked once up front to build the node skeleton and a wire-number
// lookup table; nothing about the message shape is rediscovered per record.
func ConvertPBD(src bytesource.ByteSource, msgDescriptor protoreflect.MessageDescriptor, filter *shred.ColumnFilter) (*shred.ListNode, error) {
	rootImplicit := filter.RootImplicitInclude()
	desc, err := buildMessageDescriptor(msgDescriptor, filter, rootImplicit)
	if err != nil {
		return nil, err
	}
	rec := buildSkeleton(desc)
	root := shred.NewRoot(rec)

	a := newAdapter()
	br := bufio.NewReader(bytesource.Reader(src))

	// scratch holds the current record's raw message bytes, drawn from
	// bufpool.Get and returned via bufpool.Put as soon as the next record is
	// requested (or the stream ends): DriveRecords calls Convert on each
	// datum before pulling the next one, so exactly one message body is ever
	// in flight, and every scalar value that outlives it (strings, byte
	// slices) is already copied out by decodePrimitiveValue.
	var scratch []byte
	err = shred.DriveRecords(root, a, func() (interface{}, bool, error) {
		if scratch != nil {
			bufpool.Put(scratch)
			scratch = nil
		}
		n, err := readUvarint(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, false, nil
			}
			return nil, false, shred.WrapError(err, shred.ErrMalformedInput, "failed to read protobuf message length prefix")
		}
		scratch = bufpool.Get(int(n))
		if _, err := io.ReadFull(br, scratch); err != nil {
			return nil, false, shred.WrapError(err, shred.ErrMalformedInput, "failed to read protobuf message body")
		}
		return &messageDatum{desc: desc, dec: &decoder{buf: scratch}}, true, nil
	})
	if scratch != nil {
		bufpool.Put(scratch)
	}
	if err != nil {
		return nil, err
	}
	return root, nil
}

// readUvarint reads one base-128 varint length prefix off r, propagating a
// clean io.EOF only when it occurs before any byte of the varint has been
// read (the boundary between one record and the next).
func readUvarint(r *bufio.Reader) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i == 0 {
				return 0, err
			}
			return 0, shred.NewError(shred.ErrMalformedInput, "truncated protobuf message length prefix")
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, shred.NewError(shred.ErrMalformedInput, "protobuf message length prefix overflows 64 bits")
		}
	}
}
