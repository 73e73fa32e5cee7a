package avro

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/mvilim/bamboo/pkg/shred"
)

// decoder reads Avro binary-encoded primitives off a single io.Reader (one
// OCF block's decompressed byte stream at a time; see avro.go).
type decoder struct {
	r io.Reader
}

func newDecoder(r io.Reader) *decoder { return &decoder{r: r} }

func (d *decoder) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, wrapEOF(err)
	}
	return b[0], nil
}

func wrapEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return shred.WrapError(err, shred.ErrMalformedInput, "unexpected end of Avro stream")
	}
	return shred.WrapError(err, shred.ErrMalformedInput, "failed reading Avro stream")
}

// readLong decodes a zigzag-encoded variable-length long, Avro's encoding
// for both `int` and `long` schema types.
func (d *decoder) readLong() (int64, error) {
	var result uint64
	var shift uint
	for {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, shred.NewError(shred.ErrMalformedInput, "varint too long")
		}
	}
	return int64(result>>1) ^ -int64(result&1), nil
}

func (d *decoder) readBoolean() (bool, error) {
	b, err := d.readByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (d *decoder) readFloat() (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, wrapEOF(err)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

func (d *decoder) readDouble() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, wrapEOF(err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

// readBytes decodes Avro's length-prefixed byte string: a long byte count
// followed by that many raw bytes. Used for both `bytes` and `string`.
func (d *decoder) readBytes() ([]byte, error) {
	n, err := d.readLong()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, shred.NewError(shred.ErrMalformedInput, "negative byte-string length")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, wrapEOF(err)
	}
	return buf, nil
}

func (d *decoder) readFixed(size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, wrapEOF(err)
	}
	return buf, nil
}

// skip discards n raw bytes without allocating a slice to hold them.
func (d *decoder) skip(n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, d.r, n); err != nil {
		return wrapEOF(err)
	}
	return nil
}

// blockReader iterates an Avro block-encoded sequence (array or map)
// item-by-item: each block starts with a zigzag long count; a negative
// count is followed by a long byte-size of the block (skipped over here,
// since ordinary iteration always decodes every item; see skipArray for
// the fast path that uses it), then the block's absolute item count of
// values. A count of zero ends the sequence.
type blockReader struct {
	d         *decoder
	remaining int64
}

func newBlockReader(d *decoder) *blockReader {
	return &blockReader{d: d}
}

// next advances to the next item, returning ok=false once the sequence
// ends (a zero-count block).
func (b *blockReader) next() (ok bool, err error) {
	for b.remaining == 0 {
		count, err := b.d.readLong()
		if err != nil {
			return false, err
		}
		if count == 0 {
			return false, nil
		}
		if count < 0 {
			count = -count
			if _, err := b.d.readLong(); err != nil { // block byte size, unused here
				return false, err
			}
		}
		b.remaining = count
	}
	b.remaining--
	return true, nil
}

// skipArray discards an entire array value without building any node,
// used when the column filter excludes the field. It takes the fast path
// (skip the block's declared byte size in one read) whenever the encoder
// supplied one, and otherwise skips each item individually via skipValue.
func skipArray(d *decoder, item *cnode) error {
	for {
		count, err := d.readLong()
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if count < 0 {
			count = -count
			size, err := d.readLong()
			if err != nil {
				return err
			}
			if err := d.skip(size); err != nil {
				return err
			}
			continue
		}
		for i := int64(0); i < count; i++ {
			if err := skipValue(d, item); err != nil {
				return err
			}
		}
	}
}
