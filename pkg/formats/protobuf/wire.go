package protobuf

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/mvilim/bamboo/pkg/shred"
)

// decoder is a cursor over one message body. A submessage or a packed
// repeated field's payload is extracted as its own []byte via
// protowire.ConsumeBytes and handed to a fresh decoder rather than pushing
// a limit onto a shared cursor: the two are equivalent (the slice's own
// length is the limit) and the slice-per-scope form needs no explicit
// stack, matching how idiomatic Go protobuf decoders are written.
type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) done() bool {
	return d.pos >= len(d.buf)
}

func (d *decoder) tag() (protowire.Number, protowire.Type, error) {
	num, typ, n := protowire.ConsumeTag(d.buf[d.pos:])
	if n < 0 {
		return 0, 0, shred.NewError(shred.ErrMalformedInput, "invalid protobuf tag")
	}
	d.pos += n
	return num, typ, nil
}

func (d *decoder) varint() (uint64, error) {
	v, n := protowire.ConsumeVarint(d.buf[d.pos:])
	if n < 0 {
		return 0, shred.NewError(shred.ErrMalformedInput, "invalid protobuf varint")
	}
	d.pos += n
	return v, nil
}

func (d *decoder) fixed32() (uint32, error) {
	v, n := protowire.ConsumeFixed32(d.buf[d.pos:])
	if n < 0 {
		return 0, shred.NewError(shred.ErrMalformedInput, "invalid protobuf fixed32")
	}
	d.pos += n
	return v, nil
}

func (d *decoder) fixed64() (uint64, error) {
	v, n := protowire.ConsumeFixed64(d.buf[d.pos:])
	if n < 0 {
		return 0, shred.NewError(shred.ErrMalformedInput, "invalid protobuf fixed64")
	}
	d.pos += n
	return v, nil
}

func (d *decoder) bytesVal() ([]byte, error) {
	v, n := protowire.ConsumeBytes(d.buf[d.pos:])
	if n < 0 {
		return nil, shred.NewError(shred.ErrMalformedInput, "invalid protobuf length-delimited value")
	}
	d.pos += n
	return v, nil
}

// skip discards one field value of the given wire type, for a field number
// the message descriptor doesn't know about. Groups are refused outright
// rather than skipped: spec.md's error taxonomy treats them as an
// unsupported wire construct, not a value that merely goes unread.
func (d *decoder) skip(num protowire.Number, typ protowire.Type) error {
	if typ == protowire.StartGroupType || typ == protowire.EndGroupType {
		return shred.NewError(shred.ErrUnsupportedGroups, "protobuf groups are not supported")
	}
	n := protowire.ConsumeFieldValue(num, typ, d.buf[d.pos:])
	if n < 0 {
		return shred.NewError(shred.ErrMalformedInput, "invalid protobuf field value")
	}
	d.pos += n
	return nil
}

// packable reports whether fd's kind is eligible for the packed wire
// representation of a repeated field (length-delimited run of raw values,
// no per-element tag). Matches protowire's own IsPacked contract: numeric
// and enum scalars only, never string/bytes/message.
func packable(fd protoreflect.FieldDescriptor) bool {
	switch fd.Kind() {
	case protoreflect.BoolKind, protoreflect.EnumKind,
		protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind,
		protoreflect.FloatKind, protoreflect.DoubleKind:
		return true
	default:
		return false
	}
}

// readValueDatum decodes one occurrence of fd's value from dec (the tag is
// already consumed) into the datum shape shred.Convert dispatches on: a
// *messageDatum for a message-kind field (recursing into its own byte
// slice), or a *scalarDatum otherwise. It is used both for a singular
// field's single occurrence and for one element of a repeated field.
func readValueDatum(dec *decoder, entry fieldEntry, dicts *enumDicts) (interface{}, error) {
	if entry.fd.Kind() == protoreflect.MessageKind || entry.fd.Kind() == protoreflect.GroupKind {
		if entry.fd.Kind() == protoreflect.GroupKind {
			return nil, shred.NewError(shred.ErrUnsupportedGroups, "protobuf groups are not supported")
		}
		if entry.fd.IsMap() {
			return nil, shred.NewError(shred.ErrNotImplemented, "protobuf map fields are not supported")
		}
		raw, err := dec.bytesVal()
		if err != nil {
			return nil, err
		}
		return &messageDatum{desc: entry.child, dec: &decoder{buf: raw}}, nil
	}
	v, err := decodePrimitiveValue(dec, entry.fd, dicts)
	if err != nil {
		return nil, err
	}
	return &scalarDatum{entry: entry, value: v}, nil
}

// decodePrimitiveValue reads one wire-encoded scalar value for fd's kind.
// The wire type isn't consulted: a well-formed message's wire type is
// already determined by the field's declared kind, and a mismatch surfaces
// naturally as a malformed varint/fixed/length read rather than needing a
// separate check here.
func decodePrimitiveValue(dec *decoder, fd protoreflect.FieldDescriptor, dicts *enumDicts) (interface{}, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		v, err := dec.varint()
		if err != nil {
			return nil, err
		}
		return v != 0, nil
	case protoreflect.Int32Kind:
		v, err := dec.varint()
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case protoreflect.Sint32Kind:
		v, err := dec.varint()
		if err != nil {
			return nil, err
		}
		return int32(protowire.DecodeZigZag(v)), nil
	case protoreflect.Sfixed32Kind:
		v, err := dec.fixed32()
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case protoreflect.Uint32Kind:
		v, err := dec.varint()
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	case protoreflect.Fixed32Kind:
		v, err := dec.fixed32()
		if err != nil {
			return nil, err
		}
		return v, nil
	case protoreflect.Int64Kind:
		v, err := dec.varint()
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case protoreflect.Sint64Kind:
		v, err := dec.varint()
		if err != nil {
			return nil, err
		}
		return protowire.DecodeZigZag(v), nil
	case protoreflect.Sfixed64Kind:
		v, err := dec.fixed64()
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case protoreflect.Uint64Kind:
		v, err := dec.varint()
		if err != nil {
			return nil, err
		}
		return v, nil
	case protoreflect.Fixed64Kind:
		v, err := dec.fixed64()
		if err != nil {
			return nil, err
		}
		return v, nil
	case protoreflect.FloatKind:
		v, err := dec.fixed32()
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(v), nil
	case protoreflect.DoubleKind:
		v, err := dec.fixed64()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(v), nil
	case protoreflect.StringKind:
		v, err := dec.bytesVal()
		if err != nil {
			return nil, err
		}
		return string(v), nil
	case protoreflect.BytesKind:
		v, err := dec.bytesVal()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), v...), nil
	case protoreflect.EnumKind:
		v, err := dec.varint()
		if err != nil {
			return nil, err
		}
		return decodeEnumValue(fd, protoreflect.EnumNumber(int32(v)), dicts)
	default:
		return nil, shred.NewError(shred.ErrNotImplemented, "unsupported protobuf field kind").
			WithDetail("kind", fd.Kind().String())
	}
}

func decodeEnumValue(fd protoreflect.FieldDescriptor, number protoreflect.EnumNumber, dicts *enumDicts) (interface{}, error) {
	idx, err := dicts.indexOf(fd.Enum(), number)
	if err != nil {
		return nil, err
	}
	return enumValue{dict: dicts.forEnum(fd.Enum()), index: idx}, nil
}
