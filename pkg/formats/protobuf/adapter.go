package protobuf

import (
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/mvilim/bamboo/pkg/shred"
)

// messageDatum is a present message occurrence: its column-filtered
// descriptor plus a decoder scoped to exactly its own bytes (the top-level
// message body, or a submessage's length-delimited payload already sliced
// out by readValueDatum).
type messageDatum struct {
	desc *messageDescriptor
	dec  *decoder
}

// absentDatum marks a singular message-kind field whose tag never appeared
// on the wire. Classify reports it Incomplete rather than Record: an absent
// singular message is a genuine null, not a present-but-fully-defaulted
// record (matching how a HasField()-style presence check on a message field
// gates a proper null rather than an all-defaults value). Convert's own
// Incomplete case (pkg/shred/convert.go) then does the cascading — since
// this field's node was pre-built as a concrete RecordNode by buildSkeleton
// rather than left Incomplete, propagateAbsence walks straight into its
// already-known descendants, which is exactly the "every descendant column
// registers a null at the correct position" behavior. See DESIGN.md's
// resolution of this field's presence semantics.
type absentDatum struct{}

var theAbsentDatum = &absentDatum{}

// scalarDatum is one non-message field value: a real decoded value, or (if
// missing) a request to backfill fd's declared default.
type scalarDatum struct {
	entry   fieldEntry
	value   interface{}
	missing bool
}

// listDatum is one repeated field occurrence, in one of three shapes: an
// already-extracted packed payload, an unpacked run still living in the
// parent decoder (owner), or a missing (present-but-empty) repetition.
type listDatum struct {
	entry     fieldEntry
	missing   bool
	packed    bool
	packedDec *decoder
	owner     *fieldIterator
	firstTyp  protowire.Type
}

type adapter struct {
	dicts *enumDicts
}

func newAdapter() *adapter {
	return &adapter{dicts: newEnumDicts()}
}

func (a *adapter) Classify(datum interface{}) (shred.NodeKind, error) {
	switch datum.(type) {
	case *messageDatum:
		return shred.Record, nil
	case *absentDatum:
		return shred.Incomplete, nil
	case *listDatum:
		return shred.List, nil
	case *scalarDatum:
		return shred.Primitive, nil
	default:
		return shred.Incomplete, shred.NewError(shred.ErrSchemaConflict, "unrecognized protobuf datum")
	}
}

func (a *adapter) Fields(datum interface{}) (shred.FieldIterator, error) {
	md, ok := datum.(*messageDatum)
	if !ok {
		return nil, shred.NewError(shred.ErrSchemaConflict, "expected a present protobuf message")
	}
	return &fieldIterator{
		dec:       md.dec,
		desc:      md.desc,
		dicts:     a.dicts,
		processed: make([]bool, len(md.desc.fields)),
	}, nil
}

func (a *adapter) List(datum interface{}) (shred.ListIterator, error) {
	ld, ok := datum.(*listDatum)
	if !ok {
		return nil, shred.NewError(shred.ErrSchemaConflict, "expected a protobuf repeated field")
	}
	if ld.missing {
		return &listIterator{done: true}, nil
	}
	if ld.packed {
		return &listIterator{packed: true, dec: ld.packedDec, entry: ld.entry, dicts: a.dicts}, nil
	}
	return &listIterator{
		entry:      ld.entry,
		dicts:      a.dicts,
		owner:      ld.owner,
		pendingTyp: ld.firstTyp,
		hasPending: true,
	}, nil
}

func (a *adapter) AddPrimitive(node *shred.PrimitiveNode, datum interface{}) error {
	d, ok := datum.(*scalarDatum)
	if !ok {
		return shred.NewError(shred.ErrSchemaConflict, "expected a protobuf scalar value")
	}
	if d.missing {
		return addDefaultValue(node, d.entry, a.dicts)
	}
	if ev, ok := d.value.(enumValue); ok {
		return node.AddEnum(ev.dict, ev.index)
	}
	switch v := d.value.(type) {
	case bool:
		return node.Add(v)
	case int32:
		return node.Add(v)
	case int64:
		return node.Add(v)
	case uint32:
		return node.Add(v)
	case uint64:
		return node.Add(v)
	case float32:
		return node.Add(v)
	case float64:
		return node.Add(v)
	case string:
		_, err := node.AddString(v)
		return err
	case []byte:
		return node.AddByType(shred.BYTE_ARRAY, v)
	default:
		return shred.NewError(shred.ErrTypeMismatch, "unrecognized protobuf scalar value")
	}
}

// addDefaultValue backfills fd's declared default for a field whose tag
// never appeared on the wire, per spec.md §4.8's missing-pass and worked
// example S3. protoreflect.FieldDescriptor.Default() already resolves
// proto2 explicit defaults and proto3 implicit zero values uniformly, so
// there is no separate proto2-vs-proto3 branch here.
func addDefaultValue(node *shred.PrimitiveNode, entry fieldEntry, dicts *enumDicts) error {
	fd := entry.fd
	if fd.Kind() == protoreflect.EnumKind {
		dv := fd.Default().Enum()
		idx, err := dicts.indexOf(fd.Enum(), dv)
		if err != nil {
			return err
		}
		return node.AddEnum(dicts.forEnum(fd.Enum()), idx)
	}
	dv := fd.Default()
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return node.Add(dv.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return node.Add(int32(dv.Int()))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return node.Add(dv.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return node.Add(uint32(dv.Uint()))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return node.Add(dv.Uint())
	case protoreflect.FloatKind:
		return node.Add(float32(dv.Float()))
	case protoreflect.DoubleKind:
		return node.Add(dv.Float())
	case protoreflect.StringKind:
		_, err := node.AddString(dv.String())
		return err
	case protoreflect.BytesKind:
		return node.AddByType(shred.BYTE_ARRAY, append([]byte(nil), dv.Bytes()...))
	default:
		return shred.NewError(shred.ErrNotImplemented, "unsupported protobuf default value kind").
			WithDetail("kind", fd.Kind().String())
	}
}

// fieldIterator walks one message body's wire bytes, tag by tag, emitting
// (field name, datum) pairs in wire order for the fields the descriptor
// knows about (an unknown field number is skipped rather than yielded, per
// spec.md §4.8 point 4), then falls through to a missing pass over every
// declared field the wire never touched, per spec.md §4.8's missing-field
// backfill semantics.
type fieldIterator struct {
	dec       *decoder
	desc      *messageDescriptor
	dicts     *enumDicts
	processed []bool

	missing    bool
	missingPos int

	hasReadAhead bool
	readAheadNum protowire.Number
	readAheadTyp protowire.Type

	err error
}

func (it *fieldIterator) Err() error { return it.err }

// stashReadAhead records a tag a repeated field's ListIterator peeked and
// found didn't belong to it, so this iterator's next Next() call picks up
// there instead of reading a fresh tag off the wire.
func (it *fieldIterator) stashReadAhead(num protowire.Number, typ protowire.Type) {
	it.hasReadAhead = true
	it.readAheadNum = num
	it.readAheadTyp = typ
}

func (it *fieldIterator) Next() (string, interface{}, bool) {
	if it.err != nil {
		return "", nil, false
	}
	if it.missing {
		return it.nextMissing()
	}
	for {
		var num protowire.Number
		var typ protowire.Type
		if it.hasReadAhead {
			num, typ = it.readAheadNum, it.readAheadTyp
			it.hasReadAhead = false
		} else {
			if it.dec.done() {
				it.missing = true
				it.missingPos = 0
				return it.nextMissing()
			}
			n, t, err := it.dec.tag()
			if err != nil {
				it.err = err
				return "", nil, false
			}
			num, typ = n, t
		}
		if typ == protowire.StartGroupType || typ == protowire.EndGroupType {
			it.err = shred.NewError(shred.ErrUnsupportedGroups, "protobuf groups are not supported")
			return "", nil, false
		}
		idx, ok := it.desc.byNumber[num]
		if !ok {
			if err := it.dec.skip(num, typ); err != nil {
				it.err = err
				return "", nil, false
			}
			continue
		}
		entry := it.desc.fields[idx]
		it.processed[idx] = true

		if entry.fd.IsList() {
			ld, err := it.newListDatum(entry, typ)
			if err != nil {
				it.err = err
				return "", nil, false
			}
			return string(entry.fd.Name()), ld, true
		}
		val, err := readValueDatum(it.dec, entry, it.dicts)
		if err != nil {
			it.err = err
			return "", nil, false
		}
		return string(entry.fd.Name()), val, true
	}
}

// newListDatum decides packed vs unpacked for the tag that just fired. A
// packed run is a single length-delimited blob consumed in full here; an
// unpacked run leaves its first element's value still unread, remembered
// as firstTyp for the ListIterator's first Next() call.
func (it *fieldIterator) newListDatum(entry fieldEntry, typ protowire.Type) (*listDatum, error) {
	if typ == protowire.BytesType && packable(entry.fd) {
		raw, err := it.dec.bytesVal()
		if err != nil {
			return nil, err
		}
		return &listDatum{entry: entry, packed: true, packedDec: &decoder{buf: raw}}, nil
	}
	return &listDatum{entry: entry, owner: it, firstTyp: typ}, nil
}

func (it *fieldIterator) nextMissing() (string, interface{}, bool) {
	for it.missingPos < len(it.desc.fields) {
		idx := it.missingPos
		it.missingPos++
		if it.processed[idx] {
			continue
		}
		it.processed[idx] = true
		entry := it.desc.fields[idx]
		return string(entry.fd.Name()), missingDatumFor(entry), true
	}
	return "", nil, false
}

// missingDatumFor picks the right "field never appeared" shape: an empty
// repetition for a repeated field (protobuf gives no wire-level way to
// distinguish an unset repeated field from an explicitly empty one, so
// both are simply empty), a genuine absence for a singular message field,
// or a default-backfill request for a singular scalar field.
func missingDatumFor(entry fieldEntry) interface{} {
	if entry.fd.IsList() {
		return &listDatum{entry: entry, missing: true}
	}
	if entry.fd.Kind() == protoreflect.MessageKind {
		return theAbsentDatum
	}
	return &scalarDatum{entry: entry, missing: true}
}

// listIterator produces successive elements of one repeated field
// occurrence. The packed and unpacked cases share nothing but the
// interface: packed reads flat values out of its own already-extracted
// decoder until exhausted, while unpacked reads tags out of the shared
// parent decoder and stops the moment a different field's tag appears,
// stashing it on owner for the parent fieldIterator to pick up.
type listIterator struct {
	entry fieldEntry
	dicts *enumDicts
	err   error
	done  bool

	packed bool
	dec    *decoder

	owner      *fieldIterator
	pendingTyp protowire.Type
	hasPending bool
}

func (it *listIterator) Err() error { return it.err }

func (it *listIterator) Next() (interface{}, bool) {
	if it.done || it.err != nil {
		return nil, false
	}
	if it.packed {
		return it.nextPacked()
	}
	return it.nextUnpacked()
}

func (it *listIterator) nextPacked() (interface{}, bool) {
	if it.dec.done() {
		it.done = true
		return nil, false
	}
	v, err := decodePrimitiveValue(it.dec, it.entry.fd, it.dicts)
	if err != nil {
		it.err = err
		it.done = true
		return nil, false
	}
	return &scalarDatum{entry: it.entry, value: v}, true
}

func (it *listIterator) nextUnpacked() (interface{}, bool) {
	if it.hasPending {
		it.hasPending = false
	} else {
		if it.owner.dec.done() {
			it.done = true
			return nil, false
		}
		num, typ, err := it.owner.dec.tag()
		if err != nil {
			it.err = err
			it.done = true
			return nil, false
		}
		if num != it.entry.fd.Number() {
			it.owner.stashReadAhead(num, typ)
			it.done = true
			return nil, false
		}
		it.pendingTyp = typ
	}
	val, err := readValueDatum(it.owner.dec, it.entry, it.dicts)
	if err != nil {
		it.err = err
		it.done = true
		return nil, false
	}
	return val, true
}
