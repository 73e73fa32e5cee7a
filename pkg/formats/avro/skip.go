package avro

import "github.com/mvilim/bamboo/pkg/shred"

// skipValue discards schema's next encoded value from d without building
// any node. It is the decode-time counterpart of the column filter: a
// field the filter excludes must still be consumed off the wire so
// subsequent fields stay byte-aligned, even though nothing downstream ever
// sees its value. Avro's own C++ binding gets this for free from its
// resolving decoder (reader/writer schema projection); this port hand-rolls
// it since pkg/formats/avro decodes directly rather than depending on a
// full Avro library (see DESIGN.md).
func skipValue(d *decoder, schema *cnode) error {
	switch schema.typ {
	case tNull:
		return nil
	case tBoolean:
		_, err := d.readBoolean()
		return err
	case tInt, tLong:
		_, err := d.readLong()
		return err
	case tFloat:
		_, err := d.readFloat()
		return err
	case tDouble:
		_, err := d.readDouble()
		return err
	case tBytes, tString:
		_, err := d.readBytes()
		return err
	case tFixed:
		_, err := d.readFixed(schema.size)
		return err
	case tEnum:
		_, err := d.readLong()
		return err
	case tRecord:
		for _, f := range schema.fields {
			if err := skipValue(d, f.schema); err != nil {
				return err
			}
		}
		return nil
	case tArray:
		return skipArray(d, schema.item)
	case tMap:
		return skipMap(d, schema.values)
	case tUnion:
		idx, err := d.readLong()
		if err != nil {
			return err
		}
		if idx < 0 || int(idx) >= len(schema.union) {
			return shred.NewError(shred.ErrMalformedInput, "union index out of range")
		}
		return skipValue(d, schema.union[idx])
	default:
		return shred.NewError(shred.ErrNotImplemented, "cannot skip unrecognized Avro schema type")
	}
}

func skipMap(d *decoder, values *cnode) error {
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
			if _, err := d.readBytes(); err != nil { // map key
				return err
			}
			if err := skipValue(d, values); err != nil {
				return err
			}
		}
	}
}
