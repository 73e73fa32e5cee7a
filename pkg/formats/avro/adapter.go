package avro

import (
	"github.com/mvilim/bamboo/pkg/shred"
)

// position is what flows through pkg/shred's generic Convert as a "datum":
// a spot in the (schema, column filter) tree rather than a decoded value,
// since the Avro direct path decodes lazily as the converter visits each
// node (spec §4.5's decoder-coupled adapter). filter/implicit mirror
// column_filtered's own recursion parameters exactly, threaded per call
// site rather than memoized by schema-node pointer, since a named Avro
// type may be referenced from more than one position with different
// filters.
type position struct {
	schema   *cnode
	filter   *shred.ColumnFilter
	implicit bool
}

type adapter struct {
	dec   *decoder
	dicts map[*cnode]*shred.EnumDict
}

func newAdapter(dec *decoder) *adapter {
	return &adapter{dec: dec, dicts: make(map[*cnode]*shred.EnumDict)}
}

func (a *adapter) dictFor(schema *cnode) *shred.EnumDict {
	if d, ok := a.dicts[schema]; ok {
		return d
	}
	d := shred.NewEnumDict(shred.SchemaSource(schema))
	for _, sym := range schema.symbols {
		d.Intern(sym)
	}
	a.dicts[schema] = d
	return d
}

func (a *adapter) Classify(datum interface{}) (shred.NodeKind, error) {
	p := datum.(*position)
	return a.classifySchema(p.schema)
}

// classifySchema resolves a union by reading its index off the wire (the
// only place the direct decoder consumes a union discriminant) and
// classifies the result. Every other adapter method re-derives the
// resolved branch's *shape* via the static, wire-free resolveUnion, since
// the discriminant was already consumed here: one method does the decode,
// the rest only resolve the already-known branch's shape.
func (a *adapter) classifySchema(schema *cnode) (shred.NodeKind, error) {
	if schema.typ == tUnion {
		idx, err := a.dec.readLong()
		if err != nil {
			return shred.Incomplete, err
		}
		if idx < 0 || int(idx) >= len(schema.union) {
			return shred.Incomplete, shred.NewError(shred.ErrMalformedInput, "union index out of range")
		}
		branch := schema.union[idx]
		if branch.typ == tNull {
			return shred.Incomplete, nil
		}
		return a.classifySchema(branch)
	}
	switch schema.typ {
	case tRecord:
		return shred.Record, nil
	case tArray:
		return shred.List, nil
	case tMap:
		return shred.Incomplete, shred.NewError(shred.ErrNotImplemented, "Avro map values are not implemented")
	default:
		return shred.Primitive, nil
	}
}

func (a *adapter) Fields(datum interface{}) (shred.FieldIterator, error) {
	p := datum.(*position)
	resolved, err := resolveUnion(p.schema)
	if err != nil {
		return nil, err
	}
	if resolved.typ != tRecord {
		return nil, shred.NewError(shred.ErrSchemaConflict, "expected record type")
	}
	included := p.filter.Included(p.implicit)
	return &fieldIterator{a: a, fields: resolved.fields, filter: p.filter, implicit: included}, nil
}

func (a *adapter) List(datum interface{}) (shred.ListIterator, error) {
	p := datum.(*position)
	resolved, err := resolveUnion(p.schema)
	if err != nil {
		return nil, err
	}
	if resolved.typ != tArray {
		return nil, shred.NewError(shred.ErrSchemaConflict, "expected array type")
	}
	return &listIterator{blocks: newBlockReader(a.dec), item: resolved.item, filter: p.filter, implicit: p.implicit}, nil
}

func (a *adapter) AddPrimitive(node *shred.PrimitiveNode, datum interface{}) error {
	p := datum.(*position)
	resolved, err := resolveUnion(p.schema)
	if err != nil {
		return err
	}
	return a.decodePrimitive(node, resolved)
}

func (a *adapter) decodePrimitive(node *shred.PrimitiveNode, schema *cnode) error {
	switch schema.typ {
	case tBoolean:
		v, err := a.dec.readBoolean()
		if err != nil {
			return err
		}
		return node.Add(v)
	case tInt:
		v, err := a.dec.readLong()
		if err != nil {
			return err
		}
		return node.AddByType(shred.INT32, int32(v))
	case tLong:
		v, err := a.dec.readLong()
		if err != nil {
			return err
		}
		return node.Add(v)
	case tFloat:
		v, err := a.dec.readFloat()
		if err != nil {
			return err
		}
		return node.Add(v)
	case tDouble:
		v, err := a.dec.readDouble()
		if err != nil {
			return err
		}
		return node.Add(v)
	case tBytes:
		v, err := a.dec.readBytes()
		if err != nil {
			return err
		}
		return node.Add(v)
	case tString:
		v, err := a.dec.readBytes()
		if err != nil {
			return err
		}
		_, err = node.AddString(string(v))
		return err
	case tFixed:
		v, err := a.dec.readFixed(schema.size)
		if err != nil {
			return err
		}
		return node.AddByType(shred.BYTE_ARRAY, v)
	case tEnum:
		idx, err := a.dec.readLong()
		if err != nil {
			return err
		}
		return node.AddEnum(a.dictFor(schema), uint32(idx))
	default:
		return shred.NewError(shred.ErrNotImplemented, "unsupported Avro primitive type").
			WithDetail("type", schema.typ.String())
	}
}

type fieldIterator struct {
	a        *adapter
	fields   []cfield
	filter   *shred.ColumnFilter
	implicit bool
	pos      int
	err      error
}

// Err reports a skip-time decode failure encountered while discarding an
// excluded field's wire bytes. Convert's field-driving loop checks this
// after Next returns false, alongside the normal end-of-fields case.
func (it *fieldIterator) Err() error { return it.err }

func (it *fieldIterator) Next() (string, interface{}, bool) {
	for it.pos < len(it.fields) {
		f := it.fields[it.pos]
		it.pos++
		fieldFilter := it.filter.Field(f.name)
		if wouldSurvive(f.schema, fieldFilter, it.implicit) {
			return f.name, &position{schema: f.schema, filter: fieldFilter, implicit: it.implicit}, true
		}
		if err := skipValue(it.a.dec, f.schema); err != nil {
			// FieldIterator.Next has no error return of its own; stash the
			// failure for the driver to pick up via Err after iteration
			// stops, matching how convertRecord already checks for a
			// terminal error once Next reports no more fields.
			it.pos = len(it.fields)
			it.err = err
			return "", nil, false
		}
	}
	return "", nil, false
}

type listIterator struct {
	blocks   *blockReader
	item     *cnode
	filter   *shred.ColumnFilter
	implicit bool
	err      error
}

func (it *listIterator) Err() error { return it.err }

func (it *listIterator) Next() (interface{}, bool) {
	ok, err := it.blocks.next()
	if err != nil {
		it.err = err
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &position{schema: it.item, filter: it.filter, implicit: it.implicit}, true
}

// wouldSurvive walks a schema position the same way the column filter's
// record/list pruning rules do, as a boolean predicate rather than a schema
// rewrite: it decides in-place whether the position would be kept under
// filter/implicit without allocating a pruned schema. Used by fieldIterator
// to decide skip-vs-emit for each writer-schema field, since the wire must
// stay byte-aligned across excluded fields even though no node is ever
// built for them.
func wouldSurvive(schema *cnode, filter *shred.ColumnFilter, implicit bool) bool {
	included := filter.Included(implicit)
	switch schema.typ {
	case tRecord:
		for _, f := range schema.fields {
			if wouldSurvive(f.schema, filter.Field(f.name), included) {
				return true
			}
		}
		return false
	case tArray:
		return wouldSurvive(schema.item, filter, implicit)
	case tUnion:
		for _, b := range schema.union {
			if b.typ != tNull && wouldSurvive(b, filter, implicit) {
				return true
			}
		}
		return false
	default:
		return included
	}
}
