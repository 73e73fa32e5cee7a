package avro

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/mvilim/bamboo/pkg/shred"
)

// avroType is Avro's schema type tag, compacted (spec §4.5's "CNode") into
// a single small enum so dispatch is a switch, not a string compare.
type avroType int

const (
	tNull avroType = iota
	tBoolean
	tInt
	tLong
	tFloat
	tDouble
	tBytes
	tString
	tRecord
	tEnum
	tArray
	tMap
	tUnion
	tFixed
)

// cnode is the compacted schema node: the source Avro JSON schema, resolved
// (named-type references followed) and reduced to just what the decoder
// needs to dispatch and the converter needs to classify.
type cnode struct {
	typ     avroType
	name    string   // record/enum/fixed
	fields  []cfield // record, in declaration order
	item    *cnode   // array
	values  *cnode   // map (skip-only; spec: map is NotImplemented as a value)
	union   []*cnode // union branches
	symbols []string // enum
	size    int      // fixed byte width
}

type cfield struct {
	name   string
	schema *cnode
}

// parseSchema parses raw Avro JSON schema bytes (the "avro.schema" OCF
// header metadata entry) into a cnode tree, resolving named-type
// back-references via a shared registry, as Avro schemas allow a record,
// enum, or fixed type to be referenced by name anywhere after its
// definition (including recursively within itself).
func parseSchema(schemaJSON []byte) (*cnode, error) {
	var raw interface{}
	if err := gojson.Unmarshal(schemaJSON, &raw); err != nil {
		return nil, shred.WrapError(err, shred.ErrMalformedInput, "invalid Avro schema JSON")
	}
	reg := make(map[string]*cnode)
	return parseNode(raw, reg)
}

func parseNode(raw interface{}, reg map[string]*cnode) (*cnode, error) {
	switch v := raw.(type) {
	case string:
		if n := primitiveByName(v); n != nil {
			return n, nil
		}
		if n, ok := reg[v]; ok {
			return n, nil
		}
		return nil, shred.NewError(shred.ErrMalformedInput, "unresolved Avro schema reference").
			WithDetail("name", v)
	case []interface{}:
		branches := make([]*cnode, 0, len(v))
		for _, b := range v {
			bn, err := parseNode(b, reg)
			if err != nil {
				return nil, err
			}
			branches = append(branches, bn)
		}
		return &cnode{typ: tUnion, union: branches}, nil
	case map[string]interface{}:
		return parseComplex(v, reg)
	default:
		return nil, shred.NewError(shred.ErrMalformedInput, "unrecognized Avro schema shape")
	}
}

func parseComplex(m map[string]interface{}, reg map[string]*cnode) (*cnode, error) {
	typeField, _ := m["type"].(string)
	switch typeField {
	case "record", "error":
		name, _ := m["name"].(string)
		n := &cnode{typ: tRecord, name: name}
		if name != "" {
			reg[name] = n
		}
		rawFields, _ := m["fields"].([]interface{})
		n.fields = make([]cfield, 0, len(rawFields))
		for _, rf := range rawFields {
			fm, ok := rf.(map[string]interface{})
			if !ok {
				return nil, shred.NewError(shred.ErrMalformedInput, "record field must be an object")
			}
			fname, _ := fm["name"].(string)
			fschema, err := parseNode(fm["type"], reg)
			if err != nil {
				return nil, err
			}
			n.fields = append(n.fields, cfield{name: fname, schema: fschema})
		}
		return n, nil
	case "array":
		item, err := parseNode(m["items"], reg)
		if err != nil {
			return nil, err
		}
		return &cnode{typ: tArray, item: item}, nil
	case "map":
		values, err := parseNode(m["values"], reg)
		if err != nil {
			return nil, err
		}
		return &cnode{typ: tMap, values: values}, nil
	case "enum":
		name, _ := m["name"].(string)
		rawSymbols, _ := m["symbols"].([]interface{})
		symbols := make([]string, 0, len(rawSymbols))
		for _, s := range rawSymbols {
			ss, _ := s.(string)
			symbols = append(symbols, ss)
		}
		n := &cnode{typ: tEnum, name: name, symbols: symbols}
		if name != "" {
			reg[name] = n
		}
		return n, nil
	case "fixed":
		name, _ := m["name"].(string)
		size, _ := m["size"].(float64)
		n := &cnode{typ: tFixed, name: name, size: int(size)}
		if name != "" {
			reg[name] = n
		}
		return n, nil
	case "":
		// "type" missing or not a string, e.g. {"type": {...}} nesting
		return nil, shred.NewError(shred.ErrMalformedInput, "schema object missing type")
	default:
		if n := primitiveByName(typeField); n != nil {
			return n, nil
		}
		return nil, shred.NewError(shred.ErrNotImplemented, "unsupported Avro schema type").
			WithDetail("type", typeField)
	}
}

func primitiveByName(name string) *cnode {
	switch name {
	case "null":
		return &cnode{typ: tNull}
	case "boolean":
		return &cnode{typ: tBoolean}
	case "int":
		return &cnode{typ: tInt}
	case "long":
		return &cnode{typ: tLong}
	case "float":
		return &cnode{typ: tFloat}
	case "double":
		return &cnode{typ: tDouble}
	case "bytes":
		return &cnode{typ: tBytes}
	case "string":
		return &cnode{typ: tString}
	default:
		return nil
	}
}

// resolveUnion returns schema's statically-known non-null branch if schema
// is a `null | T` union, or schema itself otherwise. This never touches the
// wire: the runtime choice of branch is read once, by the adapter's
// Classify, via classifySchema's readLong; resolveUnion only recovers the *shape*
// used to interpret whichever branch classification selected (spec §4.5:
// "only null | T unions are supported... otherwise fails with
// UnsupportedUnion").
func resolveUnion(schema *cnode) (*cnode, error) {
	if schema.typ != tUnion {
		return schema, nil
	}
	if len(schema.union) != 2 {
		return nil, shred.NewError(shred.ErrUnsupportedUnion, "only null|T unions are supported").
			WithDetail("branches", len(schema.union))
	}
	var nullBranches, other int
	var nonNull *cnode
	for _, b := range schema.union {
		if b.typ == tNull {
			nullBranches++
		} else {
			other++
			nonNull = b
		}
	}
	if nullBranches != 1 || other != 1 {
		return nil, shred.NewError(shred.ErrUnsupportedUnion, "only null|T unions are supported")
	}
	return nonNull, nil
}

func (t avroType) String() string {
	switch t {
	case tNull:
		return "null"
	case tBoolean:
		return "boolean"
	case tInt:
		return "int"
	case tLong:
		return "long"
	case tFloat:
		return "float"
	case tDouble:
		return "double"
	case tBytes:
		return "bytes"
	case tString:
		return "string"
	case tRecord:
		return "record"
	case tEnum:
		return "enum"
	case tArray:
		return "array"
	case tMap:
		return "map"
	case tUnion:
		return "union"
	case tFixed:
		return "fixed"
	default:
		return fmt.Sprintf("avroType(%d)", int(t))
	}
}
