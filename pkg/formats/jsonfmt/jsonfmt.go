// Package jsonfmt implements shred.Adapter over documents decoded from
// goccy/go-json, the JSON adapter of spec.md §4.7.
package jsonfmt

import (
	"math"

	gojson "github.com/goccy/go-json"

	"github.com/mvilim/bamboo/pkg/shred"
)

// adapter classifies and iterates plain Go values produced by
// json.Decoder.Decode(&interface{}) with UseNumber enabled: nil, bool,
// json.Number, string, []interface{}, map[string]interface{}.
type adapter struct{}

func (adapter) Classify(datum interface{}) (shred.NodeKind, error) {
	switch datum.(type) {
	case nil:
		return shred.Incomplete, nil
	case []interface{}:
		return shred.List, nil
	case map[string]interface{}:
		return shred.Record, nil
	default:
		return shred.Primitive, nil
	}
}

func (adapter) Fields(datum interface{}) (shred.FieldIterator, error) {
	m := datum.(map[string]interface{})
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// go-json decodes objects into a plain map, which does not retain
	// source member order; spec §6's "iterators walk object members
	// preserving parser order" therefore only strictly applies to formats
	// with an ordered field iterator (Avro schema order, Protobuf wire
	// order). Column identity here is by name, not position, so this does
	// not affect which values land in which column, only field discovery
	// order for previously-unseen keys.
	return &fieldIterator{m: m, keys: keys}, nil
}

func (adapter) List(datum interface{}) (shred.ListIterator, error) {
	s := datum.([]interface{})
	return &listIterator{s: s}, nil
}

func (adapter) AddPrimitive(node *shred.PrimitiveNode, datum interface{}) error {
	switch v := datum.(type) {
	case bool:
		return node.Add(v)
	case string:
		return node.Add(v)
	case gojson.Number:
		return addNumber(node, v)
	default:
		return shred.NewError(shred.ErrTypeMismatch, "unrecognized JSON primitive value")
	}
}

// addNumber classifies a decoded JSON number per spec §4.7 ("unsigned
// integers -> UINT64, signed -> INT64, floats -> FLOAT64"); see DESIGN.md's
// Open Question decision 6 for why plain non-negative integer literals
// classify as INT64 here rather than UINT64, reserving UINT64 for literals
// that overflow int64.
func addNumber(node *shred.PrimitiveNode, n gojson.Number) error {
	if i, err := n.Int64(); err == nil {
		return node.Add(i)
	}
	if u, err := parseUint64(string(n)); err == nil {
		return node.Add(u)
	}
	f, err := n.Float64()
	if err != nil {
		return shred.WrapError(err, shred.ErrMalformedInput, "invalid JSON number literal")
	}
	return node.Add(f)
}

func parseUint64(s string) (uint64, error) {
	var v uint64
	if len(s) == 0 {
		return 0, shred.NewError(shred.ErrMalformedInput, "empty numeric literal")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, shred.NewError(shred.ErrMalformedInput, "not a plain unsigned integer literal")
		}
		if v > (math.MaxUint64-uint64(c-'0'))/10 {
			return 0, shred.NewError(shred.ErrMalformedInput, "unsigned integer literal overflow")
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil
}

type fieldIterator struct {
	m    map[string]interface{}
	keys []string
	pos  int
}

func (it *fieldIterator) Next() (string, interface{}, bool) {
	if it.pos >= len(it.keys) {
		return "", nil, false
	}
	k := it.keys[it.pos]
	it.pos++
	return k, it.m[k], true
}

type listIterator struct {
	s   []interface{}
	pos int
}

func (it *listIterator) Next() (interface{}, bool) {
	if it.pos >= len(it.s) {
		return nil, false
	}
	v := it.s[it.pos]
	it.pos++
	return v, true
}
