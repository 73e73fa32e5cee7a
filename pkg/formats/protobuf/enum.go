package protobuf

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/mvilim/bamboo/pkg/shred"
)

// enumValue is the intermediate carrier for a decoded enum occurrence,
// distinguished from a plain scalar so AddPrimitive can route it to
// node.AddEnum instead of node.Add.
type enumValue struct {
	dict  *shred.EnumDict
	index uint32
}

// enumDicts hands out one shared EnumDict per protoreflect.EnumDescriptor,
// pre-populated with every declared value name up front, the same way
// pkg/formats/avro/adapter.go's dictFor pre-populates from an Avro schema's
// symbol list. A wire-decoded enum number is resolved directly to a
// dictionary index via ByNumber, never interned dynamically.
type enumDicts struct {
	dicts map[protoreflect.EnumDescriptor]*shred.EnumDict
}

func newEnumDicts() *enumDicts {
	return &enumDicts{dicts: make(map[protoreflect.EnumDescriptor]*shred.EnumDict)}
}

func (e *enumDicts) forEnum(ed protoreflect.EnumDescriptor) *shred.EnumDict {
	if d, ok := e.dicts[ed]; ok {
		return d
	}
	d := shred.NewEnumDict(shred.SchemaSource(ed))
	values := ed.Values()
	for i := 0; i < values.Len(); i++ {
		d.Intern(string(values.Get(i).Name()))
	}
	e.dicts[ed] = d
	return d
}

// indexOf resolves a wire-decoded enum number to its dictionary index. A
// number with no declared name is malformed input rather than a value this
// package can silently accept, since the dictionary can only hold names.
func (e *enumDicts) indexOf(ed protoreflect.EnumDescriptor, number protoreflect.EnumNumber) (uint32, error) {
	val := ed.Values().ByNumber(number)
	if val == nil {
		return 0, shred.NewError(shred.ErrMalformedInput, "protobuf enum wire value has no declared name").
			WithDetail("enum", string(ed.FullName())).
			WithDetail("number", int32(number))
	}
	return uint32(val.Index()), nil
}
