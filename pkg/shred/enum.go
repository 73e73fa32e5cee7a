package shred

// SourceIdentity distinguishes which schema an enum dictionary was built
// from. Two enum vectors may share a dictionary only if their source
// identities compare equal. For Avro and Protobuf this is a pointer to the
// format-specific schema node (the compacted Avro CNode, or the Protobuf
// EnumDescriptor); for Arrow it is the distinguished ConsistentlySourced
// marker, since Arrow dictionaries carry no comparable schema identity of
// their own.
type SourceIdentity interface {
	sourceIdentity()
}

// schemaSourceIdentity wraps an arbitrary schema-node pointer as a
// SourceIdentity; equality is Go pointer/value equality on the wrapped key.
type schemaSourceIdentity struct {
	key interface{}
}

func (schemaSourceIdentity) sourceIdentity() {}

// SchemaSource builds a SourceIdentity from a stable schema-node key
// (typically a pointer). Two SchemaSource identities are equal iff their
// keys are equal.
func SchemaSource(key interface{}) SourceIdentity {
	return schemaSourceIdentity{key: key}
}

// consistentlySourced is the distinguished Arrow-dictionary marker: any two
// consistentlySourced identities compare equal, matching the "a dictionary
// array's encoding is a per-batch invariant, not identity-bearing" contract
// Arrow itself provides.
type consistentlySourced struct{}

func (consistentlySourced) sourceIdentity() {}

// ConsistentlySourced is the SourceIdentity used for Arrow dictionary
// columns, which have no schema-node identity to key on.
var ConsistentlySourced SourceIdentity = consistentlySourced{}

// EnumDict is a shared dictionary of enum symbol strings paired with the
// schema identity it was built from. It is written once as it is
// populated, then read-only; multiple enum columns sourced from the same
// schema may share one handle.
type EnumDict struct {
	source SourceIdentity
	values *StringVector
	index  map[string]int
}

// NewEnumDict allocates an empty dictionary for the given source identity.
func NewEnumDict(source SourceIdentity) *EnumDict {
	return &EnumDict{source: source, values: newStringVector(), index: make(map[string]int)}
}

// Source returns the dictionary's schema identity.
func (d *EnumDict) Source() SourceIdentity { return d.source }

// Values returns the dictionary's symbol values, in declaration order.
func (d *EnumDict) Values() []string { return d.values.Values() }

// Size returns the number of distinct symbols in the dictionary.
func (d *EnumDict) Size() int { return d.values.Len() }

// Intern appends sym if not already recorded and returns its index. Avro
// and Protobuf dictionaries are built once from the schema's full symbol
// list, the first time the column sees an enum value, so this is called
// only while filling them rather than per row. Arrow's
// dictionary path also calls this, but only once per node to seed the
// dictionary from an Arrow dictionary array's own (already-unique) value
// list, since Arrow rows are appended by local index thereafter rather than
// by interning the symbol again.
func (d *EnumDict) Intern(sym string) int {
	if idx, ok := d.index[sym]; ok {
		return idx
	}
	idx := d.values.AddString(sym)
	d.index[sym] = idx
	return idx
}

// enumVector stores a sequence of dictionary indices plus a shared
// dictionary reference. Every appended index must resolve within the
// dictionary that was adopted on the first append.
type enumVector struct {
	dict    *EnumDict
	indices []uint32
}

func newEnumVector() *enumVector {
	return &enumVector{}
}

func (v *enumVector) Type() PrimitiveType { return ENUM }
func (v *enumVector) Len() int            { return len(v.indices) }
func (v *enumVector) Indices() []uint32   { return v.indices }
func (v *enumVector) Dict() *EnumDict     { return v.dict }

// Add appends index against dict. On the first append the vector adopts
// dict as its shared dictionary; on later appends dict must be the same
// dictionary instance the column already adopted, or the append fails with
// MixedEnum. Every adapter (Avro, Protobuf, Arrow) constructs one EnumDict
// per source schema/column and reuses that same pointer for every value it
// appends, so this reduces to a "source identities compare equal AND both
// are non-null" rule in practice: a differing pointer only ever
// arises from a genuine foreign-dictionary append, never from two
// legitimately-shared dictionaries that merely compare equal.
func (v *enumVector) Add(dict *EnumDict, index uint32) error {
	if dict == nil {
		return NewError(ErrMixedEnum, "cannot append enum value with a nil dictionary")
	}
	if v.dict == nil {
		v.dict = dict
	} else if v.dict != dict {
		return NewError(ErrMixedEnum, "enum value from a foreign dictionary appended to an existing enum column").
			WithDetail("existing_source", v.dict.source).
			WithDetail("incoming_source", dict.source)
	}
	v.indices = append(v.indices, index)
	return nil
}
