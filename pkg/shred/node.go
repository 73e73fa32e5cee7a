package shred

// NodeKind identifies which of the four node variants a Node currently is.
type NodeKind int

const (
	// Incomplete is the placeholder variant for a node that has only
	// observed nulls (or no observations at all).
	Incomplete NodeKind = iota
	Primitive
	List
	Record
)

func (k NodeKind) String() string {
	switch k {
	case Incomplete:
		return "Incomplete"
	case Primitive:
		return "Primitive"
	case List:
		return "List"
	case Record:
		return "Record"
	default:
		return "Unknown"
	}
}

// Node is the common interface implemented by all four node variants. Every
// node owns a NullIndicator recording the presence/absence of every
// observation it has seen; the concrete variant is decided the first time
// the node observes something other than a null (see Convert).
type Node interface {
	// Kind reports which of the four variants this node currently is.
	Kind() NodeKind
	// Null returns the node's embedded null indicator.
	Null() *NullIndicator
}

// IncompleteNode is a placeholder for a node whose variant is not yet
// established because only nulls have been observed on it.
type IncompleteNode struct {
	null NullIndicator
}

// NewIncompleteNode allocates a fresh IncompleteNode.
func NewIncompleteNode() *IncompleteNode {
	return &IncompleteNode{}
}

func (n *IncompleteNode) Kind() NodeKind      { return Incomplete }
func (n *IncompleteNode) Null() *NullIndicator { return &n.null }

// PrimitiveNode owns exactly one PrimitiveVector, whose length always
// equals the node's non-null observation count.
type PrimitiveNode struct {
	null   NullIndicator
	vector PrimitiveVector
}

// newPrimitiveNode creates a PrimitiveNode carrying forward an
// already-accumulated null indicator (used when specializing out of
// Incomplete).
func newPrimitiveNode(null NullIndicator) *PrimitiveNode {
	return &PrimitiveNode{null: null, vector: emptyVector{}}
}

// NewPrimitiveNode allocates an empty PrimitiveNode, EMPTY-typed until its
// first Add/AddByType/AddString/AddEnum call, for schema-bearing skeleton
// construction (see NewRecordNode).
func NewPrimitiveNode() *PrimitiveNode {
	return newPrimitiveNode(NullIndicator{})
}

func (n *PrimitiveNode) Kind() NodeKind       { return Primitive }
func (n *PrimitiveNode) Null() *NullIndicator { return &n.null }

// Vector returns the node's underlying storage, EMPTY typed until the
// first Add/AddByType call.
func (n *PrimitiveNode) Vector() PrimitiveVector { return n.vector }

// Add appends v to the node's vector, specializing an EMPTY vector to v's
// classified type on first use. Once specialized, the node's primitive
// type is immutable: later calls whose classification disagrees fail with
// TypeMismatch.
func (n *PrimitiveNode) Add(v interface{}) error {
	pt, err := classify(v)
	if err != nil {
		return err
	}
	return n.AddByType(pt, v)
}

// AddByType bypasses value-based classification, appending v under the
// explicitly given primitive type. Used where the semantic type differs
// from the storage width (FLOAT16 stored as uint16, CHAR stored as int32).
func (n *PrimitiveNode) AddByType(pt PrimitiveType, v interface{}) error {
	if _, ok := n.vector.(emptyVector); ok {
		n.vector = newVectorForType(pt)
	}
	if n.vector.Type() != pt {
		return NewError(ErrTypeMismatch, "value type disagrees with node's specialized primitive type").
			WithDetail("node_type", n.vector.Type().String()).
			WithDetail("value_type", pt.String())
	}
	return appendTyped(n.vector, v)
}

// AddString appends a string via the append-and-return-handle pattern,
// specializing the vector to STRING on first use.
func (n *PrimitiveNode) AddString(s string) (int, error) {
	if _, ok := n.vector.(emptyVector); ok {
		n.vector = newVectorForType(STRING)
	}
	sv, ok := n.vector.(*StringVector)
	if !ok {
		return 0, NewError(ErrTypeMismatch, "node is not a STRING primitive").
			WithDetail("node_type", n.vector.Type().String())
	}
	return sv.AddString(s), nil
}

// AddEnum appends a dictionary index against dict, specializing the vector
// to ENUM on first use.
func (n *PrimitiveNode) AddEnum(dict *EnumDict, index uint32) error {
	if _, ok := n.vector.(emptyVector); ok {
		n.vector = newEnumVector()
	}
	ev, ok := n.vector.(*enumVector)
	if !ok {
		return NewError(ErrTypeMismatch, "node is not an ENUM primitive").
			WithDetail("node_type", n.vector.Type().String())
	}
	return ev.Add(dict, index)
}

// emptyVector is the EMPTY sentinel PrimitiveVector.
type emptyVector struct{}

func (emptyVector) Type() PrimitiveType { return EMPTY }
func (emptyVector) Len() int            { return 0 }

// appendTyped appends v (already validated to match vec's type) to vec's
// concrete underlying storage.
func appendTyped(vec PrimitiveVector, v interface{}) error {
	switch sv := vec.(type) {
	case *simpleVector[bool]:
		sv.append(v.(bool))
	case *simpleVector[int32]:
		switch sv.pt {
		case CHAR:
			sv.append(v.(int32))
		case INT32:
			sv.append(v.(int32))
		}
	case *simpleVector[int8]:
		sv.append(v.(int8))
	case *simpleVector[int16]:
		sv.append(v.(int16))
	case *simpleVector[int64]:
		switch t := v.(type) {
		case int64:
			sv.append(t)
		case int:
			sv.append(int64(t))
		}
	case *simpleVector[uint8]:
		sv.append(v.(uint8))
	case *simpleVector[uint16]:
		switch t := v.(type) {
		case uint16:
			sv.append(t)
		}
	case *simpleVector[uint32]:
		sv.append(v.(uint32))
	case *simpleVector[uint64]:
		switch t := v.(type) {
		case uint64:
			sv.append(t)
		case uint:
			sv.append(uint64(t))
		}
	case *simpleVector[float32]:
		sv.append(v.(float32))
	case *simpleVector[float64]:
		sv.append(v.(float64))
	case *simpleVector[[]byte]:
		sv.append(v.([]byte))
	case *StringVector:
		sv.AddString(v.(string))
	default:
		return NewError(ErrTypeMismatch, "unsupported vector storage type")
	}
	return nil
}

// ListNode owns exactly one child node and an offsets sequence; each
// non-null observation pushes the number of elements consumed from the
// child.
type ListNode struct {
	null    NullIndicator
	child   Node
	offsets []int
}

func newListNode(null NullIndicator, child Node) *ListNode {
	return &ListNode{null: null, child: child}
}

// NewListNode allocates a ListNode wrapping a pre-built child, for
// schema-bearing skeleton construction (see NewRecordNode).
func NewListNode(child Node) *ListNode {
	return newListNode(NullIndicator{}, child)
}

func (n *ListNode) Kind() NodeKind       { return List }
func (n *ListNode) Null() *NullIndicator { return &n.null }

// Child returns the list's single element node.
func (n *ListNode) Child() Node { return n.child }

// SetChild replaces the list's element node (used when specializing an
// Incomplete child in place).
func (n *ListNode) SetChild(c Node) { n.child = c }

// Offsets returns the per-observation element counts, one entry per
// non-null observation.
func (n *ListNode) Offsets() []int { return n.offsets }

// PushLength records that the next non-null observation consumed length
// elements from the child.
func (n *ListNode) PushLength(length int) {
	n.offsets = append(n.offsets, length)
}

// RecordNode owns an ordered mapping from field name to child node. Fields
// are added lazily on first encounter via GetField.
type RecordNode struct {
	null   NullIndicator
	names  []string
	byName map[string]int
	fields []Node
}

func newRecordNode(null NullIndicator) *RecordNode {
	return &RecordNode{null: null, byName: make(map[string]int)}
}

// NewRecordNode allocates an empty RecordNode for schema-bearing adapters
// (Avro, Protobuf) to pre-build a node skeleton before driving any records,
// per spec.md §4.5/§4.8's initialization step: this makes record-level
// nulls resolve their children without any lazy creation on the hot path.
func NewRecordNode() *RecordNode {
	return newRecordNode(NullIndicator{})
}

// AddField appends a pre-built child under name, for schema-bearing
// skeleton construction. Unlike GetField/FieldIndex, it never checks for an
// existing entry: callers build the skeleton once, in schema order, before
// any record is converted.
func (n *RecordNode) AddField(name string, child Node) {
	n.byName[name] = len(n.fields)
	n.names = append(n.names, name)
	n.fields = append(n.fields, child)
}

func (n *RecordNode) Kind() NodeKind       { return Record }
func (n *RecordNode) Null() *NullIndicator { return &n.null }

// FieldNames returns field names in insertion order.
func (n *RecordNode) FieldNames() []string { return n.names }

// FieldByIndex returns the field node at the given insertion index.
func (n *RecordNode) FieldByIndex(i int) Node { return n.fields[i] }

// FieldCount returns the number of fields observed so far.
func (n *RecordNode) FieldCount() int { return len(n.fields) }

// GetField is the lazy creator: a missing name is added with a fresh
// Incomplete child. This makes record schema discovery incremental for
// schema-less formats (JSON) and enforces name stability for schema-bearing
// formats (the schema-bearing adapters pre-create every field during
// initialization, so GetField only ever creates lazily for JSON).
func (n *RecordNode) GetField(name string) Node {
	if idx, ok := n.byName[name]; ok {
		return n.fields[idx]
	}
	child := Node(NewIncompleteNode())
	n.byName[name] = len(n.fields)
	n.names = append(n.names, name)
	n.fields = append(n.fields, child)
	return child
}

// SetField replaces the field node at the given insertion index (used when
// specializing an Incomplete field in place).
func (n *RecordNode) SetField(index int, node Node) {
	n.fields[index] = node
}

// LookupField returns the insertion index of name without creating it,
// reporting false if name was never added. Used by adapters that pre-build
// the full field set up front (Avro, Protobuf, Arrow) and need to know
// whether a source column survived the skeleton's column filtering.
func (n *RecordNode) LookupField(name string) (int, bool) {
	idx, ok := n.byName[name]
	return idx, ok
}

// FieldIndex returns the insertion index of name, creating an Incomplete
// field for it if absent.
func (n *RecordNode) FieldIndex(name string) int {
	if idx, ok := n.byName[name]; ok {
		return idx
	}
	n.GetField(name)
	return n.byName[name]
}
