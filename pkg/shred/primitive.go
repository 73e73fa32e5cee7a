package shred

import "fmt"

// PrimitiveType is the closed enumeration of leaf value types a
// PrimitiveNode may specialize to.
type PrimitiveType int

const (
	// EMPTY is the sentinel type of a PrimitiveVector that has not yet
	// observed any value; it is upgraded to a concrete type on first append.
	EMPTY PrimitiveType = iota
	BOOL
	CHAR
	INT8
	INT16
	INT32
	INT64
	UINT8
	UINT16
	UINT32
	UINT64
	FLOAT16
	FLOAT32
	FLOAT64
	STRING
	BYTE_ARRAY
	ENUM
)

func (t PrimitiveType) String() string {
	switch t {
	case EMPTY:
		return "EMPTY"
	case BOOL:
		return "BOOL"
	case CHAR:
		return "CHAR"
	case INT8:
		return "INT8"
	case INT16:
		return "INT16"
	case INT32:
		return "INT32"
	case INT64:
		return "INT64"
	case UINT8:
		return "UINT8"
	case UINT16:
		return "UINT16"
	case UINT32:
		return "UINT32"
	case UINT64:
		return "UINT64"
	case FLOAT16:
		return "FLOAT16"
	case FLOAT32:
		return "FLOAT32"
	case FLOAT64:
		return "FLOAT64"
	case STRING:
		return "STRING"
	case BYTE_ARRAY:
		return "BYTE_ARRAY"
	case ENUM:
		return "ENUM"
	default:
		return "UNKNOWN"
	}
}

// PrimitiveVector is the append-only, insertion-order-preserving column
// storage owned by a PrimitiveNode. It is polymorphic over PrimitiveType:
// an EMPTY vector is a sentinel replaced by a concrete typed vector on the
// node's first append (see PrimitiveNode.Add).
type PrimitiveVector interface {
	// Type reports the vector's specialized primitive type. EMPTY until
	// the first value has been appended.
	Type() PrimitiveType
	// Len returns the number of appended values (non-null observations).
	Len() int
}

// classify maps a Go value to its canonical PrimitiveType. Values whose
// canonical type has no direct Go representation (CHAR, FLOAT16) are never
// produced here; adapters that need those types use AddByType instead.
func classify(v interface{}) (PrimitiveType, error) {
	switch v.(type) {
	case bool:
		return BOOL, nil
	case int8:
		return INT8, nil
	case int16:
		return INT16, nil
	case int32:
		return INT32, nil
	case int64:
		return INT64, nil
	case int:
		return INT64, nil
	case uint8:
		return UINT8, nil
	case uint16:
		return UINT16, nil
	case uint32:
		return UINT32, nil
	case uint64:
		return UINT64, nil
	case uint:
		return UINT64, nil
	case float32:
		return FLOAT32, nil
	case float64:
		return FLOAT64, nil
	case string:
		return STRING, nil
	case []byte:
		return BYTE_ARRAY, nil
	default:
		return EMPTY, NewError(ErrTypeMismatch, fmt.Sprintf("cannot classify value of type %T", v))
	}
}

// simpleVector is a contiguous typed sequence of appended values.
type simpleVector[T any] struct {
	pt     PrimitiveType
	values []T
}

func newSimpleVector[T any](pt PrimitiveType) *simpleVector[T] {
	return &simpleVector[T]{pt: pt, values: make([]T, 0, 16)}
}

func (v *simpleVector[T]) Type() PrimitiveType { return v.pt }
func (v *simpleVector[T]) Len() int            { return len(v.values) }
func (v *simpleVector[T]) Values() []T         { return v.values }
func (v *simpleVector[T]) append(val T)        { v.values = append(v.values, val) }

// StringVector supports the append-and-return-handle pattern for
// zero-copy string construction directly in place.
type StringVector struct {
	values []string
}

func newStringVector() *StringVector {
	return &StringVector{values: make([]string, 0, 16)}
}

func (v *StringVector) Type() PrimitiveType { return STRING }
func (v *StringVector) Len() int            { return len(v.values) }
func (v *StringVector) Values() []string    { return v.values }

// AddString appends s and returns its handle (index) in the vector.
func (v *StringVector) AddString(s string) int {
	v.values = append(v.values, s)
	return len(v.values) - 1
}

// newVectorForType allocates a fresh, empty concrete vector for pt. Used
// by the EMPTY -> specialized transition and never called with EMPTY or
// ENUM (enum vectors are constructed via newEnumVector, since they also
// need a dictionary handle).
func newVectorForType(pt PrimitiveType) PrimitiveVector {
	switch pt {
	case BOOL:
		return newSimpleVector[bool](BOOL)
	case CHAR:
		return newSimpleVector[int32](CHAR)
	case INT8:
		return newSimpleVector[int8](INT8)
	case INT16:
		return newSimpleVector[int16](INT16)
	case INT32:
		return newSimpleVector[int32](INT32)
	case INT64:
		return newSimpleVector[int64](INT64)
	case UINT8:
		return newSimpleVector[uint8](UINT8)
	case UINT16:
		return newSimpleVector[uint16](UINT16)
	case UINT32:
		return newSimpleVector[uint32](UINT32)
	case UINT64:
		return newSimpleVector[uint64](UINT64)
	case FLOAT16:
		return newSimpleVector[uint16](FLOAT16)
	case FLOAT32:
		return newSimpleVector[float32](FLOAT32)
	case FLOAT64:
		return newSimpleVector[float64](FLOAT64)
	case STRING:
		return newStringVector()
	case BYTE_ARRAY:
		return newSimpleVector[[]byte](BYTE_ARRAY)
	default:
		panic(fmt.Sprintf("shred: no vector constructor for type %s", pt))
	}
}
