package protobuf_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/mvilim/bamboo/internal/shredtest"
	"github.com/mvilim/bamboo/pkg/bytesource"
	protobufcnv "github.com/mvilim/bamboo/pkg/formats/protobuf"
	"github.com/mvilim/bamboo/pkg/formats/protobuf/testdata"
	"github.com/mvilim/bamboo/pkg/shred"
)

func setScalar(t *testing.T, m protoreflect.Message, name string, v protoreflect.Value) {
	t.Helper()
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	require.NotNil(t, fd)
	m.Set(fd, v)
}

func appendRepeated(t *testing.T, m protoreflect.Message, name string, vals ...protoreflect.Value) {
	t.Helper()
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	require.NotNil(t, fd)
	list := m.Mutable(fd).List()
	for _, v := range vals {
		list.Append(v)
	}
}

func encodeStream(t *testing.T, msgs ...proto.Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range msgs {
		b, err := proto.Marshal(m)
		require.NoError(t, err)
		buf.Write(protowire.AppendVarint(nil, uint64(len(b))))
		buf.Write(b)
	}
	return buf.Bytes()
}

// TestScenarioS3MissingFieldDefaults covers spec.md's S3 worked example:
// a field never mentioned on the wire backfills its declared default,
// a never-mentioned repeated field yields a present-but-empty list, and
// (per this package's resolution of the singular-message-field question,
// see DESIGN.md) a never-mentioned singular message field registers a
// null that cascades into its own already-known descendant fields.
func TestScenarioS3MissingFieldDefaults(t *testing.T) {
	full := testdata.NewPerson()
	setScalar(t, full, "name", protoreflect.ValueOfString("Alice"))
	setScalar(t, full, "age", protoreflect.ValueOfInt32(30))
	appendRepeated(t, full, "tags", protoreflect.ValueOfString("x"), protoreflect.ValueOfString("y"))
	appendRepeated(t, full, "scores", protoreflect.ValueOfInt32(1), protoreflect.ValueOfInt32(2), protoreflect.ValueOfInt32(3))
	addr := testdata.NewAddress()
	setScalar(t, addr, "street", protoreflect.ValueOfString("Main St"))
	setScalar(t, addr, "city", protoreflect.ValueOfString("Springfield"))
	setScalar(t, full, "address", protoreflect.ValueOfMessage(addr))
	setScalar(t, full, "status", protoreflect.ValueOfEnum(1)) // ACTIVE

	sparse := testdata.NewPerson()
	setScalar(t, sparse, "name", protoreflect.ValueOfString("Bob"))

	data := encodeStream(t, full.Interface(), sparse.Interface())

	root, err := protobufcnv.ConvertPBD(bytesource.FromReader(bytes.NewReader(data), 0), testdata.PersonDescriptor(), nil)
	require.NoError(t, err)
	shredtest.AssertNodeInvariants(t, root)

	require.Equal(t, []int{2}, root.Offsets())
	rec := root.Child().(*shred.RecordNode)

	nameIdx, _ := rec.LookupField("name")
	nameVec := rec.FieldByIndex(nameIdx).(*shred.PrimitiveNode).Vector().(interface{ Values() []string })
	require.Equal(t, []string{"Alice", "Bob"}, nameVec.Values())

	ageIdx, _ := rec.LookupField("age")
	ageNode := rec.FieldByIndex(ageIdx).(*shred.PrimitiveNode)
	require.Equal(t, 2, ageNode.Null().Size())
	require.Empty(t, ageNode.Null().NullIndex())
	ageVec := ageNode.Vector().(interface{ Values() []int32 })
	require.Equal(t, []int32{30, 0}, ageVec.Values())

	tagsIdx, _ := rec.LookupField("tags")
	tagsNode := rec.FieldByIndex(tagsIdx).(*shred.ListNode)
	require.Equal(t, []int{2, 0}, tagsNode.Offsets())
	require.Empty(t, tagsNode.Null().NullIndex())

	scoresIdx, _ := rec.LookupField("scores")
	scoresNode := rec.FieldByIndex(scoresIdx).(*shred.ListNode)
	require.Equal(t, []int{3, 0}, scoresNode.Offsets())
	scoresVec := scoresNode.Child().(*shred.PrimitiveNode).Vector().(interface{ Values() []int32 })
	require.Equal(t, []int32{1, 2, 3}, scoresVec.Values())

	addrIdx, _ := rec.LookupField("address")
	addrNode := rec.FieldByIndex(addrIdx).(*shred.RecordNode)
	require.Equal(t, 2, addrNode.Null().Size())
	require.Equal(t, []int{1}, addrNode.Null().NullIndex())

	streetIdx, _ := addrNode.LookupField("street")
	streetNode := addrNode.FieldByIndex(streetIdx).(*shred.PrimitiveNode)
	require.Equal(t, 2, streetNode.Null().Size())
	require.Equal(t, []int{1}, streetNode.Null().NullIndex())
	streetVec := streetNode.Vector().(interface{ Values() []string })
	require.Equal(t, []string{"Main St"}, streetVec.Values())

	statusIdx, _ := rec.LookupField("status")
	statusNode := rec.FieldByIndex(statusIdx).(*shred.PrimitiveNode)
	require.Equal(t, shred.ENUM, statusNode.Vector().Type())
	statusVec := statusNode.Vector().(interface{ Indices() []uint32 })
	dictVec := statusNode.Vector().(interface{ Dict() *shred.EnumDict })
	require.Equal(t, []string{"UNKNOWN", "ACTIVE", "INACTIVE"}, dictVec.Dict().Values())
	require.Equal(t, []uint32{1, 0}, statusVec.Indices())
}

// TestScenarioS4RepeatedPacked exercises spec.md's S4 worked example: a
// repeated numeric field is packed by proto3's default wire representation
// (a single length-delimited run), decoded through the packed branch of
// this package's list handling rather than the per-element unpacked path
// the repeated string field above exercises.
func TestScenarioS4RepeatedPacked(t *testing.T) {
	m := testdata.NewPerson()
	appendRepeated(t, m, "scores",
		protoreflect.ValueOfInt32(10), protoreflect.ValueOfInt32(20), protoreflect.ValueOfInt32(30), protoreflect.ValueOfInt32(40))

	data := encodeStream(t, m.Interface())
	root, err := protobufcnv.ConvertPBD(bytesource.FromReader(bytes.NewReader(data), 0), testdata.PersonDescriptor(), nil)
	require.NoError(t, err)
	shredtest.AssertNodeInvariants(t, root)

	rec := root.Child().(*shred.RecordNode)
	scoresIdx, _ := rec.LookupField("scores")
	scoresNode := rec.FieldByIndex(scoresIdx).(*shred.ListNode)
	require.Equal(t, []int{4}, scoresNode.Offsets())
	vec := scoresNode.Child().(*shred.PrimitiveNode).Vector().(interface{ Values() []int32 })
	require.Equal(t, []int32{10, 20, 30, 40}, vec.Values())
}

func TestColumnFilterExcludesProtobufField(t *testing.T) {
	m := testdata.NewPerson()
	setScalar(t, m, "name", protoreflect.ValueOfString("Carl"))
	setScalar(t, m, "age", protoreflect.ValueOfInt32(41))

	data := encodeStream(t, m.Interface())

	filter, err := shred.NewColumnFilter(false, false)
	require.NoError(t, err)
	excludeAge, err := shred.NewColumnFilter(false, true)
	require.NoError(t, err)
	filter.SetField("age", excludeAge)

	root, err := protobufcnv.ConvertPBD(bytesource.FromReader(bytes.NewReader(data), 0), testdata.PersonDescriptor(), filter)
	require.NoError(t, err)
	shredtest.AssertNodeInvariants(t, root)

	rec := root.Child().(*shred.RecordNode)
	_, ok := rec.LookupField("age")
	require.False(t, ok)

	nameIdx, ok := rec.LookupField("name")
	require.True(t, ok)
	nameVec := rec.FieldByIndex(nameIdx).(*shred.PrimitiveNode).Vector().(interface{ Values() []string })
	require.Equal(t, []string{"Carl"}, nameVec.Values())
}

func TestUnknownFieldIsSkipped(t *testing.T) {
	// A field number the descriptor doesn't know about (here: encoded by
	// hand, tag 99 as a varint) must not disturb decoding of the fields
	// that follow it, per spec.md §4.8 point 4's generic skip path.
	full := testdata.NewPerson()
	setScalar(t, full, "name", protoreflect.ValueOfString("Dana"))
	raw, err := proto.Marshal(full.Interface())
	require.NoError(t, err)

	var withUnknown []byte
	withUnknown = protowire.AppendTag(withUnknown, 99, protowire.VarintType)
	withUnknown = protowire.AppendVarint(withUnknown, 7)
	withUnknown = append(withUnknown, raw...)

	var buf bytes.Buffer
	buf.Write(protowire.AppendVarint(nil, uint64(len(withUnknown))))
	buf.Write(withUnknown)

	root, err := protobufcnv.ConvertPBD(bytesource.FromReader(bytes.NewReader(buf.Bytes()), 0), testdata.PersonDescriptor(), nil)
	require.NoError(t, err)
	shredtest.AssertNodeInvariants(t, root)

	rec := root.Child().(*shred.RecordNode)
	nameIdx, _ := rec.LookupField("name")
	nameVec := rec.FieldByIndex(nameIdx).(*shred.PrimitiveNode).Vector().(interface{ Values() []string })
	require.Equal(t, []string{"Dana"}, nameVec.Values())
}
