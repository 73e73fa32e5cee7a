package avro_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvilim/bamboo/internal/shredtest"
	"github.com/mvilim/bamboo/pkg/bytesource"
	"github.com/mvilim/bamboo/pkg/formats/avro"
	"github.com/mvilim/bamboo/pkg/shred"
)

func encodeZigzagVarint(n int64) []byte {
	zz := uint64(n<<1) ^ uint64(n>>63)
	var out []byte
	for {
		b := byte(zz & 0x7f)
		zz >>= 7
		if zz != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func encodeAvroString(s string) []byte {
	var out []byte
	out = append(out, encodeZigzagVarint(int64(len(s)))...)
	out = append(out, []byte(s)...)
	return out
}

// buildOCF assembles a minimal null-codec Avro OCF file: header (magic,
// single-entry metadata map, sync marker) followed by one data block
// containing recordCount records worth of raw pre-encoded bytes.
func buildOCF(schemaJSON string, recordCount int, records []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("Obj\x01")

	// metadata map: one block of one entry (avro.schema), then terminator.
	buf.Write(encodeZigzagVarint(1))
	buf.Write(encodeAvroString("avro.schema"))
	buf.Write(encodeAvroString(schemaJSON))
	buf.Write(encodeZigzagVarint(0))

	sync := bytes.Repeat([]byte{0xAB}, 16)
	buf.Write(sync)

	buf.Write(encodeZigzagVarint(int64(recordCount)))
	buf.Write(encodeZigzagVarint(int64(len(records))))
	buf.Write(records)
	buf.Write(sync)

	return buf.Bytes()
}

func TestScenarioS2NullableUnion(t *testing.T) {
	schema := `{"type":"record","name":"R","fields":[{"name":"f","type":["null","long"]}]}`

	var records bytes.Buffer
	records.Write(encodeZigzagVarint(0)) // record 1: f = null (branch 0)
	records.Write(encodeZigzagVarint(1)) // record 2: f = long (branch 1)
	records.Write(encodeZigzagVarint(7))
	records.Write(encodeZigzagVarint(0)) // record 3: f = null

	raw := buildOCF(schema, 3, records.Bytes())
	src := bytesource.FromReader(bytes.NewReader(raw), 0)

	root, err := avro.ConvertAvro(src, nil)
	require.NoError(t, err)
	shredtest.AssertNodeInvariants(t, root)

	require.Equal(t, 1, len(root.Offsets()))
	require.Equal(t, 3, root.Offsets()[0])

	rec := root.Child().(*shred.RecordNode)
	require.Equal(t, []string{"f"}, rec.FieldNames())

	f := rec.FieldByIndex(0).(*shred.PrimitiveNode)
	require.Equal(t, shred.INT64, f.Vector().Type())
	require.Equal(t, []int{0, 2}, f.Null().NullIndex())
	require.Equal(t, 3, f.Null().Size())
	vec := f.Vector().(interface{ Values() []int64 })
	require.Equal(t, []int64{7}, vec.Values())
}

func TestColumnFilterSkipsExcludedField(t *testing.T) {
	schema := `{"type":"record","name":"R","fields":[` +
		`{"name":"a","type":"long"},{"name":"b","type":"string"}]}`

	var records bytes.Buffer
	records.Write(encodeZigzagVarint(5))
	records.Write(encodeAvroString("hello"))

	raw := buildOCF(schema, 1, records.Bytes())
	src := bytesource.FromReader(bytes.NewReader(raw), 0)

	filter, err := shred.NewColumnFilter(false, false)
	require.NoError(t, err)
	bFilter, err := shred.NewColumnFilter(false, true)
	require.NoError(t, err)
	filter.SetField("b", bFilter)

	root, err := avro.ConvertAvro(src, filter)
	require.NoError(t, err)
	shredtest.AssertNodeInvariants(t, root)

	rec := root.Child().(*shred.RecordNode)
	require.Equal(t, []string{"a"}, rec.FieldNames())

	a := rec.FieldByIndex(0).(*shred.PrimitiveNode)
	vec := a.Vector().(interface{ Values() []int64 })
	require.Equal(t, []int64{5}, vec.Values())
}

func TestEnumColumn(t *testing.T) {
	schema := `{"type":"record","name":"R","fields":[` +
		`{"name":"e","type":{"type":"enum","name":"Suit","symbols":["SPADES","HEARTS","CLUBS"]}}]}`

	var records bytes.Buffer
	records.Write(encodeZigzagVarint(1)) // HEARTS
	records.Write(encodeZigzagVarint(0)) // SPADES

	raw := buildOCF(schema, 2, records.Bytes())
	src := bytesource.FromReader(bytes.NewReader(raw), 0)

	root, err := avro.ConvertAvro(src, nil)
	require.NoError(t, err)
	shredtest.AssertNodeInvariants(t, root)

	rec := root.Child().(*shred.RecordNode)
	e := rec.FieldByIndex(0).(*shred.PrimitiveNode)
	require.Equal(t, shred.ENUM, e.Vector().Type())
}

func TestMultiBlockFile(t *testing.T) {
	schema := `{"type":"record","name":"R","fields":[{"name":"a","type":"long"}]}`

	var block1, block2 bytes.Buffer
	block1.Write(encodeZigzagVarint(1))
	block2.Write(encodeZigzagVarint(2))

	header := buildOCF(schema, 1, block1.Bytes())
	// Append a second data block manually, reusing the same sync marker
	// buildOCF embedded (the last 16 bytes of the header's first block).
	sync := header[len(header)-16:]
	var extra bytes.Buffer
	extra.Write(encodeZigzagVarint(1))
	extra.Write(encodeZigzagVarint(int64(block2.Len())))
	extra.Write(block2.Bytes())
	extra.Write(sync)

	raw := append(header, extra.Bytes()...)
	src := bytesource.FromReader(bytes.NewReader(raw), 0)

	root, err := avro.ConvertAvro(src, nil)
	require.NoError(t, err)
	shredtest.AssertNodeInvariants(t, root)
	require.Equal(t, 2, root.Offsets()[0])
}
