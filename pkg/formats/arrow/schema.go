// Package arrow implements the columnar (batch-at-a-time, not per-record
// iterator driven) Arrow IPC stream decode path, following the array
// walking idioms of pkg/formats/columnar/arrow_impl.go.
package arrow

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/mvilim/bamboo/pkg/shred"
)

// wouldSurvive mirrors the column filter's own record/list recursion
// (pkg/shred.ColumnFilter, applied identically in pkg/formats/avro) against
// a static Arrow arrow.DataType, deciding whether any leaf reachable from
// dt would be kept under filter/implicit. Used both to prune the
// pre-built skeleton and, implicitly, to know which struct fields a batch's
// data pass should skip entirely.
func wouldSurvive(dt arrow.DataType, filter *shred.ColumnFilter, implicit bool) bool {
	included := filter.Included(implicit)
	switch t := dt.(type) {
	case *arrow.StructType:
		for _, f := range t.Fields() {
			if wouldSurvive(f.Type, filter.Field(f.Name), included) {
				return true
			}
		}
		return false
	case *arrow.ListType:
		return wouldSurvive(t.Elem(), filter, implicit)
	default:
		return included
	}
}

// buildSkeleton pre-builds the node tree for an Arrow schema's data type,
// per spec §4.5/§4.8's "known schema up front" pattern (also followed by
// the Avro adapter's own buildSkeleton): every column and nested field the
// stream's batches will ever touch exists before the first batch is
// extended into it.
func buildSkeleton(dt arrow.DataType, filter *shred.ColumnFilter, implicit bool) shred.Node {
	switch t := dt.(type) {
	case *arrow.StructType:
		rec := shred.NewRecordNode()
		included := filter.Included(implicit)
		for _, f := range t.Fields() {
			fieldFilter := filter.Field(f.Name)
			if !wouldSurvive(f.Type, fieldFilter, included) {
				continue
			}
			rec.AddField(f.Name, buildSkeleton(f.Type, fieldFilter, included))
		}
		return rec
	case *arrow.ListType:
		return shred.NewListNode(buildSkeleton(t.Elem(), filter, implicit))
	default:
		return shred.NewPrimitiveNode()
	}
}

// buildRootSkeleton builds the record skeleton for the whole stream schema,
// treating the schema's top-level fields as one record (an Arrow IPC
// stream has no separate "root struct" type; its Schema.Fields() already
// is the top-level record's field list).
func buildRootSkeleton(schema *arrow.Schema, filter *shred.ColumnFilter, rootImplicit bool) *shred.RecordNode {
	rec := shred.NewRecordNode()
	for _, f := range schema.Fields() {
		fieldFilter := filter.Field(f.Name)
		if !wouldSurvive(f.Type, fieldFilter, rootImplicit) {
			continue
		}
		rec.AddField(f.Name, buildSkeleton(f.Type, fieldFilter, rootImplicit))
	}
	return rec
}
