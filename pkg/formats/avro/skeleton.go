package avro

import "github.com/mvilim/bamboo/pkg/shred"

// buildSkeleton pre-builds the node tree for schema under filter/implicit,
// mirroring wouldSurvive's own traversal so the two never disagree about
// which fields exist. Per spec.md §4.5's initialization step, Avro (like
// Protobuf) knows its full column set before the first record arrives, so
// there is no need for RecordNode's lazy GetField path; every field the
// converter will ever touch is created once, up front, in schema order.
// A field the column filter excludes entirely (wouldSurvive false for it
// specifically) is simply never added to the skeleton, since Fields'
// iteration will always skip-decode it off the wire.
func buildSkeleton(schema *cnode, filter *shred.ColumnFilter, implicit bool) shred.Node {
	resolved, err := resolveUnion(schema)
	if err != nil {
		// A malformed union is reported when the file is actually decoded
		// (resolveUnion is called again on the live path); the skeleton
		// build degrades to an Incomplete placeholder rather than failing
		// here, since skeleton construction has no error return of its own.
		return shred.NewIncompleteNode()
	}
	switch resolved.typ {
	case tRecord:
		rec := shred.NewRecordNode()
		included := filter.Included(implicit)
		for _, f := range resolved.fields {
			fieldFilter := filter.Field(f.name)
			if !wouldSurvive(f.schema, fieldFilter, included) {
				continue
			}
			rec.AddField(f.name, buildSkeleton(f.schema, fieldFilter, included))
		}
		return rec
	case tArray:
		return shred.NewListNode(buildSkeleton(resolved.item, filter, implicit))
	default:
		return shred.NewPrimitiveNode()
	}
}
