package protobuf

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/mvilim/bamboo/pkg/shred"
)

// fieldEntry is one column-filtered field of a messageDescriptor: the
// compiled field descriptor plus, for a message-kind field, the already
// column-filtered descriptor of its nested message type.
type fieldEntry struct {
	fd    protoreflect.FieldDescriptor
	child *messageDescriptor
}

// messageDescriptor is the column-filtered, wire-number-indexed view of one
// protoreflect.MessageDescriptor that both the skeleton builder and the
// adapter's field/list iterators walk. Building it once up front (mirroring
// pkg/formats/avro's buildSkeleton/wouldSurvive pair, and per spec.md §4.8's
// initialization step) means the per-record decode path never touches
// protoreflect's own descriptor walking, only this flat table.
type messageDescriptor struct {
	fields   []fieldEntry
	byNumber map[protoreflect.FieldNumber]int
}

// buildMessageDescriptor walks md's fields in declaration order, keeping
// only those fieldWouldSurvive says the column filter lets through. A
// message-kind field's own nested descriptor is built recursively so a
// deeply-excluded leaf can prune an entire submessage subtree, the same
// record-survives-if-any-descendant-does rule pkg/formats/avro's own
// filter-driven pruning applies.
//
// A map-kind field is refused outright when it would survive filtering:
// unlike Avro's map (whose bytes are always skippable even when its values
// are ErrNotImplemented), a surviving protobuf map field would need a
// shred node shape this package has no representation for, so the failure
// has to happen here rather than lazily at decode time. An excluded map
// field is simply left out of byNumber, same as any other excluded field,
// and its wire bytes fall through to the generic skip path.
func buildMessageDescriptor(md protoreflect.MessageDescriptor, filter *shred.ColumnFilter, implicit bool) (*messageDescriptor, error) {
	desc := &messageDescriptor{byNumber: make(map[protoreflect.FieldNumber]int)}
	included := filter.Included(implicit)
	fds := md.Fields()
	for i := 0; i < fds.Len(); i++ {
		fd := fds.Get(i)
		fieldFilter := filter.Field(string(fd.Name()))
		if !fieldWouldSurvive(fd, fieldFilter, included) {
			continue
		}
		if fd.IsMap() {
			return nil, shred.NewError(shred.ErrNotImplemented, "protobuf map fields are not supported").
				WithDetail("field", string(fd.FullName()))
		}
		entry := fieldEntry{fd: fd}
		if fd.Kind() == protoreflect.MessageKind {
			child, err := buildMessageDescriptor(fd.Message(), fieldFilter, included)
			if err != nil {
				return nil, err
			}
			entry.child = child
		}
		desc.byNumber[fd.Number()] = len(desc.fields)
		desc.fields = append(desc.fields, entry)
	}
	return desc, nil
}

// fieldWouldSurvive mirrors pkg/formats/avro/adapter.go's wouldSurvive for
// a single Protobuf field descriptor: a repeated field survives iff its
// element kind would (the filter node and implicit_include pass through
// unchanged, per pkg/shred/filter.go's documented list rule, since a
// repeated field carries no separate wrapping schema layer the way Avro's
// tArray or Arrow's ListType do); a message field survives iff any of its
// own fields would (recursing with this field's own inclusion as the new
// implicit_include); every other field survives iff included.
func fieldWouldSurvive(fd protoreflect.FieldDescriptor, filter *shred.ColumnFilter, implicit bool) bool {
	included := filter.Included(implicit)
	if fd.IsList() {
		return fieldWouldSurviveKind(fd, filter, implicit)
	}
	if fd.Kind() == protoreflect.MessageKind && !fd.IsMap() {
		msg := fd.Message()
		mfds := msg.Fields()
		for i := 0; i < mfds.Len(); i++ {
			child := mfds.Get(i)
			if fieldWouldSurvive(child, filter.Field(string(child.Name())), included) {
				return true
			}
		}
		return false
	}
	return included
}

// fieldWouldSurviveKind evaluates survival for a repeated field's element
// kind, without IsList's own repetition recursing a second time.
func fieldWouldSurviveKind(fd protoreflect.FieldDescriptor, filter *shred.ColumnFilter, implicit bool) bool {
	included := filter.Included(implicit)
	if fd.Kind() == protoreflect.MessageKind && !fd.IsMap() {
		msg := fd.Message()
		mfds := msg.Fields()
		for i := 0; i < mfds.Len(); i++ {
			child := mfds.Get(i)
			if fieldWouldSurvive(child, filter.Field(string(child.Name())), included) {
				return true
			}
		}
		return false
	}
	return included
}

// buildSkeleton pre-builds the node tree for desc, mirroring
// pkg/formats/avro/skeleton.go's buildSkeleton: every surviving field
// already has a concrete node before the first message is decoded, so a
// missing singular message field's null can propagate into
// already-established descendants (see pkg/shred.Convert's Incomplete
// case) instead of needing its own recursive default-fill mechanism.
func buildSkeleton(desc *messageDescriptor) *shred.RecordNode {
	rec := shred.NewRecordNode()
	for _, entry := range desc.fields {
		rec.AddField(string(entry.fd.Name()), buildFieldSkeleton(entry))
	}
	return rec
}

func buildFieldSkeleton(entry fieldEntry) shred.Node {
	if entry.fd.IsList() {
		return shred.NewListNode(buildElementSkeleton(entry))
	}
	return buildElementSkeleton(entry)
}

func buildElementSkeleton(entry fieldEntry) shred.Node {
	if entry.fd.Kind() == protoreflect.MessageKind && entry.child != nil {
		return buildSkeleton(entry.child)
	}
	return shred.NewPrimitiveNode()
}
