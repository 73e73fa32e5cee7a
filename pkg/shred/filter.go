package shred

import "strings"

// ColumnFilter is a recursive include/exclude projection applied to a
// schema before conversion, pruning irrelevant subtrees from the output.
// ExplicitInclude and ExplicitExclude are mutually exclusive on a single
// node (enforced at construction), and Children maps a record field name
// to the filter governing that field.
type ColumnFilter struct {
	ExplicitInclude bool
	ExplicitExclude bool
	Children        map[string]*ColumnFilter
}

// NewColumnFilter constructs a ColumnFilter node, rejecting a filter that
// sets both ExplicitInclude and ExplicitExclude.
func NewColumnFilter(explicitInclude, explicitExclude bool) (*ColumnFilter, error) {
	if explicitInclude && explicitExclude {
		return nil, NewError(ErrSchemaConflict, "a column filter node cannot both explicitly include and explicitly exclude")
	}
	return &ColumnFilter{
		ExplicitInclude: explicitInclude,
		ExplicitExclude: explicitExclude,
		Children:        make(map[string]*ColumnFilter),
	}, nil
}

// Field returns the child filter registered for name, or nil if none was
// registered (meaning name inherits implicitInclude unmodified).
func (f *ColumnFilter) Field(name string) *ColumnFilter {
	if f == nil {
		return nil
	}
	return f.Children[name]
}

// SetField registers child as the filter governing record field name.
func (f *ColumnFilter) SetField(name string, child *ColumnFilter) {
	f.Children[name] = child
}

// Included evaluates this node's inclusion decision given the implicit
// inclusion inherited from its parent:
//
//	included = explicit_include OR (implicit_include AND NOT explicit_exclude)
func (f *ColumnFilter) Included(implicitInclude bool) bool {
	if f == nil {
		return implicitInclude
	}
	return f.ExplicitInclude || (implicitInclude && !f.ExplicitExclude)
}

// hasExplicitInclude reports whether f or any descendant explicitly
// includes a field. A nil filter has none.
func (f *ColumnFilter) hasExplicitInclude() bool {
	if f == nil {
		return false
	}
	if f.ExplicitInclude {
		return true
	}
	for _, child := range f.Children {
		if child.hasExplicitInclude() {
			return true
		}
	}
	return false
}

// RootImplicitInclude computes the root implicit_include value: if the
// filter has no explicit includes anywhere, the mode is exclude-only and
// unmatched fields default to included (true); otherwise the mode is an
// allowlist and unmatched fields default to excluded (false).
func (f *ColumnFilter) RootImplicitInclude() bool {
	return !f.hasExplicitInclude()
}

// BuildColumnFilter constructs an allowlist ColumnFilter from a set of
// dotted field paths (e.g. "user.address.city"), the shape shredcat's
// --columns flag and pkg/config.FilterConfig.Columns both take. Only the
// final segment of each path is marked ExplicitInclude; intermediate
// segments get a plain (non-explicit) node just to carry the path down,
// which is enough for RootImplicitInclude to resolve allowlist mode (since
// at least one explicit include exists) and for each format's own
// record-survives-if-any-descendant-does walk to keep an intermediate
// record field alive. An empty paths list returns nil, meaning "no
// filter, include everything".
func BuildColumnFilter(paths []string) (*ColumnFilter, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	root, err := NewColumnFilter(false, false)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if path == "" {
			return nil, NewError(ErrSchemaConflict, "column filter path must not be empty")
		}
		node := root
		for _, segment := range strings.Split(path, ".") {
			child := node.Field(segment)
			if child == nil {
				child, err = NewColumnFilter(false, false)
				if err != nil {
					return nil, err
				}
				node.SetField(segment, child)
			}
			node = child
		}
		node.ExplicitInclude = true
	}
	return root, nil
}

// The recursive schema-pruning walk itself (spec.md §4.4: for records,
// recurse each field with the record's own `included` as the new
// implicit_include, keeping the record iff any field survives; for lists,
// recurse into the element schema with the SAME ColumnFilter node and an
// UNCHANGED implicit_include, keeping the list iff the element survives;
// leaves survive iff included) is implemented per format against that
// format's real compiled schema type — see pkg/formats/avro/adapter.go,
// pkg/formats/arrow/schema.go and pkg/formats/protobuf/descriptor.go —
// using only Included, Field, and
// RootImplicitInclude above. A format-agnostic tree-walk here would need
// its own schema abstraction that duplicates what each format's real
// schema type already provides.
