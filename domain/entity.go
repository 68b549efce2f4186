package domain

// Row is the flat, identifier-keyed representation of one record. Nested
// record fields are replaced by the nested record's identifier (single) or an
// ordered list of identifiers (list field); scalar fields keep their
// serialized value. The row carries its own identifier under "_id".
type Row map[string]any

// ID returns the row's own identifier, if any.
func (r Row) ID() any {
	return r["_id"]
}

// Has reports whether a value is set under the given key.
func (r Row) Has(key string) bool {
	_, has := r[key]
	return has
}

// TypedRow pairs a flat row with the name of the record type it belongs to.
// Flattening one record tree yields an ordered sequence of TypedRows, nested
// rows first.
type TypedRow struct {
	Type string
	Row  Row
}

// Batch maps record type names to ordered sequences of flat rows. It is the
// unit of add and update across the potentially many types produced by
// flattening one tree.
type Batch map[string][]Row

// FieldKind classifies a declared record field.
type FieldKind int

const (
	// KindScalar is a plain value field, serialized directly into the row.
	KindScalar FieldKind = iota
	// KindRecord is a single nested record, stored as its identifier.
	KindRecord
	// KindList is an ordered list of nested records, stored as a list of
	// identifiers.
	KindList
)

// String returns a short name for the kind.
func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// FieldDescriptor describes one declared field of a record type. For nested
// kinds, Elem names the sub-record type.
type FieldDescriptor struct {
	Name string
	Kind FieldKind
	Elem string
}
