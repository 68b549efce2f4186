// Package registry contains the default [domain.Registry] implementation,
// describing record types declared as plain Go structs.
//
// A record type is a struct with exported fields and exactly one field tagged
// `recdb:"_id"`, the identifier attribute. A field holding a pointer to
// another registered struct is a nested single record; a slice of such
// pointers is a nested list. Everything else is a scalar, serialized into the
// row as-is. Field names can be renamed and fields skipped with the `recdb`
// struct tag, in the usual encoding-package style.
package registry

import (
	"fmt"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/recdb/domain"
	"github.com/vinicius-lino-figueiredo/recdb/internal/adapter/decoder"
)

// TagName is the struct tag consulted for field names.
const TagName = "recdb"

// idField is the reserved tag name marking the identifier attribute.
const idField = "_id"

var timeTyp = goreflect.TypeOf(time.Time{})

type typeInfo struct {
	typ     goreflect.Type
	descs   []domain.FieldDescriptor
	byName  map[string]domain.FieldDescriptor
	index   map[string]int
	idIndex int
}

// Registry implements domain.Registry.
type Registry struct {
	types   map[string]*typeInfo
	decoder domain.Decoder
}

// NewRegistry returns a new implementation of domain.Registry.
func NewRegistry(options ...domain.RegistryOption) domain.Registry {
	opts := domain.RegistryOptions{
		Decoder: decoder.NewDecoder(),
	}
	for _, option := range options {
		option(&opts)
	}
	return &Registry{
		types:   make(map[string]*typeInfo),
		decoder: opts.Decoder,
	}
}

// Register implements domain.Registry.
func (r *Registry) Register(samples ...any) error {
	for _, sample := range samples {
		t := goreflect.TypeOf(sample)
		for t != nil && t.Kind() == goreflect.Ptr {
			t = t.Elem()
		}
		if t == nil || t.Kind() != goreflect.Struct {
			return domain.ErrRecordType{Detail: fmt.Sprintf("expected struct or pointer to struct, got %T", sample)}
		}
		if err := r.register(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(t goreflect.Type) (err error) {
	name := t.Name()
	if name == "" {
		return domain.ErrRecordType{Detail: "anonymous struct types cannot be registered"}
	}
	if existing, ok := r.types[name]; ok {
		if existing.typ != t {
			return domain.ErrRecordType{Detail: fmt.Sprintf("two distinct types registered under the name %q", name)}
		}
		return nil
	}

	info := &typeInfo{
		typ:     t,
		byName:  make(map[string]domain.FieldDescriptor),
		index:   make(map[string]int),
		idIndex: -1,
	}
	// Registered up front so self-referential types resolve; removed again
	// on any error below.
	r.types[name] = info
	defer func() {
		if err != nil {
			delete(r.types, name)
		}
	}()

	for i := range t.NumField() {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		fieldName := f.Name
		if tag, ok := f.Tag.Lookup(TagName); ok {
			if tag == "-" {
				continue
			}
			if segments := strings.Split(tag, ","); segments[0] != "" {
				fieldName = segments[0]
			}
		}
		if fieldName == idField {
			info.idIndex = i
			continue
		}
		if strings.ContainsRune(fieldName, '.') {
			return domain.ErrRecordType{Detail: fmt.Sprintf("%s.%s: field names cannot contain a '.'", name, fieldName)}
		}

		kind, elem, err := fieldKind(f.Type)
		if err != nil {
			return domain.ErrRecordType{Detail: fmt.Sprintf("%s.%s: %v", name, f.Name, err)}
		}
		desc := domain.FieldDescriptor{Name: fieldName, Kind: kind}
		if elem != nil {
			desc.Elem = elem.Name()
			if err := r.register(elem); err != nil {
				return err
			}
		}
		info.descs = append(info.descs, desc)
		info.byName[fieldName] = desc
		info.index[fieldName] = i
	}

	if info.idIndex < 0 {
		return domain.ErrRecordType{Detail: fmt.Sprintf("type %s declares no identifier field (tag `recdb:%q`)", name, idField)}
	}
	return nil
}

func fieldKind(t goreflect.Type) (domain.FieldKind, goreflect.Type, error) {
	switch t.Kind() {
	case goreflect.Ptr:
		if t.Elem().Kind() == goreflect.Struct && t.Elem() != timeTyp {
			return domain.KindRecord, t.Elem(), nil
		}
		return domain.KindScalar, nil, nil
	case goreflect.Slice, goreflect.Array:
		e := t.Elem()
		if e.Kind() == goreflect.Ptr && e.Elem().Kind() == goreflect.Struct && e.Elem() != timeTyp {
			return domain.KindList, e.Elem(), nil
		}
		if e.Kind() == goreflect.Struct && e != timeTyp {
			return 0, nil, fmt.Errorf("lists of nested records must hold pointers, got %s", t.String())
		}
		return domain.KindScalar, nil, nil
	case goreflect.Struct:
		if t == timeTyp {
			return domain.KindScalar, nil, nil
		}
		return 0, nil, fmt.Errorf("nested records must be declared as pointers, got %s", t.String())
	default:
		return domain.KindScalar, nil, nil
	}
}

// Fields implements domain.Registry.
func (r *Registry) Fields(recordType string) ([]domain.FieldDescriptor, error) {
	info, ok := r.types[recordType]
	if !ok {
		return nil, domain.ErrUnknownType{Name: recordType}
	}
	out := make([]domain.FieldDescriptor, len(info.descs))
	copy(out, info.descs)
	return out, nil
}

// New implements domain.Registry.
func (r *Registry) New(recordType string) (any, error) {
	info, ok := r.types[recordType]
	if !ok {
		return nil, domain.ErrUnknownType{Name: recordType}
	}
	return goreflect.New(info.typ).Interface(), nil
}

// TypeName implements domain.Registry.
func (r *Registry) TypeName(record any) (string, error) {
	_, info, err := r.structValue(record)
	if err != nil {
		return "", err
	}
	return info.typ.Name(), nil
}

// Get implements domain.Registry. Unset nested fields, nil scalar pointers
// and empty lists all read as nil; list fields read as []any of record
// instances, nil elements skipped.
func (r *Registry) Get(record any, field string) (any, error) {
	rv, info, err := r.structValue(record)
	if err != nil {
		return nil, err
	}
	i, ok := info.index[field]
	if !ok {
		return nil, domain.ErrUnknownField{Type: info.typ.Name(), Field: field}
	}
	fv := rv.Field(i)

	switch fv.Kind() {
	case goreflect.Ptr, goreflect.Interface, goreflect.Map, goreflect.Slice:
		if fv.IsNil() {
			return nil, nil
		}
	}

	if info.byName[field].Kind == domain.KindList {
		out := make([]any, 0, fv.Len())
		for n := range fv.Len() {
			ev := fv.Index(n)
			if ev.Kind() == goreflect.Ptr && ev.IsNil() {
				continue
			}
			out = append(out, ev.Interface())
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	}
	return fv.Interface(), nil
}

// Set implements domain.Registry.
func (r *Registry) Set(record any, field string, value any) error {
	rv, info, err := r.structValue(record)
	if err != nil {
		return err
	}
	i, ok := info.index[field]
	if !ok {
		return domain.ErrUnknownField{Type: info.typ.Name(), Field: field}
	}
	return r.assign(rv.Field(i), value)
}

// NewList implements domain.Registry.
func (r *Registry) NewList(recordType string, elems ...any) (any, error) {
	info, ok := r.types[recordType]
	if !ok {
		return nil, domain.ErrUnknownType{Name: recordType}
	}
	ptrTyp := goreflect.PtrTo(info.typ)
	lst := goreflect.MakeSlice(goreflect.SliceOf(ptrTyp), 0, len(elems))
	for _, el := range elems {
		ev := goreflect.ValueOf(el)
		if !ev.Type().AssignableTo(ptrTyp) {
			return nil, domain.ErrRecordType{Detail: fmt.Sprintf("list element %T is not %s", el, ptrTyp.String())}
		}
		lst = goreflect.Append(lst, ev)
	}
	return lst.Interface(), nil
}

// ID implements domain.Registry. A zero identifier attribute reads as nil,
// meaning no identifier has been assigned yet.
func (r *Registry) ID(record any) (any, error) {
	rv, info, err := r.structValue(record)
	if err != nil {
		return nil, err
	}
	fv := rv.Field(info.idIndex)
	if fv.IsZero() {
		return nil, nil
	}
	return fv.Interface(), nil
}

// SetID implements domain.Registry.
func (r *Registry) SetID(record any, id any) error {
	rv, info, err := r.structValue(record)
	if err != nil {
		return err
	}
	return r.assign(rv.Field(info.idIndex), id)
}

func (r *Registry) structValue(record any) (goreflect.Value, *typeInfo, error) {
	if record == nil {
		return goreflect.Value{}, nil, domain.ErrNilRecord
	}
	rv := goreflect.ValueOf(record)
	for rv.Kind() == goreflect.Interface {
		if rv.IsNil() {
			return goreflect.Value{}, nil, domain.ErrNilRecord
		}
		rv = rv.Elem()
	}
	// By-value records are unaddressable: writes through them would be
	// lost, so they are rejected up front.
	if rv.Kind() != goreflect.Ptr {
		return goreflect.Value{}, nil, domain.ErrRecordType{Detail: fmt.Sprintf("records must be passed as pointers, got %s", rv.Type().String())}
	}
	for rv.Kind() == goreflect.Ptr {
		if rv.IsNil() {
			return goreflect.Value{}, nil, domain.ErrNilRecord
		}
		rv = rv.Elem()
	}
	if rv.Kind() != goreflect.Struct {
		return goreflect.Value{}, nil, domain.ErrRecordType{Detail: fmt.Sprintf("expected pointer to struct, got %s", rv.Type().String())}
	}
	info, ok := r.types[rv.Type().Name()]
	if !ok || info.typ != rv.Type() {
		return goreflect.Value{}, nil, domain.ErrUnknownType{Name: rv.Type().Name()}
	}
	return rv, info, nil
}

func (r *Registry) assign(fv goreflect.Value, value any) error {
	if value == nil {
		fv.Set(goreflect.Zero(fv.Type()))
		return nil
	}
	vv := goreflect.ValueOf(value)
	if vv.Type().AssignableTo(fv.Type()) {
		fv.Set(vv)
		return nil
	}
	// Values that round-tripped through storage (float64 numbers, []any
	// lists, time strings) are coerced by the decoder.
	tgt := goreflect.New(fv.Type())
	if err := r.decoder.Decode(value, tgt.Interface()); err != nil {
		return err
	}
	fv.Set(tgt.Elem())
	return nil
}
