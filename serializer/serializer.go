// Package serializer shapes outbound data through a schema.
//
// Serialization is fail-together: every field is evaluated and every
// failure is collected before a single SerializationError is returned.
// Data fields are copied when their value matches; computed fields are
// evaluated and copied verbatim.  Optional flexible fields that are
// missing resolve to nil and keep their key in the output.
package serializer

import (
	"context"
	"reflect"
	"strings"

	"github.com/IntellionInc/logos/schema"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Record is one serialized object.
type Record = map[string]any

// SerializationError aggregates every failure of one record.
type SerializationError struct {
	Errors []error
}

// NewSerializationError wraps errs.  Nil entries are dropped.
func NewSerializationError(errs ...error) *SerializationError {
	return &SerializationError{Errors: multierr.Errors(multierr.Combine(errs...))}
}

func (err *SerializationError) Error() string {
	parts := make([]string, len(err.Errors))
	for i, e := range err.Errors {
		parts[i] = ErrorName(e) + ": " + e.Error()
	}
	return strings.Join(parts, ", ")
}

// ErrorName is used by error dictionaries.
func (err *SerializationError) ErrorName() string { return "SerializationError" }

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (err *SerializationError) Unwrap() []error { return err.Errors }

// ErrorName returns the name an error reports through an ErrorName
// method, or "Error".
func ErrorName(err error) string {
	var named interface{ ErrorName() string }
	if errors.As(err, &named) {
		return named.ErrorName()
	}
	return "Error"
}

// Serialize shapes input through s.  A single record (a map or a
// struct) produces a Record.  A slice produces a []Record in the same
// order; its elements are evaluated in parallel and the first element
// error is returned.
func Serialize(ctx context.Context, s *schema.Schema, input any) (any, error) {
	if s == nil {
		return nil, errors.New("serializer: nil schema")
	}
	switch v := input.(type) {
	case map[string]any:
		return One(ctx, s, v)
	case []map[string]any:
		return Many(ctx, s, v)
	case []any:
		records := make([]map[string]any, len(v))
		for i, element := range v {
			r, err := toRecord(element)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			records[i] = r
		}
		return Many(ctx, s, records)
	}
	rv := reflect.ValueOf(input)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		records := make([]map[string]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			r, err := toRecord(rv.Index(i).Interface())
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			records[i] = r
		}
		return Many(ctx, s, records)
	}
	r, err := toRecord(input)
	if err != nil {
		return nil, err
	}
	return One(ctx, s, r)
}

// Many serializes records concurrently.  The output order matches the
// input order and, when several records fail, the error of the lowest
// index is returned.
func Many(ctx context.Context, s *schema.Schema, records []map[string]any) ([]Record, error) {
	out := make([]Record, len(records))
	errs := make([]error, len(records))
	var g errgroup.Group
	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			out[i], errs[i] = One(ctx, s, record)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// One serializes a single record.  Data fields come first in
// declaration order, then computed fields in declaration order.
// Computed fields are evaluated sequentially.
func One(ctx context.Context, s *schema.Schema, record map[string]any) (Record, error) {
	if record == nil {
		record = map[string]any{}
	}
	out := make(Record, len(s.Entries()))
	var errs error
	for _, entry := range s.Fields() {
		outcome, value, err := schema.Check(entry, record)
		switch outcome {
		case schema.Allowed:
			out[entry.Key] = value
		case schema.Optional:
			out[entry.Key] = nil
		default:
			errs = multierr.Append(errs, err)
		}
	}
	for _, entry := range s.Computed() {
		value, err := compute(ctx, entry, record)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out[entry.Key] = value
	}
	if errs != nil {
		return nil, &SerializationError{Errors: multierr.Errors(errs)}
	}
	return out, nil
}

func compute(ctx context.Context, entry schema.Entry, record map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = errors.Errorf("%v", r)
		}
	}()
	return entry.Compute(ctx, record)
}

// toRecord accepts maps directly.  Structs become records keyed by
// their json names with the original Go values, so nothing is lost to
// an encoding round trip.
func toRecord(v any) (map[string]any, error) {
	switch r := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return r, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return structRecord(rv), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		record := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			record[iter.Key().String()] = iter.Value().Interface()
		}
		return record, nil
	}
	return nil, errors.Errorf("serializer: %T is not an object", v)
}

type structField struct {
	depth int
	value any
}

func structRecord(rv reflect.Value) map[string]any {
	fields := map[string]structField{}
	reflectutils.WalkStructElements(rv.Type(), func(field reflect.StructField) bool {
		tag := field.Tag.Get("json")
		if tag == "-" {
			return false
		}
		name, opts, _ := strings.Cut(tag, ",")
		if field.Anonymous && name == "" && field.Type.Kind() == reflect.Struct {
			return true
		}
		if !field.IsExported() {
			return false
		}
		if name == "" {
			name = field.Name
		}
		fv := rv.FieldByIndex(field.Index)
		if !fv.CanInterface() {
			return false
		}
		if hasOption(opts, "omitempty") && isEmpty(fv) {
			return false
		}
		if prior, ok := fields[name]; ok && prior.depth <= len(field.Index) {
			return false
		}
		fields[name] = structField{depth: len(field.Index), value: fv.Interface()}
		return false
	})
	record := make(map[string]any, len(fields))
	for name, f := range fields {
		record[name] = f.value
	}
	return record
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// isEmpty follows encoding/json's notion of an empty value.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Ptr:
		return v.IsZero()
	}
	return false
}
