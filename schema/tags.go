package schema

import (
	"reflect"
	"strings"

	"github.com/IntellionInc/logos/ltype"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// TagName is the struct tag read by FromStruct.
const TagName = "logos"

// FromStruct builds a schema from the tags on a struct type.  The
// tag format is
//
//	`logos:"key,type|type..."`
//
// where key defaults to the Go field name and each type is a name
// known to ltype.Lookup ("string", "email", "number", "absent", ...).
// A tag of "-" skips the field.  Only the struct type matters; model
// may be a zero value or a nil pointer to the struct.  Fields appear
// in struct order and extra entries (typically Computed ones) follow.
//
//	type CreateUser struct {
//		Name  string  `logos:"name,string"`
//		Email string  `logos:"email,email"`
//		Age   *int    `logos:"age,number|absent"`
//	}
func FromStruct(name string, model any, extra ...Entry) (*Schema, error) {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.Errorf("schema %s: %T is not a struct", name, model)
	}
	var entries []Entry
	var walkErr error
	reflectutils.WalkStructElements(t, func(field reflect.StructField) bool {
		tag, ok := field.Tag.Lookup(TagName)
		if !ok {
			return true
		}
		if tag == "-" {
			return false
		}
		entry, err := parseTag(field, tag)
		if err != nil {
			walkErr = err
			return false
		}
		entries = append(entries, entry)
		return false
	})
	if walkErr != nil {
		return nil, errors.Wrapf(walkErr, "schema %s", name)
	}
	entries = append(entries, extra...)
	var s *Schema
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("%v", r)
			}
		}()
		s = New(name, entries...)
		return nil
	}()
	return s, err
}

// MustFromStruct is FromStruct for package-level schema variables.
func MustFromStruct(name string, model any, extra ...Entry) *Schema {
	s, err := FromStruct(name, model, extra...)
	if err != nil {
		panic(err.Error())
	}
	return s
}

func parseTag(field reflect.StructField, tag string) (Entry, error) {
	key, types, _ := strings.Cut(tag, ",")
	key = strings.TrimSpace(key)
	if key == "" {
		key = field.Name
	}
	if strings.TrimSpace(types) == "" {
		return Entry{}, errors.Errorf("field %s: no types in tag %q", field.Name, tag)
	}
	var ds []ltype.Descriptor
	for _, name := range strings.Split(types, "|") {
		d, ok := ltype.Lookup(name)
		if !ok {
			return Entry{}, errors.Errorf("field %s: unknown type %q", field.Name, name)
		}
		ds = append(ds, d)
	}
	if len(ds) == 1 && !ltype.IsAbsent(ds[0]) {
		return Field(key, ds[0]), nil
	}
	return Flex(key, ds...), nil
}
