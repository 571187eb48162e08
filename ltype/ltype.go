// Package ltype holds the type descriptors that schemas are built from.
//
// A descriptor is a named, stateless predicate paired with a
// human-readable definition.  Descriptors are values created once at
// package initialization; none of them hold state and none of their
// predicates panic, whatever they are handed.
package ltype

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/muir/reflectutils"
)

// Descriptor describes an accepted value shape.
type Descriptor interface {
	Name() string
	Definition() string
	HasSameTypeAs(v any) bool
}

type descriptor struct {
	name       string
	definition string
	test       func(any) bool
}

var _ Descriptor = (*descriptor)(nil)

func (d *descriptor) Name() string       { return d.name }
func (d *descriptor) Definition() string { return d.definition }
func (d *descriptor) String() string     { return d.name }

func (d *descriptor) HasSameTypeAs(v any) bool {
	if d.test == nil {
		return false
	}
	return d.test(v)
}

// New creates a custom descriptor.  The test function must not panic.
// Descriptors compare by identity: two calls with the same arguments
// produce different descriptors.
func New(name, definition string, test func(any) bool) Descriptor {
	return &descriptor{
		name:       name,
		definition: definition,
		test:       test,
	}
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// String accepts Go strings.
var String = New("string", "a string", func(v any) bool {
	_, ok := v.(string)
	return ok
})

// Email accepts strings that contain an @ sign.
var Email = New("email", "a string that contains an @ sign", func(v any) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, "@")
})

// Number accepts every integer and floating point kind as well
// as json.Number.
var Number = New("number", "a number", func(v any) bool {
	_, ok := toFloat(v)
	return ok
})

// Phone accepts strings of seven to fifteen digits with an optional
// leading plus sign.
var Phone = New("phone", "a phone number", func(v any) bool {
	s, ok := v.(string)
	return ok && phonePattern.MatchString(s)
})

// Boolean accepts bool.
var Boolean = New("boolean", "a boolean", func(v any) bool {
	_, ok := v.(bool)
	return ok
})

// Date accepts time.Time values and strings that parse as a date.
// Numbers are rejected even though they could be read as timestamps.
var Date = New("date", "a date instance", func(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	case string:
		_, ok := ParseDate(t)
		return ok
	default:
		return false
	}
})

// Array accepts slices and arrays, except byte slices which are buffers.
var Array = New("array", "an array", func(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return !isBytes(t)
	default:
		return false
	}
})

// Buffer accepts byte slices and *bytes.Buffer.
var Buffer = New("buffer", "a buffer", func(v any) bool {
	if b, ok := v.(*bytes.Buffer); ok {
		return b != nil
	}
	if v == nil {
		return false
	}
	return isBytes(reflect.TypeOf(v))
})

// File accepts uploaded files: *multipart.FileHeader and anything that
// satisfies multipart.File (including *os.File).
var File = New("file", "a file", func(v any) bool {
	switch f := v.(type) {
	case *multipart.FileHeader:
		return f != nil
	case multipart.File:
		return !isNilPointer(f)
	default:
		return false
	}
})

// Absent marks a flexible field as optional.  It never matches a value
// by itself: the matcher treats it as "the field may be missing".
var Absent = New("absent", "not defined", func(any) bool { return false })

// IsAbsent reports whether d is the Absent marker.
func IsAbsent(d Descriptor) bool {
	return d == nil || d == Absent
}

// Enum creates a descriptor that accepts exactly the listed values.
// Numeric values compare by value across Go numeric types so that
// Enum(1, 2) accepts the float64 2 produced by JSON decoding.
func Enum(values ...any) Descriptor {
	options := make([]string, len(values))
	for i, v := range values {
		options[i] = fmt.Sprint(v)
	}
	var first any
	if len(values) > 0 {
		first = values[0]
	}
	allowed := append([]any(nil), values...)
	return New("enum",
		fmt.Sprintf("a %s from the following options: %s", kindName(first), strings.Join(options, ", ")),
		func(v any) bool {
			for _, a := range allowed {
				if sameValue(a, v) {
					return true
				}
			}
			return false
		})
}

var builtins = map[string]Descriptor{}

func init() {
	for _, d := range []Descriptor{String, Email, Number, Phone, Boolean, Date, Array, Buffer, File, Absent} {
		builtins[d.Name()] = d
	}
	builtins["undefined"] = Absent
}

// Lookup finds a builtin descriptor by name.  Names are case
// insensitive.  "undefined" is an alias for "absent".
func Lookup(name string) (Descriptor, bool) {
	d, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.RFC822Z,
	time.RFC822,
	time.ANSIC,
	time.UnixDate,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDate tries the layouts that Date accepts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func toFloat(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func sameValue(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func kindName(v any) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return reflectutils.TypeName(reflect.TypeOf(v))
}
