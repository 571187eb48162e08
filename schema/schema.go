// Package schema declares field → type mappings and decides whether a
// value is compatible with a declared field.
//
// A Schema is an ordered list of entries.  Field entries take exactly
// one descriptor, Flex entries take several (one of which may be
// ltype.Absent to permit a missing value), and Computed entries are
// evaluated at serialization time and never type checked.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/IntellionInc/logos/ltype"
)

// Kind distinguishes the three kinds of entries.
type Kind int

const (
	// KindField is a required field with a single descriptor.
	KindField Kind = iota
	// KindFlex is a field that matches any of several descriptors.
	KindFlex
	// KindComputed is evaluated from the input record.
	KindComputed
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindFlex:
		return "flex"
	case KindComputed:
		return "computed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ComputeFunc produces the value of a computed entry.  The record is
// the input being serialized.
type ComputeFunc func(ctx context.Context, record map[string]any) (any, error)

// Entry is one declared key of a schema.
type Entry struct {
	Key     string
	Kind    Kind
	Types   []ltype.Descriptor
	Compute ComputeFunc
}

// Field declares a required field.
func Field(key string, d ltype.Descriptor) Entry {
	return Entry{
		Key:   key,
		Kind:  KindField,
		Types: []ltype.Descriptor{d},
	}
}

// Flex declares a field that accepts any of the descriptors.  Include
// ltype.Absent to allow the field to be missing or nil.
func Flex(key string, ds ...ltype.Descriptor) Entry {
	return Entry{
		Key:   key,
		Kind:  KindFlex,
		Types: append([]ltype.Descriptor(nil), ds...),
	}
}

// Nullable is shorthand for Flex(key, d, ltype.Absent).
func Nullable(key string, d ltype.Descriptor) Entry {
	return Flex(key, d, ltype.Absent)
}

// Computed declares a value derived from the input record.
func Computed(key string, fn ComputeFunc) Entry {
	return Entry{
		Key:     key,
		Kind:    KindComputed,
		Compute: fn,
	}
}

// Definition renders what the entry expects.  The absent marker
// renders as "not defined" and flexible lists are joined with ", ".
func (e Entry) Definition() string {
	if e.Kind == KindComputed {
		return "a computed value"
	}
	defs := make([]string, len(e.Types))
	for i, d := range e.Types {
		if ltype.IsAbsent(d) {
			defs[i] = ltype.Absent.Definition()
			continue
		}
		defs[i] = d.Definition()
	}
	return strings.Join(defs, ", ")
}

// Schema is an ordered, named set of entries.  Schemas are immutable
// once built and may be shared between goroutines.
type Schema struct {
	name    string
	entries []Entry
	index   map[string]int
}

// New builds a schema.  Entries keep the order given.  New panics on
// duplicate keys or entries without a key since those are programming
// errors caught at startup.
func New(name string, entries ...Entry) *Schema {
	s := &Schema{
		name:    name,
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Key == "" {
			panic(fmt.Sprintf("schema %s: entry without a key", name))
		}
		if _, ok := s.index[e.Key]; ok {
			panic(fmt.Sprintf("schema %s: duplicate key %q", name, e.Key))
		}
		if e.Kind == KindComputed && e.Compute == nil {
			panic(fmt.Sprintf("schema %s: computed key %q has no function", name, e.Key))
		}
		if e.Kind != KindComputed && len(e.Types) == 0 {
			panic(fmt.Sprintf("schema %s: key %q has no types", name, e.Key))
		}
		s.index[e.Key] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s
}

// Name returns the name given to New.
func (s *Schema) Name() string { return s.name }

func (s *Schema) String() string { return "schema " + s.name }

// Entries returns all entries in declaration order.
func (s *Schema) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Fields returns the data (non-computed) entries in declaration order.
func (s *Schema) Fields() []Entry {
	fields := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Kind != KindComputed {
			fields = append(fields, e)
		}
	}
	return fields
}

// Computed returns the computed entries in declaration order.
func (s *Schema) Computed() []Entry {
	var computed []Entry
	for _, e := range s.entries {
		if e.Kind == KindComputed {
			computed = append(computed, e)
		}
	}
	return computed
}

// Keys lists data keys followed by computed keys, the order in which
// serialization reports them.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for _, e := range s.Fields() {
		keys = append(keys, e.Key)
	}
	for _, e := range s.Computed() {
		keys = append(keys, e.Key)
	}
	return keys
}

// Lookup finds an entry by key.
func (s *Schema) Lookup(key string) (Entry, bool) {
	i, ok := s.index[key]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}
