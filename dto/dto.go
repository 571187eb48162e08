// Package dto validates inbound request data against schemas.
//
// Validation is fail-fast: fields are checked in the schema's
// declaration order and the first mismatch is returned.  Nothing is
// written back; a DTO only answers "is this input acceptable".
package dto

import (
	"sort"

	"github.com/IntellionInc/logos/schema"

	"github.com/pkg/errors"
)

// Validate checks input against s.  It returns true, or false and the
// *schema.TypeMismatchError of the first failing field.  Computed
// entries are not inputs and are skipped.
func Validate(s *schema.Schema, input map[string]any) (bool, error) {
	if s == nil {
		return true, nil
	}
	for _, entry := range s.Fields() {
		if _, _, err := schema.Check(entry, input); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Request parts recognized by Set.
const (
	Body    = "body"
	Params  = "params"
	Query   = "query"
	Headers = "headers"
)

var partOrder = map[string]int{
	Body:    0,
	Params:  1,
	Query:   2,
	Headers: 3,
}

// Set attaches a schema to each request part that must be validated.
type Set map[string]*schema.Schema

// ForBody is shorthand for a Set that only validates the body.
func ForBody(s *schema.Schema) Set {
	return Set{Body: s}
}

// Parts lists the parts in validation order: body, params, query,
// headers, then any others alphabetically.
func (set Set) Parts() []string {
	parts := make([]string, 0, len(set))
	for part := range set {
		parts = append(parts, part)
	}
	sort.Slice(parts, func(i, j int) bool {
		oi, iKnown := partOrder[parts[i]]
		oj, jKnown := partOrder[parts[j]]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		default:
			return parts[i] < parts[j]
		}
	})
	return parts
}

// PartError wraps a validation failure with the request part it
// happened in.
type PartError struct {
	Part string
	Err  error
}

func (err *PartError) Error() string { return err.Err.Error() }
func (err *PartError) Unwrap() error { return err.Err }
func (err *PartError) Cause() error  { return err.Err }

// ErrorName is used by error dictionaries and reports the wrapped
// error's name.
func (err *PartError) ErrorName() string {
	var named interface{ ErrorName() string }
	if errors.As(err.Err, &named) {
		return named.ErrorName()
	}
	return "ValidationError"
}

// Validate checks every part.  A missing part validates as an empty
// record.  The first failure is returned as a *PartError.
func (set Set) Validate(parts map[string]map[string]any) (bool, error) {
	for _, part := range set.Parts() {
		input := parts[part]
		if input == nil {
			input = map[string]any{}
		}
		if ok, err := Validate(set[part], input); !ok {
			return false, &PartError{Part: part, Err: err}
		}
	}
	return true, nil
}

// Merge returns a new set with the entries of both; other wins on
// conflicts.
func (set Set) Merge(other Set) Set {
	merged := make(Set, len(set)+len(other))
	for k, v := range set {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
