package schema

import (
	"fmt"

	"github.com/IntellionInc/logos/ltype"
)

// Outcome is the result of matching one value against one entry.
type Outcome int

const (
	// Mismatch means no declared descriptor accepts the value.
	Mismatch Outcome = iota
	// Allowed means a declared descriptor accepts the value.
	Allowed
	// Optional means the value is absent and absence is permitted.
	Optional
	// Getter means the entry is computed and the value is taken verbatim.
	Getter
)

func (o Outcome) String() string {
	switch o {
	case Mismatch:
		return "mismatch"
	case Allowed:
		return "allowed"
	case Optional:
		return "optional"
	case Getter:
		return "getter"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Match decides whether value satisfies entry.  present reports
// whether the key existed in the input at all; a nil value counts as
// absent either way.
func Match(entry Entry, value any, present bool) Outcome {
	switch entry.Kind {
	case KindComputed:
		return Getter
	case KindFlex:
		for _, d := range entry.Types {
			if !ltype.IsAbsent(d) && d.HasSameTypeAs(value) {
				return Allowed
			}
		}
		if !present || value == nil {
			for _, d := range entry.Types {
				if ltype.IsAbsent(d) {
					return Optional
				}
			}
		}
		return Mismatch
	default:
		if len(entry.Types) == 1 && entry.Types[0] != nil && entry.Types[0].HasSameTypeAs(value) {
			return Allowed
		}
		return Mismatch
	}
}

// Check matches the value stored under entry.Key in record and returns
// a *TypeMismatchError on mismatch.
func Check(entry Entry, record map[string]any) (Outcome, any, error) {
	value, present := record[entry.Key]
	outcome := Match(entry, value, present)
	if outcome == Mismatch {
		return outcome, value, NewTypeMismatchError(entry.Key, entry.Definition(), value, present)
	}
	return outcome, value, nil
}

// TypeMismatchError reports a value that does not match its declared
// types.
type TypeMismatchError struct {
	Key      string
	Expected string
	Received any
	// Missing is set when the key was not in the input at all.
	Missing bool
}

// NewTypeMismatchError builds a TypeMismatchError.
func NewTypeMismatchError(key, expected string, received any, present bool) *TypeMismatchError {
	return &TypeMismatchError{
		Key:      key,
		Expected: expected,
		Received: received,
		Missing:  !present,
	}
}

func (err *TypeMismatchError) Error() string {
	return fmt.Sprintf("Expected %s to confirm to definition(s): \"%s\", but received \"%s\"",
		err.Key, err.Expected, renderReceived(err.Received))
}

// ErrorName is used by error dictionaries.
func (err *TypeMismatchError) ErrorName() string { return "TypeMismatchError" }

func renderReceived(v any) string {
	if v == nil {
		return "undefined"
	}
	return fmt.Sprint(v)
}
