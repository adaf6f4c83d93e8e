package errors

import (
	"strings"
)

// Errors is a non-empty list of errors. A nil Errors means no error, so callers
// accumulate with Append and compare the result against nil.
type Errors interface {
	error
	// Slice returns a copy of the underlying (non-nil) errors.
	Slice() []error
	// Len is always > 0.
	Len() int
	// Unwrap lets Is and As inspect every accumulated error.
	Unwrap() []error
}

type errorSlice []error

func (m errorSlice) Slice() []error {
	return append([]error(nil), m...)
}

func (m errorSlice) Len() int {
	return len(m)
}

func (m errorSlice) Unwrap() []error {
	return m.Slice()
}

func (m errorSlice) Error() string {
	msgs := make([]string, 0, len(m))
	for _, err := range m {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

// Append appends the given (possibly nil) error to the given (possibly nil) Errors.
// Appending an Errors flattens it.
func Append(errs Errors, err error) Errors {
	if err == nil {
		return errs
	}
	var out errorSlice
	if errs != nil {
		out = errorSlice(errs.Slice())
	}
	if multi, ok := err.(Errors); ok {
		return append(out, multi.Slice()...)
	}
	return append(out, err)
}

// Combine combines errors e & f into a single error, or nil if both are nil
func Combine(e, f error) error {
	switch e := e.(type) {
	case nil:
		return f
	case Errors:
		return Append(e, f)
	default:
		if f == nil {
			return e
		}
		return Append(errorSlice{e}, f)
	}
}

// Defer combines the result of f into *err; use it with deferred Close calls
func Defer(err *error, f func() error) {
	*err = Combine(*err, f())
}

// OrNil converts a possibly nil Errors into a plain error, avoiding typed-nil interfaces
func OrNil(errs Errors) error {
	if errs == nil {
		return nil
	}
	return errs
}
