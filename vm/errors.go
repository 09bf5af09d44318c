package vm

import (
	"errors"
	"fmt"
)

// Rejection causes. Property operations themselves only report false; these
// classify the rejection for callers running strict code.
var (
	ErrNotWritable     = errors.New("not writable")
	ErrNotConfigurable = errors.New("not configurable")
	ErrNotExtensible   = errors.New("object is not extensible")
	ErrInvalidLength   = errors.New("invalid array length")
	ErrUnresolved      = errors.New("unresolved reference")
)

// AttributeError describes a rejected property operation.
type AttributeError struct {
	Op   string
	Name string
	Err  error
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *AttributeError) Unwrap() error { return e.Err }

// ReferenceError reports a global name that resolved nowhere.
type ReferenceError struct {
	Name string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s is not defined", e.Name)
}

func (e *ReferenceError) Unwrap() error { return ErrUnresolved }

// Reject turns the boolean outcome of a property operation into an error.
// Non-strict callers and successful operations get nil.
func Reject(strict, ok bool, op, name string, cause error) error {
	if ok || !strict {
		return nil
	}
	return &AttributeError{Op: op, Name: name, Err: cause}
}

// PutStrict assigns name and, when strict, reports a rejected assignment as
// an *AttributeError.
func (o *Object) PutStrict(name Name, v Value, strict bool) error {
	ok := o.Put(name, v)
	if ok || !strict {
		return nil
	}
	return Reject(strict, ok, "put", o.engine().names.String(name), o.putCause(name, v))
}

// DeleteStrict deletes name and, when strict, reports a non-configurable
// property as an *AttributeError.
func (o *Object) DeleteStrict(name Name, strict bool) error {
	ok := o.DeleteProperty(name)
	return Reject(strict, ok, "delete", o.engine().names.String(name), ErrNotConfigurable)
}

// DefineStrict defines name and always reports a rejection, the way
// defineProperty does regardless of strictness.
func (o *Object) DefineStrict(name Name, d Descriptor) error {
	if o.DefineOwnProperty(name, d) {
		return nil
	}
	cause := ErrNotConfigurable
	if _, exists := o.Query(name); !exists {
		cause = ErrNotExtensible
	}
	return Reject(true, false, "define", o.engine().names.String(name), cause)
}

func (o *Object) putCause(name Name, v Value) error {
	if o.kind == KindArray && name == o.engine().idLength && !o.lengthReadOnly {
		if _, valid := v.ArrayLength(); !valid {
			return ErrInvalidLength
		}
		return ErrNotConfigurable
	}
	for h := o; h != nil; h = h.proto {
		if _, ok := h.Query(name); ok {
			return ErrNotWritable
		}
	}
	return ErrNotExtensible
}
