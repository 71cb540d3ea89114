package errors

import (
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrUpload       = fmt.Errorf("upload failed")
	ErrStore        = fmt.Errorf("record store unavailable")
)

// FieldError names one offending input field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

// Add records a field failure. A field is reported once; the first reason wins.
func (v *ValidationError) Add(field, reason string) {
	for _, f := range v.Fields {
		if f.Field == field {
			return
		}
	}
	v.Fields = append(v.Fields, FieldError{Field: field, Reason: reason})
}

// Empty reports whether no field failed.
func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// Map returns the failures keyed by field name.
func (v *ValidationError) Map() map[string]string {
	out := make(map[string]string, len(v.Fields))
	for _, f := range v.Fields {
		out[f.Field] = f.Reason
	}
	return out
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%v: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (v *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// UploadError reports a file that the blob store did not accept.
type UploadError struct {
	Slot string
	Err  error
}

func (u *UploadError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrUpload, u.Slot, u.Err)
}

func (u *UploadError) Unwrap() []error {
	return []error{ErrUpload, u.Err}
}
