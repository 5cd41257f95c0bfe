package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNotAuthor  = errors.New("only the author can edit this post")
	ErrSelfFollow = errors.New("cannot follow yourself")
	ErrBadLogin   = errors.New("Please enter a correct username and password. Note that both fields may be case-sensitive.")
)

// ValidationErrors maps a form field to its messages. The empty key holds non-field errors.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(v[f], " "))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Add records msg against field.
func (v ValidationErrors) Add(field, msg string) {
	v[field] = append(v[field], msg)
}

// OrNil returns nil when nothing was recorded, so callers can return it as an error.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
