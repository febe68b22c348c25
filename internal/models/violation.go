package models

import "strconv"

// Attribute is a single named value describing the offending resource.
// Attributes are kept as an ordered slice rather than a map so that the
// composed alert renders them in the order the rule recorded them.
type Attribute struct {
	Name  string
	Value string
}

// Violation is the unit of output from a rule: a one-line summary plus an
// open set of flat attributes. Title is always non-empty for a violation
// produced by a rule; an empty violation slice means "nothing detected".
type Violation struct {
	Title      string
	Attributes []Attribute
}

// NewViolation creates a violation with the given title.
func NewViolation(title string) Violation {
	return Violation{Title: title}
}

// With appends a string attribute and returns the updated violation.
func (v Violation) With(name, value string) Violation {
	v.Attributes = append(v.Attributes, Attribute{Name: name, Value: value})
	return v
}

// WithInt appends a numeric attribute and returns the updated violation.
func (v Violation) WithInt(name string, value int) Violation {
	return v.With(name, strconv.Itoa(value))
}
