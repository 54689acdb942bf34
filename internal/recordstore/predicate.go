package recordstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Predicate is a WHERE clause. It renders to the service's textual form
// and can be evaluated locally against a record.
type Predicate interface {
	String() string
	Match(r Record) bool
}

// Eq matches records whose field equals value. Numeric values compare
// numerically, everything else compares as text.
func Eq(field string, value any) Predicate {
	return eq{field: field, value: value}
}

// And matches when every clause matches.
func And(clauses ...Predicate) Predicate {
	return and(clauses)
}

// Or matches when any clause matches.
func Or(clauses ...Predicate) Predicate {
	return or(clauses)
}

type eq struct {
	field string
	value any
}

func (e eq) String() string {
	return fmt.Sprintf("%s = %s", e.field, literal(e.value))
}

func (e eq) Match(r Record) bool {
	got, ok := r[e.field]
	if !ok {
		return false
	}
	if want, ok := toFloat(e.value); ok && !isText(e.value) {
		have, ok := toFloat(got)
		return ok && have == want
	}
	return fmt.Sprint(got) == fmt.Sprint(e.value)
}

type and []Predicate

func (a and) String() string {
	return join(a, " AND ", func(p Predicate) bool {
		_, nested := p.(or)
		return nested
	})
}

func (a and) Match(r Record) bool {
	for _, p := range a {
		if !p.Match(r) {
			return false
		}
	}
	return true
}

type or []Predicate

func (o or) String() string {
	return join(o, " OR ", func(p Predicate) bool {
		_, nested := p.(and)
		return nested
	})
}

func (o or) Match(r Record) bool {
	for _, p := range o {
		if p.Match(r) {
			return true
		}
	}
	return false
}

func join(clauses []Predicate, sep string, group func(Predicate) bool) string {
	parts := make([]string, 0, len(clauses))
	for _, p := range clauses {
		s := p.String()
		if group(p) && len(clauses) > 1 {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep)
}

func isText(v any) bool {
	_, ok := v.(string)
	return ok
}

// literal renders v as a predicate literal; text is single-quoted with
// embedded quotes doubled.
func literal(v any) string {
	switch n := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(n, "'", "''") + "'"
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(n), "'", "''") + "'"
	}
}
