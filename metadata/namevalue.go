// Package metadata holds the free form labels attached to archived runs.
package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// NameValue is a BigQuery-compatible type for "name"/"value" pairs.
type NameValue struct {
	Name  string
	Value string
}

// ErrInvalidLabel is returned for labels that are not of the form name=value,
// use a reserved name, or repeat a name.
var ErrInvalidLabel = errors.New("invalid label")

var (
	nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

	// reservedRe matches the names set by ccstats itself.
	reservedRe = regexp.MustCompile("^ccstats_")
)

// Labels is a repeatable flag.Value of name=value pairs.
type Labels []NameValue

// Set implements flag.Value.
func (l *Labels) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || !nameRe.MatchString(name) || len(value) > 255 {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	if reservedRe.MatchString(name) {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidLabel, name)
	}
	for _, nv := range *l {
		if nv.Name == name {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidLabel, name)
		}
	}
	*l = append(*l, NameValue{Name: name, Value: value})
	return nil
}

func (l *Labels) String() string {
	pairs := make([]string, 0, len(*l))
	for _, nv := range *l {
		pairs = append(pairs, nv.Name+"="+nv.Value)
	}
	return strings.Join(pairs, ",")
}

// With returns the labels followed by the reserved ones describing the
// running binary.
func (l Labels) With(version string) []NameValue {
	out := append([]NameValue(nil), l...)
	return append(out, NameValue{Name: "ccstats_version", Value: version})
}
