// Package filter turns raw filter parameters into validated token sets for
// the enumerated query axes (muscle group, difficulty, equipment) and for
// the name substring search. Axis values may arrive as repeated query
// parameters, as one comma-separated string, or a mix; all forms normalize
// to one ordered token sequence.
package filter

import (
	"fmt"
	"strings"
)

// Error describes a rejected filter request. Exactly one of Missing or
// Invalid applies: Missing when no tokens survived normalization, Invalid
// when at least one token is outside the axis's closed set. Options always
// carries the axis's full valid set so clients can self-correct.
type Error struct {
	Param   string
	Missing bool
	Invalid []string
	Options []string
}

func (e *Error) Error() string {
	if e.Missing {
		return fmt.Sprintf("missing required filter parameter '%s'", e.Param)
	}
	return fmt.Sprintf("invalid %s values: %s. Valid options: %s",
		e.Param, strings.Join(e.Invalid, ", "), strings.Join(e.Options, ", "))
}

// Tokens normalizes raw parameter values into an ordered token sequence:
// each value is split on commas, every piece is trimmed, empty pieces are
// dropped, order is preserved. Duplicates are kept; set semantics belong to
// the store query, not the parser.
func Tokens(values []string) []string {
	var tokens []string
	for _, value := range values {
		for _, piece := range strings.Split(value, ",") {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			tokens = append(tokens, piece)
		}
	}
	return tokens
}

// Axis is one enumerated filter dimension.
type Axis struct {
	// Param is the query parameter name, used in error reporting.
	Param string
	// Options is the closed set of valid tokens for this axis.
	Options []string
}

// Validate checks a normalized token sequence against the axis. An empty
// sequence is a missing-filter error; otherwise every token must be a
// member of Options and the error names all offenders, not just the first.
func (a Axis) Validate(tokens []string) ([]string, *Error) {
	if len(tokens) == 0 {
		return nil, &Error{Param: a.Param, Missing: true, Options: a.Options}
	}
	var invalid []string
	for _, token := range tokens {
		if !a.contains(token) {
			invalid = append(invalid, token)
		}
	}
	if len(invalid) > 0 {
		return nil, &Error{Param: a.Param, Invalid: invalid, Options: a.Options}
	}
	return tokens, nil
}

func (a Axis) contains(token string) bool {
	for _, option := range a.Options {
		if token == option {
			return true
		}
	}
	return false
}

// SearchTerm validates a raw name-search input: trimmed, must be non-empty.
func SearchTerm(raw string) (string, *Error) {
	term := strings.TrimSpace(raw)
	if term == "" {
		return "", &Error{Param: "name", Missing: true}
	}
	return term, nil
}
