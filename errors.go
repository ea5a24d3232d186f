package geolocation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidHeader is returned when the first line is not a database header.
	ErrInvalidHeader = errors.New("invalid database header")

	// ErrUnsupportedVersion is returned when the header names another layout version.
	ErrUnsupportedVersion = errors.New("unsupported database version")

	// ErrNotFound is returned when nothing matches a lookup that needs a result.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned when a lookup that needs one result matches several.
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrSentinelCollision is returned when a city record would be read back
	// as the end-of-cities marker.
	ErrSentinelCollision = errors.New("record collides with section sentinel")
)

// HeaderError describes an unparsable header line.
type HeaderError struct {
	Line string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%v: %q, expected \"Geolocation x.xx n\" where x.xx is the version and n the number of cities", ErrInvalidHeader, e.Line)
}

func (e *HeaderError) Unwrap() error { return ErrInvalidHeader }

// VersionError reports a header with a layout version other than FormatVersion.
type VersionError struct {
	Expected string
	Found    string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%v: expected %s, found %s", ErrUnsupportedVersion, e.Expected, e.Found)
}

func (e *VersionError) Unwrap() error { return ErrUnsupportedVersion }

// RecordError reports a city record that could not be decoded. Records after
// it cannot be located, so the whole load fails.
type RecordError struct {
	Index int // position of the record in the cities section
	cause error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("decoding city record %d: %v", e.Index, e.cause)
}

func (e *RecordError) Unwrap() error { return e.cause }

// FieldRangeError reports a city field that does not fit its packed width.
type FieldRangeError struct {
	Field string
	Value any
	Max   any
}

func (e *FieldRangeError) Error() string {
	if e.Max == nil {
		return fmt.Sprintf("city field %s: invalid value %v", e.Field, e.Value)
	}
	return fmt.Sprintf("city field %s: value %v out of range (max %v)", e.Field, e.Value, e.Max)
}

// ParseError reports malformed coordinate or population text.
type ParseError struct {
	Field string // "position" or "population"
	Input string
	Msg   string
	cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Input, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.cause }

// QueryError reports a query string with more comma-separated parts than
// the entity type supports.
type QueryError struct {
	Kind     string
	Query    string
	Segments int
	Max      int
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query %q has %d parts, at most %d allowed", e.Kind, e.Query, e.Segments, e.Max)
}

// AmbiguityError is returned by the Resolve methods when a query does not
// match exactly one entry. Candidates holds every match, Suggestions holds
// close names when there were none.
type AmbiguityError struct {
	Kind        string
	Query       string
	Candidates  []int
	Suggestions []string
}

func (e *AmbiguityError) Error() string {
	if len(e.Candidates) == 0 {
		msg := fmt.Sprintf("no %s matches %q", e.Kind, e.Query)
		if len(e.Suggestions) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(quoteAll(e.Suggestions), ", "))
		}
		return msg
	}
	return fmt.Sprintf("%d %s entries match %q", len(e.Candidates), e.Kind, e.Query)
}

// Is makes the error match ErrNotFound or ErrAmbiguous depending on the
// number of candidates.
func (e *AmbiguityError) Is(target error) bool {
	if len(e.Candidates) == 0 {
		return target == ErrNotFound
	}
	return target == ErrAmbiguous
}

// IndexError reports a position outside a table or the city list, or a city
// whose reference points outside its table.
type IndexError struct {
	Table string
	Index int
	Len   int
	City  int // referencing city, -1 when not applicable
}

func (e *IndexError) Error() string {
	if e.City >= 0 {
		return fmt.Sprintf("city %d: %s index %d out of range [0, %d)", e.City, e.Table, e.Index, e.Len)
	}
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Table, e.Index, e.Len)
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
