package geolocation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"sync"
)

// PopulationCode is a population packed into 12 bits: the whole digit in
// bits 8-11, the decimal digit in bits 4-7 and the power of ten in bits 0-3.
// 0x235 is 2.3e+5.
type PopulationCode uint16

// maxPopulationCode is the largest value that fits the record's 12-bit field.
const maxPopulationCode = 0x0fff

// populationRegex matches "<whole>.<decimal>e+<exponent>". Parts are captured
// as digit runs so out-of-range digits get a specific error.
var populationRegex = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^(\d+)\.(\d+)[eE]\+?(\d+)$`)
})

// ParsePopulation parses "0" or a population in the form "2.3e+5".
func ParsePopulation(s string) (PopulationCode, error) {
	if s == "0" {
		return 0, nil
	}
	m := populationRegex().FindStringSubmatch(s)
	if m == nil {
		return 0, &ParseError{Field: "population", Input: s, Msg: `expected "<whole>.<decimal>e+<exponent>"`}
	}

	whole, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil || whole > 9 {
		return 0, &ParseError{Field: "population", Input: s, Msg: "whole part must be a single digit, 0-9", cause: err}
	}
	decimal, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil || decimal > 9 {
		return 0, &ParseError{Field: "population", Input: s, Msg: "decimal part must be a single digit, 0-9", cause: err}
	}
	exp, err := strconv.ParseUint(m[3], 10, 16)
	if err != nil || exp > 15 {
		return 0, &ParseError{Field: "population", Input: s, Msg: "exponent must be between 0 and 15 inclusive", cause: err}
	}

	return PopulationCode(whole<<8 | decimal<<4 | exp), nil
}

// FormatPopulation renders a packed population. Codes whose two digits are
// both zero render as "0" whatever their exponent.
func FormatPopulation(p PopulationCode) string {
	if p&0x0ff0 == 0 {
		return "0"
	}
	return fmt.Sprintf("%d.%de+%d", p.whole(), p.decimal(), p.exponent())
}

func (p PopulationCode) String() string { return FormatPopulation(p) }

// Approx returns the population as a plain number, e.g. 230000 for 2.3e+5.
func (p PopulationCode) Approx() int64 {
	if p&0x0ff0 == 0 {
		return 0
	}
	tenths := int64(p.whole())*10 + int64(p.decimal())
	return int64(float64(tenths) * math.Pow10(int(p.exponent())-1))
}

func (p PopulationCode) whole() uint16    { return uint16(p>>8) & 0x0f }
func (p PopulationCode) decimal() uint16  { return uint16(p>>4) & 0x0f }
func (p PopulationCode) exponent() uint16 { return uint16(p) & 0x0f }
