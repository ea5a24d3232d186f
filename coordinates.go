package geolocation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Unit tokens accepted after each coordinate component. Longer spellings
// come first so "deg" is not read as "d" followed by garbage.
var (
	degreeTokens = []string{"°", "deg", "d"}
	minuteTokens = []string{"'", "’", "‘", "min", "m"}
	secondTokens = []string{`"`, "”", "“", "sec", "s"}
)

const (
	maxLatitude  = 90.0
	maxLongitude = 180.0
)

// coordinateGrammar is one accepted notation. The regexp captures the
// latitude groups followed by the same groups for longitude; each half
// starts with the sign and ends with the hemisphere letter.
type coordinateGrammar struct {
	name  string
	re    func() *regexp.Regexp
	angle func(sign string, parts []string, dir string, limit float64) (float64, error)
}

// coordinateGrammars are tried in order; the first full match wins.
var coordinateGrammars = []coordinateGrammar{
	{name: "decimal degrees", re: ddRegex, angle: ddAngle},
	{name: "degrees, minutes", re: dmRegex, angle: dmAngle},
	{name: "degrees, minutes, seconds", re: dmsRegex, angle: dmsAngle},
}

func tokenAlt(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

const (
	decimalPattern = `(\d+(?:\.\d+)?)`
	integerPattern = `(\d+)`
)

var ddRegex = sync.OnceValue(func() *regexp.Regexp {
	part := `(-?)` + decimalPattern + `\s*` + tokenAlt(degreeTokens) + `?`
	return regexp.MustCompile(`^\s*` + part + `\s*([NS]?)(?:\s*,\s*|\s+)` + part + `\s*([EW]?)\s*$`)
})

var dmRegex = sync.OnceValue(func() *regexp.Regexp {
	part := `(-?)` + integerPattern + `\s*` + tokenAlt(degreeTokens) +
		`\s*` + decimalPattern + `\s*` + tokenAlt(minuteTokens)
	return regexp.MustCompile(`^\s*` + part + `\s*([NS])[\s,]*` + part + `\s*([EW])\s*$`)
})

var dmsRegex = sync.OnceValue(func() *regexp.Regexp {
	part := `(-?)` + integerPattern + `\s*` + tokenAlt(degreeTokens) +
		`\s*` + integerPattern + `\s*` + tokenAlt(minuteTokens) +
		`\s*` + decimalPattern + `\s*` + tokenAlt(secondTokens)
	return regexp.MustCompile(`^\s*` + part + `\s*([NS])[\s,]*` + part + `\s*([EW])\s*$`)
})

// ParseCoordinates converts a position written in decimal degrees,
// degrees and minutes, or degrees, minutes and seconds into signed decimal
// degrees. All of these describe Point Nemo:
//
//	48°52'36.0"S, 123°23'36.0"W
//	48d 52.6m S, 123d 23.6m W
//	48.88° S, 123.39° W
//	-48.88, -123.39
func ParseCoordinates(text string) (lat, lon float64, err error) {
	for _, g := range coordinateGrammars {
		m := g.re().FindStringSubmatch(text)
		if m == nil {
			continue
		}
		groups := m[1:]
		half := len(groups) / 2
		latG, lonG := groups[:half], groups[half:]

		lat, err = g.angle(latG[0], latG[1:half-1], latG[half-1], maxLatitude)
		if err != nil {
			return 0, 0, &ParseError{Field: "position", Input: text, Msg: "latitude: " + err.Error(), cause: err}
		}
		lon, err = g.angle(lonG[0], lonG[1:half-1], lonG[half-1], maxLongitude)
		if err != nil {
			return 0, 0, &ParseError{Field: "position", Input: text, Msg: "longitude: " + err.Error(), cause: err}
		}
		return lat, lon, nil
	}
	return 0, 0, &ParseError{
		Field: "position",
		Input: text,
		Msg:   `expected "<deg>°<min>'<sec>"<N|S>, <deg>°<min>'<sec>"<E|W>"`,
	}
}

func ddAngle(sign string, parts []string, dir string, limit float64) (float64, error) {
	dd, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("degrees not a valid decimal number: %w", err)
	}
	return signedAngle(sign, dd, dir, limit)
}

func dmAngle(sign string, parts []string, dir string, limit float64) (float64, error) {
	deg, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("degrees not a valid integer: %w", err)
	}
	mins, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("minutes not a valid decimal number: %w", err)
	}
	if mins < 0 || mins >= 60 {
		return 0, fmt.Errorf("minutes must be between 0 inclusive and 60 exclusive")
	}
	return signedAngle(sign, float64(deg)+mins/60, dir, limit)
}

func dmsAngle(sign string, parts []string, dir string, limit float64) (float64, error) {
	deg, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("degrees not a valid integer: %w", err)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("minutes not a valid integer: %w", err)
	}
	if mins < 0 || mins >= 60 {
		return 0, fmt.Errorf("minutes must be between 0 inclusive and 60 exclusive")
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("seconds not a valid decimal number: %w", err)
	}
	if sec < 0 || sec >= 60 {
		return 0, fmt.Errorf("seconds must be between 0 inclusive and 60 exclusive")
	}
	return signedAngle(sign, float64(deg)+(float64(mins)+sec/60)/60, dir, limit)
}

// signedAngle applies the sign and hemisphere to a magnitude. A minus sign
// together with S or W is rejected as a probable double negation.
func signedAngle(sign string, dd float64, dir string, limit float64) (float64, error) {
	southWest := dir == "S" || dir == "W"
	if sign == "-" {
		if southWest {
			return 0, fmt.Errorf("a negative angle south or west is likely a mistake so it is disallowed")
		}
		dd = -dd
	} else if southWest {
		dd = -dd
	}
	if dd > limit {
		return 0, fmt.Errorf("angle cannot be greater than %.1f", limit)
	}
	if dd < -limit {
		return 0, fmt.Errorf("angle cannot be less than -%.1f", limit)
	}
	return dd, nil
}

// FormatCoordinates renders a position as degrees, minutes and seconds with
// two decimal places, e.g. 48°52'36.00"S, 123°23'36.00"W.
func FormatCoordinates(lat, lon float64) string {
	return formatDMS(lat, 'N', 'S') + ", " + formatDMS(lon, 'E', 'W')
}

func formatDMS(dd float64, pos, neg rune) string {
	hemi := pos
	if dd < 0 {
		hemi = neg
	}
	// hundredths of an arcsecond, so rounding carries into minutes and degrees
	cs := int64(math.Round(math.Abs(dd) * 360000))
	deg := cs / 360000
	cs -= deg * 360000
	mins := cs / 6000
	cs -= mins * 6000
	return fmt.Sprintf("%d°%d'%d.%02d\"%c", deg, mins, cs/100, cs%100, hemi)
}
