package geolocation

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Query strings are comma separated, most specific part first:
//
//	"Bristol"
//	"Bristol, GB"
//	"Kingswood, England, United Kingdom"
//	"Kingswood, South Gloucestershire, England, GB"
//
// The first part must equal the entry's own name. Every later part only has
// to be contained in the matching ancestor; countries are compared on their
// code and name together. Parts are trimmed only when there is more than one.

const (
	maxCitySegments      = 4
	maxSubregionSegments = 3
	maxRegionSegments    = 2
)

// Suggestion limits for queries that match nothing.
const (
	maxSuggestions     = 3
	maxSuggestDistance = 2
	maxSuggestInputLen = 256
)

func splitQuery(kind, query string, maxSegments int) ([]string, error) {
	parts := strings.Split(query, ",")
	if len(parts) > maxSegments {
		return nil, &QueryError{Kind: kind, Query: query, Segments: len(parts), Max: maxSegments}
	}
	// a bare name is compared as given
	if len(parts) == 1 {
		return parts, nil
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// ancestors assigns the qualifiers after the name to subregion, region and
// country, filling from the country end.
func ancestors(parts []string) (subregion, region, country string) {
	quals := parts[1:]
	slots := []*string{&subregion, &region, &country}
	offset := len(slots) - len(quals)
	for i, q := range quals {
		*slots[offset+i] = q
	}
	return subregion, region, country
}

// FindCities returns the indices of the cities matching query, which has
// up to four parts: name, subregion, region, country.
func (db *Database) FindCities(query string) ([]int, error) {
	parts, err := splitQuery("city", query, maxCitySegments)
	if err != nil {
		return nil, err
	}
	name := parts[0]
	subregion, region, country := ancestors(parts)

	var matches []int
	for i := range db.Cities {
		c := &db.Cities[i]
		if c.Name != name {
			continue
		}
		if strings.Contains(entryAt(db.Countries, c.CountryIx), country) &&
			strings.Contains(entryAt(db.Regions, c.RegionIx), region) &&
			strings.Contains(entryAt(db.Subregions, c.SubregionIx), subregion) {
			matches = append(matches, i)
		}
	}
	return matches, nil
}

// FindSubregions returns the indices of the subregions matching query, which
// has up to three parts: name, region, country. A subregion without cities
// has no known region or country and only matches a bare name.
func (db *Database) FindSubregions(query string) ([]int, error) {
	parts, err := splitQuery("subregion", query, maxSubregionSegments)
	if err != nil {
		return nil, err
	}
	name := parts[0]
	_, region, country := ancestors(parts)

	var matches []int
	for ix, sub := range db.Subregions {
		if sub != name {
			continue
		}
		if len(parts) == 1 {
			matches = append(matches, ix)
			continue
		}
		regionIx, countryIx, _, err := db.SubregionParents(ix)
		if err != nil {
			continue
		}
		if strings.Contains(entryAt(db.Countries, countryIx), country) &&
			strings.Contains(entryAt(db.Regions, regionIx), region) {
			matches = append(matches, ix)
		}
	}
	return matches, nil
}

// FindRegions returns the indices of the regions matching query, which has
// up to two parts: name, country.
func (db *Database) FindRegions(query string) ([]int, error) {
	parts, err := splitQuery("region", query, maxRegionSegments)
	if err != nil {
		return nil, err
	}
	name := parts[0]
	_, _, country := ancestors(parts)

	var matches []int
	for ix, reg := range db.Regions {
		if reg != name {
			continue
		}
		if len(parts) == 1 {
			matches = append(matches, ix)
			continue
		}
		countryIx, err := db.RegionParent(ix)
		if err != nil {
			continue
		}
		if strings.Contains(entryAt(db.Countries, countryIx), country) {
			matches = append(matches, ix)
		}
	}
	return matches, nil
}

// FindCountries returns the countries whose code and name contain query,
// so "GB", "United Kingdom" and "GBUnited" all find the United Kingdom.
func (db *Database) FindCountries(query string) []int {
	return filterTable(db.Countries, func(entry string) bool {
		return strings.Contains(entry, query)
	})
}

// FindTimezones returns the timezones that start with query.
func (db *Database) FindTimezones(query string) []int {
	return filterTable(db.Timezones, func(entry string) bool {
		return strings.HasPrefix(entry, query)
	})
}

// FindFeatures returns the features whose description contains query.
func (db *Database) FindFeatures(query string) []int {
	return filterTable(db.Features, func(entry string) bool {
		return strings.Contains(entry, query)
	})
}

func filterTable(table []string, match func(string) bool) []int {
	var matches []int
	for ix, entry := range table {
		if match(entry) {
			matches = append(matches, ix)
		}
	}
	return matches
}

// ResolveCity returns the single city matching query. When there is not
// exactly one match the error is an *AmbiguityError.
func (db *Database) ResolveCity(query string) (int, error) {
	matches, err := db.FindCities(query)
	if err != nil {
		return -1, err
	}
	return resolve("city", query, matches, func() []string {
		names := make([]string, len(db.Cities))
		for i := range db.Cities {
			names[i] = db.Cities[i].Name
		}
		return names
	})
}

// ResolveSubregion returns the single subregion matching query.
func (db *Database) ResolveSubregion(query string) (int, error) {
	matches, err := db.FindSubregions(query)
	if err != nil {
		return -1, err
	}
	return resolve("subregion", query, matches, func() []string { return db.Subregions })
}

// ResolveRegion returns the single region matching query.
func (db *Database) ResolveRegion(query string) (int, error) {
	matches, err := db.FindRegions(query)
	if err != nil {
		return -1, err
	}
	return resolve("region", query, matches, func() []string { return db.Regions })
}

// ResolveCountry returns the single country matching query.
func (db *Database) ResolveCountry(query string) (int, error) {
	return resolve("country", query, db.FindCountries(query), func() []string {
		names := make([]string, len(db.Countries))
		for i := range db.Countries {
			names[i] = db.CountryName(i)
		}
		return names
	})
}

// ResolveTimezone returns the single timezone starting with query.
func (db *Database) ResolveTimezone(query string) (int, error) {
	return resolve("timezone", query, db.FindTimezones(query), func() []string { return db.Timezones })
}

// ResolveFeature returns the single feature containing query.
func (db *Database) ResolveFeature(query string) (int, error) {
	return resolve("feature", query, db.FindFeatures(query), func() []string { return db.Features })
}

func resolve(kind, query string, matches []int, names func() []string) (int, error) {
	if len(matches) == 1 {
		return matches[0], nil
	}
	err := &AmbiguityError{Kind: kind, Query: query, Candidates: matches}
	if len(matches) == 0 {
		name, _, _ := strings.Cut(query, ",")
		err.Suggestions = suggest(strings.TrimSpace(name), names())
	}
	return -1, err
}

// suggest returns up to maxSuggestions distinct names within a small edit
// distance of name, closest first.
func suggest(name string, names []string) []string {
	if name == "" {
		return nil
	}
	if runes := []rune(name); len(runes) > maxSuggestInputLen {
		name = string(runes[:maxSuggestInputLen])
	}
	lower := strings.ToLower(name)

	type scored struct {
		name string
		dist int
	}
	seen := make(map[string]bool)
	var found []scored
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		d := levenshtein.ComputeDistance(lower, strings.ToLower(n))
		if d <= maxSuggestDistance {
			found = append(found, scored{n, d})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].name < found[j].name
	})

	var out []string
	for i := 0; i < len(found) && i < maxSuggestions; i++ {
		out = append(out, found[i].name)
	}
	return out
}
