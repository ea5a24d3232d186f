package geolocation

import (
	"fmt"
)

// AddCity validates c against the reference tables and the record field
// widths, then appends it. It returns the index of the new city.
func (db *Database) AddCity(c CityEntry) (int, error) {
	if err := db.checkRefs(-1, &c); err != nil {
		return -1, err
	}
	if err := checkCity(&c); err != nil {
		return -1, err
	}
	db.Cities = append(db.Cities, c)
	db.invalidateSpatial()
	return len(db.Cities) - 1, nil
}

// RemoveCity removes the city at ix. Later cities shift down by one.
func (db *Database) RemoveCity(ix int) error {
	if ix < 0 || ix >= len(db.Cities) {
		return &IndexError{Table: "city", Index: ix, Len: len(db.Cities), City: -1}
	}
	db.Cities = append(db.Cities[:ix], db.Cities[ix+1:]...)
	db.invalidateSpatial()
	return nil
}

// Validate checks that every city refers to existing table entries.
func (db *Database) Validate() error {
	for i := range db.Cities {
		if err := db.checkRefs(i, &db.Cities[i]); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) checkRefs(cityIx int, c *CityEntry) error {
	refs := []struct {
		kind TableKind
		ix   int
	}{
		{Countries, c.CountryIx},
		{Regions, c.RegionIx},
		{Subregions, c.SubregionIx},
		{Timezones, c.TimezoneIx},
		{Features, c.FeatureIx},
	}
	for _, ref := range refs {
		if n := len(db.Table(ref.kind)); ref.ix < 0 || ref.ix >= n {
			return &IndexError{Table: ref.kind.String(), Index: ref.ix, Len: n, City: cityIx}
		}
	}
	return nil
}

func (db *Database) checkTableIx(kind TableKind, ix int) error {
	if n := len(db.Table(kind)); ix < 0 || ix >= n {
		return &IndexError{Table: kind.String(), Index: ix, Len: n, City: -1}
	}
	return nil
}

// SubregionParents returns the region, country and a sample timezone of a
// subregion, taken from the first city in it.
func (db *Database) SubregionParents(subregionIx int) (regionIx, countryIx, timezoneIx int, err error) {
	if err := db.checkTableIx(Subregions, subregionIx); err != nil {
		return 0, 0, 0, err
	}
	for i := range db.Cities {
		if c := &db.Cities[i]; c.SubregionIx == subregionIx {
			return c.RegionIx, c.CountryIx, c.TimezoneIx, nil
		}
	}
	return 0, 0, 0, fmt.Errorf("subregion %q has no cities: %w", db.Subregions[subregionIx], ErrNotFound)
}

// RegionParent returns the country of a region, taken from the first city in it.
func (db *Database) RegionParent(regionIx int) (countryIx int, err error) {
	if err := db.checkTableIx(Regions, regionIx); err != nil {
		return 0, err
	}
	for i := range db.Cities {
		if c := &db.Cities[i]; c.RegionIx == regionIx {
			return c.CountryIx, nil
		}
	}
	return 0, fmt.Errorf("region %q has no cities: %w", db.Regions[regionIx], ErrNotFound)
}

// CountryCode returns the two-letter code of a country entry.
func (db *Database) CountryCode(ix int) string {
	entry := entryAt(db.Countries, ix)
	if len(entry) < 2 {
		return entry
	}
	return entry[:2]
}

// CountryName returns a country entry without its two-letter code.
func (db *Database) CountryName(ix int) string {
	entry := entryAt(db.Countries, ix)
	if len(entry) < 2 {
		return ""
	}
	return entry[2:]
}

// RegionName returns the name of a region, or "" if ix is out of range.
func (db *Database) RegionName(ix int) string { return entryAt(db.Regions, ix) }

// SubregionName returns the name of a subregion, or "" if ix is out of range.
func (db *Database) SubregionName(ix int) string { return entryAt(db.Subregions, ix) }

// TimezoneName returns the name of a timezone, or "" if ix is out of range.
func (db *Database) TimezoneName(ix int) string { return entryAt(db.Timezones, ix) }

// FeatureName returns the description of a feature, or "" if ix is out of range.
func (db *Database) FeatureName(ix int) string { return entryAt(db.Features, ix) }

func entryAt(table []string, ix int) string {
	if ix < 0 || ix >= len(table) {
		return ""
	}
	return table[ix]
}

// Info holds the sizes of every part of a database.
type Info struct {
	Comment    string
	Cities     int
	Countries  int
	Regions    int
	Subregions int
	Timezones  int
	Features   int
}

// Info returns the number of entries in each section.
func (db *Database) Info() Info {
	return Info{
		Comment:    db.Comment,
		Cities:     len(db.Cities),
		Countries:  len(db.Countries),
		Regions:    len(db.Regions),
		Subregions: len(db.Subregions),
		Timezones:  len(db.Timezones),
		Features:   len(db.Features),
	}
}

// Summary aggregates the cities below one table entry.
type Summary struct {
	Cities     int
	Regions    int // distinct regions; only filled for countries
	Subregions int // distinct subregions; filled for regions and countries
	Timezones  int // distinct timezones
}

// SubregionSummary counts the cities and timezones of a subregion.
func (db *Database) SubregionSummary(ix int) (Summary, error) {
	if err := db.checkTableIx(Subregions, ix); err != nil {
		return Summary{}, err
	}
	return db.summarize(func(c *CityEntry) bool { return c.SubregionIx == ix }, false, false), nil
}

// RegionSummary counts the cities, subregions and timezones of a region.
func (db *Database) RegionSummary(ix int) (Summary, error) {
	if err := db.checkTableIx(Regions, ix); err != nil {
		return Summary{}, err
	}
	return db.summarize(func(c *CityEntry) bool { return c.RegionIx == ix }, false, true), nil
}

// CountrySummary counts the cities, regions, subregions and timezones of a country.
func (db *Database) CountrySummary(ix int) (Summary, error) {
	if err := db.checkTableIx(Countries, ix); err != nil {
		return Summary{}, err
	}
	return db.summarize(func(c *CityEntry) bool { return c.CountryIx == ix }, true, true), nil
}

func (db *Database) summarize(match func(*CityEntry) bool, regions, subregions bool) Summary {
	var s Summary
	regionSet := make(map[int]struct{})
	subregionSet := make(map[int]struct{})
	timezoneSet := make(map[int]struct{})
	for i := range db.Cities {
		c := &db.Cities[i]
		if !match(c) {
			continue
		}
		s.Cities++
		regionSet[c.RegionIx] = struct{}{}
		subregionSet[c.SubregionIx] = struct{}{}
		timezoneSet[c.TimezoneIx] = struct{}{}
	}
	if regions {
		s.Regions = len(regionSet)
	}
	if subregions {
		s.Subregions = len(subregionSet)
	}
	s.Timezones = len(timezoneSet)
	return s
}
