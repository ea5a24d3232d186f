package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	geolocation "github.com/william-shere/exif-geolocation-util"
)

const separator = "-----------------------"

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func printInfo(w io.Writer, info geolocation.Info) {
	fmt.Fprintf(w, "Comment: %s\n", info.Comment)
	fmt.Fprintf(w, "%d cities\n", info.Cities)
	fmt.Fprintf(w, "%d countries\n", info.Countries)
	fmt.Fprintf(w, "%d regions\n", info.Regions)
	fmt.Fprintf(w, "%d subregions\n", info.Subregions)
	fmt.Fprintf(w, "%d timezones\n", info.Timezones)
	fmt.Fprintf(w, "%d features\n", info.Features)
}

// printEntries prints up to limit entries between separators.
func printEntries(w io.Writer, matches []int, show func(int), limit int) {
	fmt.Fprintln(w, separator)
	for i, ix := range matches {
		if i == limit {
			break
		}
		show(ix)
		fmt.Fprintln(w, separator)
	}
	switch {
	case len(matches) == 0:
		fmt.Fprintln(w, "No results")
		fmt.Fprintln(w, separator)
	case len(matches) > limit:
		fmt.Fprintf(w, "     and %d more\n", len(matches)-limit)
		fmt.Fprintln(w, separator)
	}
}

func cityLine(db *geolocation.Database, ix int) string {
	c := &db.Cities[ix]
	return fmt.Sprintf("%s, %s, %s, %s", c.Name, db.SubregionName(c.SubregionIx), db.RegionName(c.RegionIx), db.CountryName(c.CountryIx))
}

func printCity(w io.Writer, db *geolocation.Database, ix int) {
	c := &db.Cities[ix]
	fmt.Fprintln(w, cityLine(db, ix))
	fmt.Fprintf(w, "%s (geohash %s)\n", geolocation.FormatCoordinates(c.Latitude, c.Longitude), c.Geohash())
	fmt.Fprintf(w, "Timezone: %s, Population: %s (~%s)\n", db.TimezoneName(c.TimezoneIx), c.Population, humanize.Comma(c.Population.Approx()))
	fmt.Fprintln(w, db.FeatureName(c.FeatureIx))
}

func printSubregion(w io.Writer, db *geolocation.Database, ix int) {
	regionIx, countryIx, _, err := db.SubregionParents(ix)
	if err != nil {
		fmt.Fprintf(w, "%s (no cities)\n", db.SubregionName(ix))
		return
	}
	s, _ := db.SubregionSummary(ix)
	fmt.Fprintf(w, "%s, %s, %s\n", db.SubregionName(ix), db.RegionName(regionIx), db.CountryName(countryIx))
	fmt.Fprintf(w, "Containing %d %s\n", s.Cities, plural(s.Cities, "city", "cities"))
	fmt.Fprintf(w, "Covers %d %s\n", s.Timezones, plural(s.Timezones, "timezone", "timezones"))
}

func printRegion(w io.Writer, db *geolocation.Database, ix int) {
	countryIx, err := db.RegionParent(ix)
	if err != nil {
		fmt.Fprintf(w, "%s (no cities)\n", db.RegionName(ix))
		return
	}
	s, _ := db.RegionSummary(ix)
	fmt.Fprintf(w, "%s, %s\n", db.RegionName(ix), db.CountryName(countryIx))
	fmt.Fprintf(w, "Containing %d %s\n", s.Cities, plural(s.Cities, "city", "cities"))
	fmt.Fprintf(w, "Containing %d %s\n", s.Subregions, plural(s.Subregions, "sub-region", "sub-regions"))
	fmt.Fprintf(w, "Covers %d %s\n", s.Timezones, plural(s.Timezones, "timezone", "timezones"))
}

func printCountry(w io.Writer, db *geolocation.Database, ix int) {
	s, _ := db.CountrySummary(ix)
	fmt.Fprintf(w, "%s (%s)\n", db.CountryName(ix), db.CountryCode(ix))
	fmt.Fprintf(w, "Containing %d %s\n", s.Cities, plural(s.Cities, "city", "cities"))
	fmt.Fprintf(w, "Containing %d %s\n", s.Subregions, plural(s.Subregions, "sub-region", "sub-regions"))
	fmt.Fprintf(w, "Containing %d %s\n", s.Regions, plural(s.Regions, "region", "regions"))
	fmt.Fprintf(w, "Covers %d %s\n", s.Timezones, plural(s.Timezones, "timezone", "timezones"))
}

func printNewCity(w io.Writer, db *geolocation.Database, ix int) {
	c := &db.Cities[ix]
	fmt.Fprintln(w, "----------------- New Entry ------------------")
	fmt.Fprintf(w, "        name: %s\n", c.Name)
	fmt.Fprintf(w, "    position: %.2f°, %.2f°\n", c.Latitude, c.Longitude)
	fmt.Fprintf(w, "   subregion: %s (%d)\n", db.SubregionName(c.SubregionIx), c.SubregionIx)
	fmt.Fprintf(w, "      region: %s (%d)\n", db.RegionName(c.RegionIx), c.RegionIx)
	fmt.Fprintf(w, "     country: %s (%d)\n", db.CountryName(c.CountryIx), c.CountryIx)
	fmt.Fprintf(w, "    timezone: %s (%d)\n", db.TimezoneName(c.TimezoneIx), c.TimezoneIx)
	fmt.Fprintf(w, "     feature: %s (%d)\n", db.FeatureName(c.FeatureIx), c.FeatureIx)
	fmt.Fprintf(w, "  population: %s (0x%X)\n", c.Population, uint16(c.Population))
	fmt.Fprintln(w, "----------------------------------------------")
}
