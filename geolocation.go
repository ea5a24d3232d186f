// Package geolocation reads, queries and rewrites "Geolocation" city databases.
//
// A database file is a hybrid of packed binary city records and plain-text
// reference tables:
//
//	+--------------------------------+
//	| "Geolocation1.03 <n>\n"        |  header
//	| "<comment>\n"                  |  free text
//	+--------------------------------+
//	| 13-byte record | name "\n"     |  one per city
//	| ...                            |
//	| 00 00 00 00 01 0A              |  end of cities
//	+--------------------------------+
//	| "<CC><country name>\n" ...     |  countries
//	| 00 00 00 00 02 0A              |
//	| "<region>\n" ...               |  regions
//	| 00 00 00 00 03 0A              |
//	| "<subregion>\n" ...            |  subregions
//	| 00 00 00 00 04 0A              |
//	| "<timezone>\n" ...             |  timezones
//	| 00 00 00 00 05 0A              |
//	| "<feature>\n" ...              |  features
//	| 00 00 00 00 00 0A              |
//	+--------------------------------+
//
// The whole file is loaded into a Database before any query runs. Cities
// refer to table entries by position, and the region/country of a subregion
// is derived from the first city that names it.
package geolocation

import (
	"log/slog"
	"sync"

	"github.com/golang/geo/s2"
)

// FormatVersion is the only database layout version this package reads and writes.
const FormatVersion = "1.03"

// CityEntry is a single city record.
type CityEntry struct {
	Name       string
	Latitude   float64        // degrees, [-90, 90]
	Longitude  float64        // degrees, [-180, 180]
	Population PopulationCode // packed pseudo-scientific population

	CountryIx   int // index into Database.Countries
	RegionIx    int // index into Database.Regions
	SubregionIx int // index into Database.Subregions
	TimezoneIx  int // index into Database.Timezones
	FeatureIx   int // index into Database.Features
}

// TableKind names one of the reference tables of a Database.
type TableKind int

const (
	Countries TableKind = iota
	Regions
	Subregions
	Timezones
	Features
)

func (k TableKind) String() string {
	switch k {
	case Countries:
		return "country"
	case Regions:
		return "region"
	case Subregions:
		return "subregion"
	case Timezones:
		return "timezone"
	case Features:
		return "feature"
	}
	return "unknown"
}

// Database is an in-memory geolocation database.
//
// A Database is owned by a single goroutine for mutation. Read-only queries,
// including Nearest, may run concurrently once loading has finished.
type Database struct {
	Comment    string
	Cities     []CityEntry
	Countries  []string // two-letter code followed by the country name
	Regions    []string
	Subregions []string
	Timezones  []string
	Features   []string

	spatialMu sync.Mutex
	cellIndex map[s2.CellID][]int // nil until first spatial query
}

// Table returns the reference table of the given kind.
func (db *Database) Table(kind TableKind) []string {
	switch kind {
	case Countries:
		return db.Countries
	case Regions:
		return db.Regions
	case Subregions:
		return db.Subregions
	case Timezones:
		return db.Timezones
	case Features:
		return db.Features
	}
	return nil
}

// config holds the options used when loading a database.
type config struct {
	logger   *slog.Logger
	validate bool
}

// Option is a functional option for ReadDatabase and OpenDatabase.
type Option func(*config)

// WithLogger sets the logger used for load warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithValidation controls whether city indices are checked against the
// reference tables after loading. Enabled by default.
func WithValidation(enabled bool) Option {
	return func(c *config) {
		c.validate = enabled
	}
}

func defaultConfig() *config {
	return &config{
		logger:   slog.Default(),
		validate: true,
	}
}

func newConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
