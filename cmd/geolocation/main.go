// Command geolocation inspects and edits Geolocation city databases.
//
// Usage:
//
//	geolocation [-out path] [-overwrite] [-v] <database> <command> [args]
//
// Commands:
//
//	info                                  print section sizes
//	list <cities|subregions|regions|countries|timezones|features>
//	find <city|subregion|region|country> <query> [-max n]
//	add city <name> -position <pos> -subregion <query> [-region q] [-country q]
//	         [-timezone q] [-feature q] [-population 2.3e+5]
//	remove city <query>
//	near <position> [-k n]
//
// Queries are comma separated, most specific first, e.g. "Bristol, GB" or
// "Kingswood, South Gloucestershire, England, GB". Databases ending in .gz,
// .zst or .bz2 are decompressed transparently.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	geolocation "github.com/william-shere/exif-geolocation-util"
)

// errUsage marks errors that should be followed by the usage text.
var errUsage = errors.New("usage error")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		}
		os.Exit(1)
	}
}

const usage = `usage: geolocation [-out path] [-overwrite] [-v] <database> <command> [args]
commands: info | list <kind> | find <kind> <query> | add city <name> ... | remove city <query> | near <position>`

// cli carries the state shared by the subcommands.
type cli struct {
	db     *geolocation.Database
	out    io.Writer
	logger *slog.Logger
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("geolocation", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outFile := fs.String("out", "", "path of the database file to write")
	overwrite := fs.Bool("overwrite", false, "allow the source file to be overwritten")
	verbose := fs.Bool("v", false, "log debug information")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("%w: database path and command required", errUsage)
	}
	inFile, command, rest := fs.Arg(0), fs.Arg(1), fs.Args()[2:]

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	db, err := geolocation.OpenDatabase(inFile, geolocation.WithLogger(logger))
	if err != nil {
		return err
	}
	c := &cli{db: db, out: stdout, logger: logger}

	var modified bool
	switch command {
	case "info":
		err = c.info()
	case "list":
		err = c.list(rest)
	case "find":
		err = c.find(rest)
	case "near":
		err = c.near(rest)
	case "add":
		modified = true
		err = c.add(rest)
	case "remove":
		modified = true
		err = c.remove(rest)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if err != nil || !modified {
		return err
	}

	target := *outFile
	if *overwrite {
		target = inFile
	}
	if target == "" {
		return errors.New(`no output file given and overwrite flag not set: use "-out <path>" to write a new file or "-overwrite" to replace the source`)
	}
	if err := geolocation.SaveDatabase(db, target); err != nil {
		return err
	}
	logger.Debug("database written", "path", target, "cities", len(db.Cities))
	return nil
}

// parseInterleaved parses flags that may appear before, between or after
// positional arguments, returning the positionals in order.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func (c *cli) info() error {
	printInfo(c.out, c.db.Info())
	return nil
}

func (c *cli) list(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: list needs one of cities, subregions, regions, countries, timezones, features", errUsage)
	}
	switch args[0] {
	case "cities":
		for i := range c.db.Cities {
			fmt.Fprintln(c.out, c.db.Cities[i].Name)
		}
	case "subregions":
		printLines(c.out, c.db.Subregions)
	case "regions":
		printLines(c.out, c.db.Regions)
	case "countries":
		for ix := range c.db.Countries {
			fmt.Fprintf(c.out, "%s (%s)\n", c.db.CountryName(ix), c.db.CountryCode(ix))
		}
	case "timezones":
		printLines(c.out, c.db.Timezones)
	case "features":
		printLines(c.out, c.db.Features)
	default:
		return fmt.Errorf("%w: cannot list %q", errUsage, args[0])
	}
	return nil
}

func (c *cli) find(args []string) error {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	maxDisplayed := fs.Int("max", 4, "maximum number of entries to print")
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return fmt.Errorf("%w: find needs an entry type and a query", errUsage)
	}
	kind, query := pos[0], pos[1]

	var (
		matches []int
		show    func(int)
	)
	switch kind {
	case "city":
		matches, err = c.db.FindCities(query)
		show = func(ix int) { printCity(c.out, c.db, ix) }
	case "subregion":
		matches, err = c.db.FindSubregions(query)
		show = func(ix int) { printSubregion(c.out, c.db, ix) }
	case "region":
		matches, err = c.db.FindRegions(query)
		show = func(ix int) { printRegion(c.out, c.db, ix) }
	case "country":
		matches = c.db.FindCountries(query)
		show = func(ix int) { printCountry(c.out, c.db, ix) }
	default:
		return fmt.Errorf("%w: cannot find %q", errUsage, kind)
	}
	if err != nil {
		return err
	}
	printEntries(c.out, matches, show, *maxDisplayed)
	return nil
}

func (c *cli) near(args []string) error {
	fs := flag.NewFlagSet("near", flag.ContinueOnError)
	k := fs.Int("k", 5, "number of cities to print")
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: near needs a position", errUsage)
	}
	lat, lon, err := geolocation.ParseCoordinates(pos[0])
	if err != nil {
		return err
	}
	for _, n := range c.db.Nearest(lat, lon, *k) {
		fmt.Fprintf(c.out, "%8.1f km  %s\n", n.Kilometers(), cityLine(c.db, n.Index))
	}
	return nil
}

func (c *cli) add(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	position := fs.String("position", "", "position of the new city, e.g. 48°52'36.0\"S, 123°23'36.0\"W")
	subregion := fs.String("subregion", "", `subregion containing the city, optionally "<subregion>, <region>, <country>"`)
	region := fs.String("region", "", "region containing the city (default: from the subregion)")
	country := fs.String("country", "", "country containing the city (default: from the subregion)")
	timezone := fs.String("timezone", "", "timezone of the city (default: from the first city in the subregion)")
	feature := fs.String("feature", "Other", "feature type of the city")
	population := fs.String("population", "0.0e+0", "population in standard form")
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 || pos[0] != "city" {
		return fmt.Errorf("%w: only \"add city <name>\" is supported", errUsage)
	}
	if *position == "" || *subregion == "" {
		return fmt.Errorf("%w: -position and -subregion are required", errUsage)
	}

	city, err := c.newCity(pos[1], *position, *subregion, *region, *country, *timezone, *feature, *population)
	if err != nil {
		return err
	}
	ix, err := c.db.AddCity(city)
	if err != nil {
		return err
	}
	printNewCity(c.out, c.db, ix)
	return nil
}

func (c *cli) newCity(name, position, subregion, region, country, timezone, feature, population string) (geolocation.CityEntry, error) {
	city := geolocation.CityEntry{Name: name}

	var err error
	if city.Latitude, city.Longitude, err = geolocation.ParseCoordinates(position); err != nil {
		return city, err
	}
	if city.SubregionIx, err = c.db.ResolveSubregion(subregion); err != nil {
		return city, explain(err, `try "<sub-region>, <country>" or "<sub-region>, <region>, <country>"`)
	}
	if city.RegionIx, city.CountryIx, city.TimezoneIx, err = c.db.SubregionParents(city.SubregionIx); err != nil {
		if region == "" || country == "" || timezone == "" {
			return city, fmt.Errorf("%w; give -region, -country and -timezone explicitly", err)
		}
	}
	if region != "" {
		if city.RegionIx, err = c.db.ResolveRegion(region); err != nil {
			return city, explain(err, `try "<region>, <country>"`)
		}
	}
	if country != "" {
		if city.CountryIx, err = c.db.ResolveCountry(country); err != nil {
			return city, explain(err, `try prefixing the name with the two letter code, e.g. "GBUnited Kingdom"`)
		}
	}
	if timezone != "" {
		if city.TimezoneIx, err = c.db.ResolveTimezone(timezone); err != nil {
			return city, explain(err, `try the full timezone name, e.g. "Europe/London"`)
		}
	}
	if city.FeatureIx, err = c.db.ResolveFeature(feature); err != nil {
		return city, explain(err, "try the full feature name")
	}
	if city.Population, err = geolocation.ParsePopulation(population); err != nil {
		return city, err
	}
	return city, nil
}

func (c *cli) remove(args []string) error {
	if len(args) != 2 || args[0] != "city" {
		return fmt.Errorf("%w: only \"remove city <query>\" is supported", errUsage)
	}
	ix, err := c.db.ResolveCity(args[1])
	if err != nil {
		return explain(err, "provide more of the city's hierarchy")
	}
	name := c.db.Cities[ix].Name
	if err := c.db.RemoveCity(ix); err != nil {
		return err
	}
	c.logger.Debug("city removed", "name", name, "index", ix)
	return nil
}

// explain adds a hint to ambiguous lookups.
func explain(err error, hint string) error {
	var amb *geolocation.AmbiguityError
	if errors.As(err, &amb) && len(amb.Candidates) > 1 {
		return fmt.Errorf("%w, %s", err, hint)
	}
	return err
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
