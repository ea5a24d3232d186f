package geolocation

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"sync"
)

// citiesSentinel ends the cities section. It is compared against the first
// six bytes of each record, so it includes the newline.
var citiesSentinel = []byte{0, 0, 0, 0, 1, '\n'}

// tableSection describes one newline-delimited text section.
type tableSection struct {
	kind     TableKind
	sentinel string // raw line content that ends the section
}

// tableSections lists the text sections in file order.
var tableSections = []tableSection{
	{Countries, "\x00\x00\x00\x00\x02"},
	{Regions, "\x00\x00\x00\x00\x03"},
	{Subregions, "\x00\x00\x00\x00\x04"},
	{Timezones, "\x00\x00\x00\x00\x05"},
	{Features, "\x00\x00\x00\x00\x00"},
}

var headerRegex = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^Geolocation(\d+\.\d+)\s+(\d+)$`)
})

// parseHeader returns the version and declared city count of a header line.
func parseHeader(line string) (version string, count int, err error) {
	m := headerRegex().FindStringSubmatch(line)
	if m == nil {
		return "", 0, &HeaderError{Line: line}
	}
	count, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, &HeaderError{Line: line}
	}
	return m[1], count, nil
}

// ReadDatabase loads a complete database from r. Any structural problem
// fails the whole load; no partial database is returned.
func ReadDatabase(r io.Reader, opts ...Option) (*Database, error) {
	cfg := newConfig(opts)
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	header, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	version, declared, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, &VersionError{Expected: FormatVersion, Found: version}
	}

	db := &Database{}
	if db.Comment, err = readLine(br); err != nil {
		return nil, fmt.Errorf("reading comment: %w", err)
	}

	if db.Cities, err = readCities(br); err != nil {
		return nil, err
	}
	if len(db.Cities) != declared {
		cfg.logger.Warn("header city count does not match records",
			"declared", declared,
			"decoded", len(db.Cities),
		)
	}

	for _, sec := range tableSections {
		entries, err := readTable(br, sec)
		if err != nil {
			return nil, err
		}
		db.setTable(sec.kind, entries)
	}

	if cfg.validate {
		if err := db.Validate(); err != nil {
			return nil, fmt.Errorf("validating database: %w", err)
		}
	}
	cfg.logger.Debug("database loaded",
		"cities", len(db.Cities),
		"countries", len(db.Countries),
		"regions", len(db.Regions),
		"subregions", len(db.Subregions),
		"timezones", len(db.Timezones),
		"features", len(db.Features),
	)
	return db, nil
}

func readCities(br *bufio.Reader) ([]CityEntry, error) {
	var (
		cities []CityEntry
		rec    [RecordSize]byte
	)
	for {
		head := rec[:len(citiesSentinel)]
		if _, err := io.ReadFull(br, head); err != nil {
			return nil, &RecordError{Index: len(cities), cause: eofIsUnexpected(err)}
		}
		if bytes.Equal(head, citiesSentinel) {
			return cities, nil
		}
		if _, err := io.ReadFull(br, rec[len(citiesSentinel):]); err != nil {
			return nil, &RecordError{Index: len(cities), cause: eofIsUnexpected(err)}
		}
		city, err := DecodeCity(rec, br)
		if err != nil {
			return nil, &RecordError{Index: len(cities), cause: err}
		}
		cities = append(cities, city)
	}
}

func readTable(br *bufio.Reader, sec tableSection) ([]string, error) {
	var entries []string
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("reading %s table entry %d: %w", sec.kind, len(entries), err)
		}
		if line == sec.sentinel {
			return entries, nil
		}
		entries = append(entries, line)
	}
}

func eofIsUnexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (db *Database) setTable(kind TableKind, entries []string) {
	switch kind {
	case Countries:
		db.Countries = entries
	case Regions:
		db.Regions = entries
	case Subregions:
		db.Subregions = entries
	case Timezones:
		db.Timezones = entries
	case Features:
		db.Features = entries
	}
}

// WriteTo serializes the database in the layout ReadDatabase expects.
// Nothing is written when the comment or a table entry cannot be framed
// as a single line.
func (db *Database) WriteTo(w io.Writer) (int64, error) {
	if err := db.checkText(); err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	fmt.Fprintf(bw, "Geolocation%s %d\n", FormatVersion, len(db.Cities))
	fmt.Fprintf(bw, "%s\n", db.Comment)

	var buf []byte
	for i := range db.Cities {
		var err error
		buf, err = AppendCity(buf[:0], &db.Cities[i])
		if err != nil {
			return cw.n, fmt.Errorf("encoding city %d: %w", i, err)
		}
		bw.Write(buf)
	}
	bw.Write(citiesSentinel)

	for _, sec := range tableSections {
		for _, entry := range db.Table(sec.kind) {
			fmt.Fprintf(bw, "%s\n", entry)
		}
		fmt.Fprintf(bw, "%s\n", sec.sentinel)
	}

	// bufio.Writer keeps the first write error and returns it from Flush.
	err := bw.Flush()
	return cw.n, err
}

// checkText validates the comment and every table entry.
func (db *Database) checkText() error {
	if err := checkLine("comment", db.Comment); err != nil {
		return err
	}
	for _, sec := range tableSections {
		for i, entry := range db.Table(sec.kind) {
			field := fmt.Sprintf("%s entry %d", sec.kind, i)
			if err := checkLine(field, entry); err != nil {
				return err
			}
			if entry == sec.sentinel {
				return &FieldRangeError{Field: field, Value: fmt.Sprintf("%q", entry)}
			}
		}
	}
	return nil
}

// WriteDatabase writes db to w.
func WriteDatabase(db *Database, w io.Writer) error {
	_, err := db.WriteTo(w)
	return err
}

// countingWriter counts the bytes accepted by the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
