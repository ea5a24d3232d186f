package geolocation

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// RecordSize is the length of the fixed part of a city record.
const RecordSize = 13

// Field limits of the packed record.
const (
	maxCountryIx   = 0xff
	maxRegionIx    = 0x0fff
	maxSubregionIx = 0xffff
	maxTimezoneIx  = 0x01ff
	maxFeatureIx   = 0x3f

	coordBits  = 20
	coordScale = 1 << coordBits
	maxCoord   = coordScale - 1
)

// Record layout (big-endian):
//
//	+---------+---------+---------+-----------------------------+---------+-----+---------+
//	| lat>>4  | lat&0xf | lon>>4  | country<<24 | pop<<12 | reg | subreg  | tz  | tz8|feat|
//	| 2 bytes | lon&0xf | 2 bytes |           4 bytes           | 2 bytes | 1 b |   1 b   |
//	+---------+---------+---------+-----------------------------+---------+-----+---------+
//
// followed by the name and a newline. Bit 6 of the last byte is unused.

// PackCity packs the numeric fields of c into a fixed record. Every field is
// range checked; nothing is truncated silently.
func PackCity(c *CityEntry) ([RecordSize]byte, error) {
	var rec [RecordSize]byte
	if err := checkCity(c); err != nil {
		return rec, err
	}

	lat := quantize((c.Latitude + 90) / 180)
	lon := quantize((c.Longitude + 180) / 360)
	code := uint32(c.CountryIx)<<24 | uint32(c.Population)<<12 | uint32(c.RegionIx)

	binary.BigEndian.PutUint16(rec[0:2], uint16(lat>>4))
	rec[2] = byte((lat&0x0f)<<4 | lon&0x0f)
	binary.BigEndian.PutUint16(rec[3:5], uint16(lon>>4))
	binary.BigEndian.PutUint32(rec[5:9], code)
	binary.BigEndian.PutUint16(rec[9:11], uint16(c.SubregionIx))
	rec[11] = byte(c.TimezoneIx & 0xff)
	rec[12] = byte((c.TimezoneIx&0x100)>>1) | byte(c.FeatureIx)

	if bytes.Equal(rec[:len(citiesSentinel)], citiesSentinel) {
		return rec, fmt.Errorf("city %q: %w", c.Name, ErrSentinelCollision)
	}
	return rec, nil
}

// UnpackCity is the inverse of PackCity.
func UnpackCity(rec [RecordSize]byte, name string) CityEntry {
	lt := uint32(binary.BigEndian.Uint16(rec[0:2]))
	f := uint32(rec[2])
	ln := uint32(binary.BigEndian.Uint16(rec[3:5]))
	code := binary.BigEndian.Uint32(rec[5:9])
	sn := binary.BigEndian.Uint16(rec[9:11])

	lat := lt<<4 | f>>4
	lon := ln<<4 | f&0x0f

	tz := int(rec[11])
	if rec[12]&0x80 != 0 {
		tz += 0x100
	}

	return CityEntry{
		Name:        name,
		Latitude:    180*(float64(lat)/coordScale) - 90,
		Longitude:   360*(float64(lon)/coordScale) - 180,
		Population:  PopulationCode(code >> 12 & 0x0fff),
		CountryIx:   int(code >> 24),
		RegionIx:    int(code & 0x0fff),
		SubregionIx: int(sn),
		TimezoneIx:  tz,
		FeatureIx:   int(rec[12] & 0x3f),
	}
}

// AppendCity appends the encoded record and name line of c to dst.
func AppendCity(dst []byte, c *CityEntry) ([]byte, error) {
	rec, err := PackCity(c)
	if err != nil {
		return dst, err
	}
	dst = append(dst, rec[:]...)
	dst = append(dst, c.Name...)
	return append(dst, '\n'), nil
}

// EncodeCity writes the encoded record and name line of c to w.
func EncodeCity(w io.Writer, c *CityEntry) error {
	buf, err := AppendCity(make([]byte, 0, RecordSize+len(c.Name)+1), c)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// DecodeCity decodes a record whose fixed bytes have already been read,
// consuming the name line that follows from r.
func DecodeCity(rec [RecordSize]byte, r *bufio.Reader) (CityEntry, error) {
	name, err := readLine(r)
	if err != nil {
		return CityEntry{}, fmt.Errorf("reading city name: %w", err)
	}
	return UnpackCity(rec, name), nil
}

// quantize maps a fraction in [0, 1] onto the 20-bit grid. The closed upper
// bound (90°, 180°) is clamped to the last grid step.
func quantize(frac float64) uint32 {
	v := math.Round(frac * coordScale)
	if v < 0 {
		return 0
	}
	if v > maxCoord {
		return maxCoord
	}
	return uint32(v)
}

func checkCity(c *CityEntry) error {
	if err := checkLine("name", c.Name); err != nil {
		return err
	}
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return &FieldRangeError{Field: "latitude", Value: c.Latitude, Max: 90.0}
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return &FieldRangeError{Field: "longitude", Value: c.Longitude, Max: 180.0}
	}

	limits := []struct {
		field string
		value int
		max   int
	}{
		{"country index", c.CountryIx, maxCountryIx},
		{"population", int(c.Population), maxPopulationCode},
		{"region index", c.RegionIx, maxRegionIx},
		{"subregion index", c.SubregionIx, maxSubregionIx},
		{"timezone index", c.TimezoneIx, maxTimezoneIx},
		{"feature index", c.FeatureIx, maxFeatureIx},
	}
	for _, l := range limits {
		if l.value < 0 || l.value > l.max {
			return &FieldRangeError{Field: l.field, Value: l.value, Max: l.max}
		}
	}
	return nil
}

// checkLine rejects text that would not read back as the same single line:
// embedded newlines split it and readLine strips a trailing carriage return.
func checkLine(field, s string) error {
	if strings.ContainsRune(s, '\n') || strings.HasSuffix(s, "\r") {
		return &FieldRangeError{Field: field, Value: fmt.Sprintf("%q", s)}
	}
	return nil
}

// readLine reads one line and strips its terminator. A final line without a
// newline is returned as is; an empty read at EOF is io.ErrUnexpectedEOF.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", io.ErrUnexpectedEOF
		}
		err = nil
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
