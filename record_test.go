package geolocation

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
)

// TestPackCityLayout checks the exact byte layout of a packed record
func TestPackCityLayout(t *testing.T) {
	c := &CityEntry{
		Name:        "Layout",
		Latitude:    -90,
		Longitude:   -180,
		CountryIx:   3,
		Population:  0x475,
		RegionIx:    0x123,
		SubregionIx: 0xBEEF,
		TimezoneIx:  0x1AB,
		FeatureIx:   0x2A,
	}
	rec, err := PackCity(c)
	if err != nil {
		t.Fatalf("PackCity: %v", err)
	}
	want := [RecordSize]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0x47, 0x51, 0x23, 0xBE, 0xEF, 0xAB, 0xAA}
	if rec != want {
		t.Errorf("PackCity = % X, want % X", rec, want)
	}

	got := UnpackCity(rec, c.Name)
	if got != *c {
		t.Errorf("UnpackCity = %+v, want %+v", got, *c)
	}
}

func TestPackCityOrigin(t *testing.T) {
	rec, err := PackCity(&CityEntry{Name: "Null Island"})
	if err != nil {
		t.Fatalf("PackCity: %v", err)
	}
	if want := []byte{0x80, 0x00, 0x00, 0x80, 0x00}; !bytes.Equal(rec[:5], want) {
		t.Errorf("coordinate bytes = % X, want % X", rec[:5], want)
	}
}

func TestPackCityRoundTrip(t *testing.T) {
	const (
		latStep = 180.0 / coordScale
		lonStep = 360.0 / coordScale
	)
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"bristol", 51.4545, -2.5879},
		{"point nemo", -48.876667, -123.393333},
		{"south west corner", -90, -180},
		{"north east corner", 90, 180},
		{"just below the pole", 89.99999, 179.99999},
		{"date line", 0.5, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := CityEntry{Name: tt.name, Latitude: tt.lat, Longitude: tt.lon, Population: 0x9F4, TimezoneIx: 0x1FF, FeatureIx: 0x3F}
			rec, err := PackCity(&in)
			if err != nil {
				t.Fatalf("PackCity: %v", err)
			}
			out := UnpackCity(rec, in.Name)
			if d := math.Abs(out.Latitude - tt.lat); d > latStep {
				t.Errorf("latitude %v decoded as %v (off by %v)", tt.lat, out.Latitude, d)
			}
			if d := math.Abs(out.Longitude - tt.lon); d > lonStep {
				t.Errorf("longitude %v decoded as %v (off by %v)", tt.lon, out.Longitude, d)
			}
			if out.Population != in.Population || out.TimezoneIx != in.TimezoneIx || out.FeatureIx != in.FeatureIx {
				t.Errorf("fields changed: got %+v, want %+v", out, in)
			}
		})
	}
}

func TestPackCityTimezoneHighBit(t *testing.T) {
	for _, tz := range []int{0, 0xFF, 0x100, 0x1FF} {
		rec, err := PackCity(&CityEntry{TimezoneIx: tz, FeatureIx: 5})
		if err != nil {
			t.Fatalf("PackCity(tz=%#x): %v", tz, err)
		}
		if rec[12]&0x40 != 0 {
			t.Errorf("tz=%#x: unused bit 6 set in % X", tz, rec)
		}
		got := UnpackCity(rec, "")
		if got.TimezoneIx != tz || got.FeatureIx != 5 {
			t.Errorf("tz=%#x: decoded tz=%#x feature=%d", tz, got.TimezoneIx, got.FeatureIx)
		}
	}
}

func TestPackCityRangeErrors(t *testing.T) {
	tests := []struct {
		name  string
		city  CityEntry
		field string
	}{
		{"latitude too high", CityEntry{Latitude: 90.0001}, "latitude"},
		{"latitude NaN", CityEntry{Latitude: math.NaN()}, "latitude"},
		{"longitude too low", CityEntry{Longitude: -180.5}, "longitude"},
		{"country", CityEntry{CountryIx: 256}, "country index"},
		{"negative country", CityEntry{CountryIx: -1}, "country index"},
		{"population", CityEntry{Population: 0x1000}, "population"},
		{"region", CityEntry{RegionIx: 0x1000}, "region index"},
		{"subregion", CityEntry{SubregionIx: 0x10000}, "subregion index"},
		{"timezone", CityEntry{TimezoneIx: 0x200}, "timezone index"},
		{"feature", CityEntry{FeatureIx: 64}, "feature index"},
		{"newline in name", CityEntry{Name: "two\nlines"}, "name"},
		{"trailing carriage return", CityEntry{Name: "Bristol\r"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PackCity(&tt.city)
			var fe *FieldRangeError
			if !errors.As(err, &fe) {
				t.Fatalf("PackCity error = %v, want *FieldRangeError", err)
			}
			if fe.Field != tt.field {
				t.Errorf("Field = %q, want %q", fe.Field, tt.field)
			}
		})
	}
}

func TestPackCitySentinelCollision(t *testing.T) {
	// longitude one 45/8192 degree step east of the antimeridian packs to
	// 00 01 and country 10 is the newline byte
	c := &CityEntry{Name: "Unlucky", Latitude: -90, Longitude: -180 + 45.0/8192, CountryIx: 10}
	if _, err := PackCity(c); !errors.Is(err, ErrSentinelCollision) {
		t.Errorf("PackCity error = %v, want ErrSentinelCollision", err)
	}

	c.CountryIx = 11
	if _, err := PackCity(c); err != nil {
		t.Errorf("PackCity with country 11: %v", err)
	}
}

func TestEncodeDecodeCity(t *testing.T) {
	in := CityEntry{Name: "Île-de-Bréhat", Latitude: 48.85, Longitude: -3.0, Population: 0x423, CountryIx: 2, RegionIx: 7, SubregionIx: 300, TimezoneIx: 3, FeatureIx: 1}

	var buf bytes.Buffer
	if err := EncodeCity(&buf, &in); err != nil {
		t.Fatalf("EncodeCity: %v", err)
	}
	if n := buf.Len(); n != RecordSize+len(in.Name)+1 {
		t.Fatalf("encoded %d bytes, want %d", n, RecordSize+len(in.Name)+1)
	}

	var rec [RecordSize]byte
	copy(rec[:], buf.Next(RecordSize))
	out, err := DecodeCity(rec, bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("DecodeCity: %v", err)
	}
	if out.Name != in.Name || out.SubregionIx != in.SubregionIx || out.Population != in.Population {
		t.Errorf("DecodeCity = %+v, want %+v", out, in)
	}
}

func TestEncodeDecodeCityNames(t *testing.T) {
	for _, name := range []string{"", "Bristol", "Bris\rtol", "\rBristol", " Bristol ", "Île-de-Bréhat"} {
		in := CityEntry{Name: name, Latitude: 1, Longitude: 2}
		var buf bytes.Buffer
		if err := EncodeCity(&buf, &in); err != nil {
			t.Fatalf("EncodeCity(%q): %v", name, err)
		}
		var rec [RecordSize]byte
		copy(rec[:], buf.Next(RecordSize))
		out, err := DecodeCity(rec, bufio.NewReader(&buf))
		if err != nil {
			t.Fatalf("DecodeCity(%q): %v", name, err)
		}
		if out.Name != name {
			t.Errorf("name %q decoded as %q", name, out.Name)
		}
	}
}

func TestDecodeCityMissingName(t *testing.T) {
	var rec [RecordSize]byte
	_, err := DecodeCity(rec, bufio.NewReader(strings.NewReader("")))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("DecodeCity error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadLine(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("one\r\ntwo  \nthree"))
	for _, want := range []string{"one", "two  ", "three"} {
		got, err := readLine(br)
		if err != nil {
			t.Fatalf("readLine: %v", err)
		}
		if got != want {
			t.Errorf("readLine = %q, want %q", got, want)
		}
	}
	if _, err := readLine(br); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("readLine at EOF = %v, want io.ErrUnexpectedEOF", err)
	}
}
