package geolocation

import (
	"errors"

	. "gopkg.in/check.v1"
)

type QuerySuite struct {
	db *Database
}

var _ = Suite(&QuerySuite{})

func (s *QuerySuite) SetUpTest(c *C) {
	s.db = newFixture()
}

func (s *QuerySuite) TestFindCitiesByName(c *C) {
	matches, err := s.db.FindCities("Bristol")
	c.Assert(err, IsNil)
	c.Assert(matches, DeepEquals, []int{0, 2})
}

func (s *QuerySuite) TestFindCitiesChained(c *C) {
	tests := []struct {
		query string
		want  []int
	}{
		{"Bristol, GB", []int{0}},
		{"Bristol, United States", []int{2}},
		{"Bristol,US", []int{2}},
		{"Bristol, England, GB", []int{0}},
		{"Bristol, Pennsylvania, GB", nil},
		{"Bristol, South Gloucestershire, England, GBUnited Kingdom", []int{0}},
		{"Bristol, Gloucester, Eng, United", []int{0}},
		{"Bristol, Bucks, , ", []int{2}},
		{"Kingswood", []int{1}},
		{"kingswood", nil},
		{"Bristo", nil},
		{"  Paris  ", nil},
		{"  Paris  , FR", []int{4}},
	}
	for _, tt := range tests {
		matches, err := s.db.FindCities(tt.query)
		c.Assert(err, IsNil, Commentf("query %q", tt.query))
		c.Assert(matches, DeepEquals, tt.want, Commentf("query %q", tt.query))
	}
}

func (s *QuerySuite) TestFindCitiesTooManySegments(c *C) {
	_, err := s.db.FindCities("a, b, c, d, e")
	var qe *QueryError
	c.Assert(errors.As(err, &qe), Equals, true)
	c.Assert(qe.Segments, Equals, 5)
	c.Assert(qe.Max, Equals, 4)
}

func (s *QuerySuite) TestFindSubregions(c *C) {
	matches, err := s.db.FindSubregions("Bucks County")
	c.Assert(err, IsNil)
	c.Assert(matches, DeepEquals, []int{1})

	matches, err = s.db.FindSubregions("Bucks County, GB")
	c.Assert(err, IsNil)
	c.Assert(matches, IsNil)

	matches, err = s.db.FindSubregions("South Gloucestershire, England, United Kingdom")
	c.Assert(err, IsNil)
	c.Assert(matches, DeepEquals, []int{0})

	_, err = s.db.FindSubregions("a, b, c, d")
	c.Assert(err, FitsTypeOf, &QueryError{})
}

func (s *QuerySuite) TestFindSubregionsWithoutCities(c *C) {
	matches, err := s.db.FindSubregions("Unused Subregion")
	c.Assert(err, IsNil)
	c.Assert(matches, DeepEquals, []int{3})

	// no city gives it a country, so a qualified query cannot match
	matches, err = s.db.FindSubregions("Unused Subregion, GB")
	c.Assert(err, IsNil)
	c.Assert(matches, IsNil)
}

func (s *QuerySuite) TestFindRegions(c *C) {
	matches, err := s.db.FindRegions("England, GB")
	c.Assert(err, IsNil)
	c.Assert(matches, DeepEquals, []int{0})

	matches, err = s.db.FindRegions("England, FR")
	c.Assert(err, IsNil)
	c.Assert(matches, IsNil)

	matches, err = s.db.FindRegions("Empty Region")
	c.Assert(err, IsNil)
	c.Assert(matches, DeepEquals, []int{3})

	_, err = s.db.FindRegions("England, GB, Europe")
	c.Assert(err, FitsTypeOf, &QueryError{})
}

func (s *QuerySuite) TestFlatLookups(c *C) {
	c.Assert(s.db.FindCountries("United"), DeepEquals, []int{0, 1})
	c.Assert(s.db.FindCountries("FR"), DeepEquals, []int{2})
	c.Assert(s.db.FindCountries("GBUnited"), DeepEquals, []int{0})

	c.Assert(s.db.FindTimezones("America/"), DeepEquals, []int{1, 2})
	c.Assert(s.db.FindTimezones("Paris"), IsNil)
	c.Assert(s.db.FindTimezones("Europe/Paris"), DeepEquals, []int{3})

	c.Assert(s.db.FindFeatures("county"), DeepEquals, []int{2})
	c.Assert(s.db.FindFeatures("place"), DeepEquals, []int{1})
}

func (s *QuerySuite) TestResolveUnique(c *C) {
	ix, err := s.db.ResolveCity("Bristol, GB")
	c.Assert(err, IsNil)
	c.Assert(ix, Equals, 0)

	ix, err = s.db.ResolveSubregion("Paris")
	c.Assert(err, IsNil)
	c.Assert(ix, Equals, 2)

	ix, err = s.db.ResolveRegion("Pennsylvania, US")
	c.Assert(err, IsNil)
	c.Assert(ix, Equals, 1)

	ix, err = s.db.ResolveCountry("France")
	c.Assert(err, IsNil)
	c.Assert(ix, Equals, 2)

	ix, err = s.db.ResolveTimezone("Europe/L")
	c.Assert(err, IsNil)
	c.Assert(ix, Equals, 0)

	ix, err = s.db.ResolveFeature("Other")
	c.Assert(err, IsNil)
	c.Assert(ix, Equals, 0)
}

func (s *QuerySuite) TestResolveAmbiguous(c *C) {
	_, err := s.db.ResolveCity("Bristol")
	c.Assert(errors.Is(err, ErrAmbiguous), Equals, true)
	c.Assert(errors.Is(err, ErrNotFound), Equals, false)

	var ae *AmbiguityError
	c.Assert(errors.As(err, &ae), Equals, true)
	c.Assert(ae.Candidates, DeepEquals, []int{0, 2})
	c.Assert(ae.Kind, Equals, "city")
	c.Assert(err, ErrorMatches, `2 city entries match "Bristol"`)

	_, err = s.db.ResolveCountry("United")
	c.Assert(errors.Is(err, ErrAmbiguous), Equals, true)
}

func (s *QuerySuite) TestResolveNotFoundSuggests(c *C) {
	_, err := s.db.ResolveCity("Bristle, GB")
	c.Assert(errors.Is(err, ErrNotFound), Equals, true)

	var ae *AmbiguityError
	c.Assert(errors.As(err, &ae), Equals, true)
	c.Assert(ae.Candidates, HasLen, 0)
	c.Assert(ae.Suggestions, DeepEquals, []string{"Bristol"})
	c.Assert(err, ErrorMatches, `no city matches "Bristle, GB" \(did you mean "Bristol"\?\)`)

	_, err = s.db.ResolveRegion("Zzzzzzzz")
	c.Assert(errors.As(err, &ae), Equals, true)
	c.Assert(ae.Suggestions, IsNil)
}

func (s *QuerySuite) TestResolvePropagatesQueryErrors(c *C) {
	_, err := s.db.ResolveCity("a,b,c,d,e")
	c.Assert(err, FitsTypeOf, &QueryError{})
}

func (s *QuerySuite) TestSuggestOrdering(c *C) {
	got := suggest("paris", []string{"Parma", "Paris", "Parish", "Pairs", "Paris", "Lyon"})
	c.Assert(got, DeepEquals, []string{"Paris", "Parish", "Pairs"})
	c.Assert(suggest("", []string{"a"}), IsNil)
}
