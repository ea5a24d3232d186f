package geolocation

import (
	"math"
	"sort"
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// s2CellLevel is the granularity of the nearest-city index. Level 10 cells
// are roughly 10km across, so a cell and its neighbours cover the ~20km
// around a point.
const s2CellLevel = 10

// earthRadiusKm converts angles on the unit sphere to kilometres.
const earthRadiusKm = 6371.01

// Neighbor is a city returned by Nearest.
type Neighbor struct {
	Index    int
	Distance s1.Angle
}

// Kilometers returns the great-circle distance in kilometres.
func (n Neighbor) Kilometers() float64 {
	return n.Distance.Radians() * earthRadiusKm
}

// LatLng returns the position of the city as an s2.LatLng.
func (c CityEntry) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude)
}

// Geohash returns the 12-character geohash of the city position.
func (c CityEntry) Geohash() string {
	return geohash.Encode(c.Latitude, c.Longitude)
}

// FindCitiesByGeohash returns the cities whose geohash starts with prefix.
func (db *Database) FindCitiesByGeohash(prefix string) []int {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil
	}
	var matches []int
	for i := range db.Cities {
		if strings.HasPrefix(db.Cities[i].Geohash(), prefix) {
			matches = append(matches, i)
		}
	}
	return matches
}

// Nearest returns up to k cities close to the given position, nearest
// first, ties broken by city index. Cities in the query's S2 cell and its
// neighbours are searched first, so a city just outside that ring can be
// missed when the ring already holds k cities.
func (db *Database) Nearest(lat, lon float64, k int) []Neighbor {
	if k <= 0 || len(db.Cities) == 0 ||
		math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return nil
	}

	query := s2.LatLngFromDegrees(lat, lon)
	cell := s2.CellIDFromLatLng(query).Parent(s2CellLevel)

	index := db.spatialIndex()
	var candidates []Neighbor
	for _, c := range cellAndNeighbors(cell) {
		for _, ix := range index[c] {
			candidates = append(candidates, Neighbor{Index: ix, Distance: query.Distance(db.Cities[ix].LatLng())})
		}
	}

	// Fewer than k cities in the neighbourhood: scan everything.
	if len(candidates) < k {
		candidates = candidates[:0]
		for ix := range db.Cities {
			candidates = append(candidates, Neighbor{Index: ix, Distance: query.Distance(db.Cities[ix].LatLng())})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Index < candidates[j].Index
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// spatialIndex returns the cell index, building it on first use.
func (db *Database) spatialIndex() map[s2.CellID][]int {
	db.spatialMu.Lock()
	defer db.spatialMu.Unlock()
	if db.cellIndex == nil {
		db.cellIndex = make(map[s2.CellID][]int)
		for i := range db.Cities {
			cell := s2.CellIDFromLatLng(db.Cities[i].LatLng()).Parent(s2CellLevel)
			db.cellIndex[cell] = append(db.cellIndex[cell], i)
		}
	}
	return db.cellIndex
}

func (db *Database) invalidateSpatial() {
	db.spatialMu.Lock()
	db.cellIndex = nil
	db.spatialMu.Unlock()
}

// cellAndNeighbors returns the given cell plus its edge and corner neighbours.
func cellAndNeighbors(cell s2.CellID) []s2.CellID {
	cells := make([]s2.CellID, 0, 9)
	cells = append(cells, cell)

	edgeNeighbors := cell.EdgeNeighbors()
	seen := map[s2.CellID]bool{cell: true}
	for _, n := range edgeNeighbors {
		if !seen[n] {
			cells = append(cells, n)
			seen[n] = true
		}
	}
	for _, n := range edgeNeighbors {
		for _, corner := range n.EdgeNeighbors() {
			if !seen[corner] {
				cells = append(cells, corner)
				seen[corner] = true
			}
		}
	}
	return cells
}
