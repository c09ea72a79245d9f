// Package venues searches for nearby venues through the Geoapify Places
// API and enriches each result with per-venue details.
package venues

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spotsync/discovery/internal/geo"
)

// Venue is a single search result, always renderable from its base
// fields alone. Enrichment fields are filled in by a secondary detail
// fetch that may fail without invalidating the record.
type Venue struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Icon       string    `json:"icon"`
	Tags       []string  `json:"tags"`
	Address    string    `json:"address"`
	Coordinate geo.Point `json:"coordinate"`

	// DistanceKm is derived from the query point at construction time,
	// rounded to one decimal place.
	DistanceKm float64 `json:"distance_km"`

	// Enrichment fields, optional.
	Rating      *float64 `json:"rating,omitempty"`
	PriceRange  string   `json:"price_range,omitempty"`
	PriceIcon   string   `json:"price_icon,omitempty"`
	Hours       string   `json:"hours,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Website     string   `json:"website,omitempty"`
	Facebook    string   `json:"facebook,omitempty"`
	Twitter     string   `json:"twitter,omitempty"`
	Instagram   string   `json:"instagram,omitempty"`
	Description string   `json:"description,omitempty"`
}

// SortKey selects the result ordering for a search.
type SortKey string

const (
	SortByDistance SortKey = "distance"
	SortByRating   SortKey = "rating"
	SortByName     SortKey = "name"
)

// newVenue builds a Venue from one upstream feature, computing its
// distance from the query point.
func newVenue(f *searchFeature, origin geo.Point) Venue {
	pt := geo.Point{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]}
	tags := normalizeCategories(f.Properties.Categories)

	id := f.Properties.PlaceID
	if id == "" {
		id = fmt.Sprintf("venue-%d", time.Now().UnixNano())
	}

	name := f.Properties.Name
	if name == "" {
		name = "Unknown Venue"
	}

	category := "venue"
	if len(tags) > 0 {
		category = tags[0]
	}

	return Venue{
		ID:         id,
		Name:       name,
		Category:   category,
		Icon:       CategoryIcon(category),
		Tags:       tags,
		Coordinate: pt,
		DistanceKm: geo.RoundDistance(geo.Haversine(origin, pt)),
	}
}

// normalizeCategories canonicalizes the upstream category list. The raw
// field arrives as a list of slash-qualified tags; comma-joined single
// strings and empty entries are tolerated so one representation reaches
// the rest of the pipeline.
func normalizeCategories(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, tag := range strings.Split(entry, ",") {
			tag = strings.TrimSpace(strings.ToLower(tag))
			if tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// filterByRating drops venues below the minimum rating. Venues with no
// rating at all are excluded whenever a minimum is set.
func filterByRating(venues []Venue, minRating float64) []Venue {
	if minRating <= 0 {
		return venues
	}

	filtered := make([]Venue, 0, len(venues))
	for _, v := range venues {
		if v.Rating != nil && *v.Rating >= minRating {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// sortVenues orders venues in place by the requested key. Distance
// ascending is the default; rating sorts descending with unrated venues
// last.
func sortVenues(venues []Venue, key SortKey) {
	switch key {
	case SortByRating:
		sort.SliceStable(venues, func(i, j int) bool {
			ri, rj := venues[i].Rating, venues[j].Rating
			if ri == nil {
				return false
			}
			if rj == nil {
				return true
			}
			return *ri > *rj
		})
	case SortByName:
		sort.SliceStable(venues, func(i, j int) bool {
			return venues[i].Name < venues[j].Name
		})
	default:
		sort.SliceStable(venues, func(i, j int) bool {
			return venues[i].DistanceKm < venues[j].DistanceKm
		})
	}
}
