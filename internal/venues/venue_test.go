package venues

import (
	"testing"

	"github.com/spotsync/discovery/internal/geo"
)

func TestNormalizeCategories(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{"plain list", []string{"catering.bar", "catering"}, []string{"catering.bar", "catering"}},
		{"comma joined entry", []string{"catering.bar,catering"}, []string{"catering.bar", "catering"}},
		{"mixed case and spacing", []string{" Catering.Bar ", ""}, []string{"catering.bar"}},
		{"empty", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeCategories(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("normalizeCategories(%v) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tag[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewVenueDefaults(t *testing.T) {
	var f searchFeature
	f.Geometry.Coordinates = [2]float64{-122.4194, 37.7749}

	v := newVenue(&f, geo.Point{Lat: 37.7749, Lon: -122.4194})

	if v.Name != "Unknown Venue" {
		t.Errorf("Name = %q, want Unknown Venue", v.Name)
	}
	if v.Category != "venue" {
		t.Errorf("Category = %q, want venue", v.Category)
	}
	if v.Icon != "location" {
		t.Errorf("Icon = %q, want location fallback", v.Icon)
	}
	if v.ID == "" {
		t.Error("Expected generated ID for venue without place_id")
	}
	if v.DistanceKm != 0 {
		t.Errorf("DistanceKm = %v, want 0", v.DistanceKm)
	}
}

func TestFilterByRating(t *testing.T) {
	rated := 4.5
	low := 2.0
	venues := []Venue{
		{ID: "a", Rating: &rated},
		{ID: "b", Rating: &low},
		{ID: "c"},
	}

	got := filterByRating(venues, 4.0)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("filterByRating = %v, want only venue a", got)
	}

	// Zero minimum keeps everything, rated or not.
	if got := filterByRating(venues, 0); len(got) != 3 {
		t.Errorf("Expected all venues without a minimum, got %d", len(got))
	}
}

func TestSortVenues(t *testing.T) {
	high := 4.8
	mid := 3.1
	venues := func() []Venue {
		return []Venue{
			{Name: "Charlie", DistanceKm: 2.5, Rating: &mid},
			{Name: "Alpha", DistanceKm: 0.4},
			{Name: "Bravo", DistanceKm: 1.1, Rating: &high},
		}
	}

	byDistance := venues()
	sortVenues(byDistance, SortByDistance)
	if byDistance[0].Name != "Alpha" || byDistance[2].Name != "Charlie" {
		t.Errorf("Distance sort wrong: %v", names(byDistance))
	}

	byRating := venues()
	sortVenues(byRating, SortByRating)
	if byRating[0].Name != "Bravo" || byRating[2].Name != "Alpha" {
		t.Errorf("Rating sort wrong (unrated should be last): %v", names(byRating))
	}

	byName := venues()
	sortVenues(byName, SortByName)
	if byName[0].Name != "Alpha" || byName[2].Name != "Charlie" {
		t.Errorf("Name sort wrong: %v", names(byName))
	}
}

func names(venues []Venue) []string {
	out := make([]string, len(venues))
	for i, v := range venues {
		out[i] = v.Name
	}
	return out
}

func TestCategoryIcon(t *testing.T) {
	if got := CategoryIcon("catering"); got != "restaurant" {
		t.Errorf("CategoryIcon(catering) = %q, want restaurant", got)
	}
	// Partial match: "catering.bar" contains "bar".
	if got := CategoryIcon("catering.bar"); got != "wine" {
		t.Errorf("CategoryIcon(catering.bar) = %q, want wine", got)
	}
	if got := CategoryIcon("something-unknown"); got != "location" {
		t.Errorf("CategoryIcon fallback = %q, want location", got)
	}
}

func TestPriceRangeIcon(t *testing.T) {
	if got := PriceRangeIcon("luxury"); got != "trophy-outline" {
		t.Errorf("PriceRangeIcon(luxury) = %q", got)
	}
	if got := PriceRangeIcon(""); got != "help-circle-outline" {
		t.Errorf("PriceRangeIcon empty = %q", got)
	}
}
