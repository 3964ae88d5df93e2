package location

import "fmt"

// PlaceName builds a display name from a geocoding candidate, preferring
// "city, state", then "city, country", "state, country" and finally the
// country alone. It returns "" when none of these resolve.
func PlaceName(p Place) string {
	switch {
	case p.Name != "" && p.State != "":
		return p.Name + ", " + p.State
	case p.Name != "" && p.Country != "":
		return p.Name + ", " + p.Country
	case p.State != "" && p.Country != "":
		return p.State + ", " + p.Country
	case p.Country != "":
		return p.Country
	default:
		return ""
	}
}

// FormatCoordinates is the fallback display name used when naming fails.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}
