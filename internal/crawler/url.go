package crawler

import (
	"fmt"
	"strings"

	"apartment-hunter/config"
)

// SearchURL builds the pagination page URL for the given filters. The
// target site expects literal bracket parameters and a compact JSON
// array for locations, so the query string is assembled by hand rather
// than through url.Values.
func SearchURL(f config.SearchFilters, page int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s?pagination=%d&price[max]=%d&size[min]=%d", f.BaseURL, page, f.MaxPrice, f.MinSize)
	for _, room := range f.Rooms {
		fmt.Fprintf(&b, "&roomCount[]=%d", room)
	}
	b.WriteString("&locations=")
	b.WriteString(locationsJSON(f.Locations))
	return b.String()
}

// locationsJSON serializes locations as [[64,6,"Helsinki"],...] with no
// interior whitespace.
func locationsJSON(locations []config.Location) string {
	parts := make([]string, len(locations))
	for i, loc := range locations {
		parts[i] = loc.JSON()
	}
	return "[" + strings.Join(parts, ",") + "]"
}
