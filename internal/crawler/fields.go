package crawler

import "strings"

// labelToField maps the listing page's display labels to canonical
// record fields. The labels are site-specific configuration data, not
// logic; extend this table when the site adds rows worth keeping.
var labelToField = map[string]string{
	"Vuokra/kk":            "price_no_tax",
	"Asuinpinta-ala":       "life_sq",
	"Kerros":               "floor",
	"Vapautuminen":         "availability",
	"Huoneiston kokoonpano": "room_layout",
	"Rakennuksen tyyppi":   "building_type",
	"Rakennusvuosi":        "year_built",
	"Sauna":                "has_sauna",
	"Taloyhtiössä on sauna": "building_has_sauna",
}

// setField writes a table value into its canonical record field.
// Unknown fields are dropped silently.
func setField(rec *ListingRecord, field, value string) {
	switch field {
	case "price_no_tax":
		rec.PriceNoTax = value
	case "life_sq":
		rec.LifeSq = value
	case "floor":
		rec.Floor = value
	case "availability":
		rec.Availability = value
	case "room_layout":
		rec.RoomLayout = value
	case "building_type":
		rec.BuildingType = value
	case "year_built":
		rec.YearBuilt = value
	case "has_sauna":
		rec.HasSauna = parseFlag(value)
	case "building_has_sauna":
		rec.BuildingHasSauna = parseFlag(value)
	}
}

// parseFlag interprets the site's yes/no row values.
func parseFlag(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "kyllä", "on", "yes", "true":
		return true
	}
	return false
}
