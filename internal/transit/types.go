package transit

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Leg is one segment of an itinerary.
type Leg struct {
	Mode     string  `json:"mode"`
	Duration float64 `json:"duration"`
	Distance float64 `json:"distance"`
}

// Itinerary is one computed route. Duration is in seconds.
// WalkDistance is only populated for walk-only plans.
type Itinerary struct {
	Duration     float64 `json:"duration"`
	Legs         []Leg   `json:"legs,omitempty"`
	WalkDistance float64 `json:"walkDistance,omitempty"`
}

// Stop is a transit stop with its fare zone. ZoneID is nil for stops
// outside the zone model.
type Stop struct {
	Name   string  `json:"name"`
	ZoneID *string `json:"zoneId"`
}

// StopAtDistance is a stop found within a radius query.
type StopAtDistance struct {
	Stop     Stop    `json:"stop"`
	Distance float64 `json:"distance"`
}
