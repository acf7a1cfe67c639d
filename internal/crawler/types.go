package crawler

import "time"

// ListingRecord is one rental unit as extracted from its rendered
// page. Immutable once extracted; keyed by URL within a crawl.
type ListingRecord struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Overview string `json:"overview,omitempty"`

	// Table-derived attributes, as displayed on the page. Numeric
	// cleaning happens later in the scorer.
	PriceNoTax       string `json:"price_no_tax,omitempty"`
	LifeSq           string `json:"life_sq,omitempty"`
	Floor            string `json:"floor,omitempty"`
	Availability     string `json:"availability,omitempty"`
	RoomLayout       string `json:"room_layout,omitempty"`
	BuildingType     string `json:"building_type,omitempty"`
	YearBuilt        string `json:"year_built,omitempty"`
	HasSauna         bool   `json:"has_sauna"`
	BuildingHasSauna bool   `json:"building_has_sauna"`

	// Contact block
	ContactName     string `json:"contact_person_name,omitempty"`
	ContactJobTitle string `json:"contact_person_job_title,omitempty"`
	ContactPhone    string `json:"contact_person_phone_number,omitempty"`
	ContactCompany  string `json:"contact_person_company,omitempty"`
	ContactEmail    string `json:"contact_person_email,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// Published comes from the embedded analytics payload.
	Published  string    `json:"published,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// RequestKind distinguishes how a fetched page is handled.
type RequestKind string

const (
	// RequestPagination is one page of the search-results index
	RequestPagination RequestKind = "pagination"
	// RequestItem is a single listing page
	RequestItem RequestKind = "item"
)

// PageFetchRequest describes one render request inside a crawl.
type PageFetchRequest struct {
	URL      string
	Page     int
	Priority int
	Kind     RequestKind
}
