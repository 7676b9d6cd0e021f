package domain

import "time"

const (
	AvailabilitySoldOut = "sold_out"

	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"

	DateModeSingle = "single"
	DateModeRange  = "range"
)

const (
	FlightNodeEndpoint = "endpoint"
	FlightNodeLayover  = "layover"
)

// LookupValue is a (machine value, display label) pair from one of the small
// enumeration tables.
type LookupValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LookupItem is a lookup row exposed for client-side filter population.
type LookupItem struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// OperatorSnapshot is the operator display data copied into the tour when the
// tour was authored. It is intentionally stale relative to the live Operator
// record.
type OperatorSnapshot struct {
	Name           string   `json:"name"`
	Logo           string   `json:"logo"`
	FoundationYear int      `json:"foundation_year"`
	Verified       bool     `json:"verified"`
	Features       []string `json:"features"`
}

type FlightNodeView struct {
	Type           string `json:"type"`
	Iata           string `json:"iata"`
	City           string `json:"city"`
	LayoverMinutes *int   `json:"layover_minutes,omitempty"`
}

type FlightDirectionView struct {
	FromCity      string           `json:"from_city"`
	FromIata      string           `json:"from_iata"`
	ToCity        string           `json:"to_city"`
	ToIata        string           `json:"to_iata"`
	DepartureDate time.Time        `json:"departure_date"`
	Nodes         []FlightNodeView `json:"nodes"`
	Included      []string         `json:"included"`
}

type TourFlights struct {
	Outbound FlightDirectionView `json:"outbound"`
	Inbound  FlightDirectionView `json:"inbound"`
}

type HotelView struct {
	City         string   `json:"city"`
	Name         string   `json:"name"`
	Stars        *int     `json:"stars"`
	Rating       *float64 `json:"rating"`
	ReviewsCount *int     `json:"reviews_count"`
	DistanceText string   `json:"distance_text"`
	MapsURL      string   `json:"maps_url"`
	Amenities    []string `json:"amenities"`
}

// TourView is the read model returned by tour search. ID identifies a concrete
// bookable flight, not the abstract tour, so availability lives here.
type TourView struct {
	ID           string           `json:"id"`
	Operator     OperatorSnapshot `json:"operator"`
	Title        string           `json:"title"`
	Type         LookupValue      `json:"type"`
	Tariff       LookupValue      `json:"tarif"`
	Price        int              `json:"price"`
	Duration     int              `json:"duration"`
	Location     string           `json:"location"`
	VisaIncluded bool             `json:"visa_included"`
	Availability string           `json:"availability"`
	Flights      TourFlights      `json:"flights"`
	Hotels       []HotelView      `json:"hotels"`
}

// TourAggregate is one price-summary bucket, keyed by the exact outbound
// departure timestamp.
type TourAggregate struct {
	Date       time.Time `json:"date"`
	AvgPrice   int       `json:"avg_price"`
	MinPrice   int       `json:"min_price"`
	ToursCount int       `json:"tours_count"`
}

// TourSearchParams carries the validated search filters. DateMode selects
// between a single calendar-day match and an inclusive range.
type TourSearchParams struct {
	TourType      string
	Tariff        string
	OperatorID    int
	DepartureCity string
	DateMode      string
	DepartureDate *time.Time
	DateStart     *time.Time
	DateEnd       *time.Time
	// Pilgrims is validated and defaulted to 1 but is not a store filter;
	// seat capacity is not modeled, so it only drives client-side pricing.
	Pilgrims int
	Limit    int
	Offset   int
}

// FlightNodeRow is a stored node as read from the relational store, before
// presentation-time classification.
type FlightNodeRow struct {
	Iata           string
	City           string
	LayoverMinutes *int
}

// BuildDirectionView assembles a direction view from its ordered node list.
// First and last node are classified as endpoints and provide the direction's
// declared origin/destination; every interior node is a layover. This is a
// display-time reclassification independent of how the rows were generated.
func BuildDirectionView(departureDate time.Time, included []string, nodes []FlightNodeRow) FlightDirectionView {
	v := FlightDirectionView{
		DepartureDate: departureDate,
		Included:      included,
		Nodes:         make([]FlightNodeView, 0, len(nodes)),
	}
	for i, n := range nodes {
		typ := FlightNodeLayover
		if i == 0 || i == len(nodes)-1 {
			typ = FlightNodeEndpoint
		}
		v.Nodes = append(v.Nodes, FlightNodeView{
			Type:           typ,
			Iata:           n.Iata,
			City:           n.City,
			LayoverMinutes: n.LayoverMinutes,
		})
	}
	if len(nodes) > 0 {
		v.FromIata = nodes[0].Iata
		v.FromCity = nodes[0].City
		v.ToIata = nodes[len(nodes)-1].Iata
		v.ToCity = nodes[len(nodes)-1].City
	}
	return v
}
